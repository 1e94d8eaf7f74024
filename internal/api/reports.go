package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hmctech/ordering/internal/orders"
	"github.com/hmctech/ordering/pkg/models"
)

// CreateReport stores the device ranking for an order. The report id is the
// order id supplied by the operator, not a generated one.
func (s *Server) CreateReport(w http.ResponseWriter, r *http.Request) {
	var report models.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.logger.WithError(err).Error("Failed to decode report request")
		s.respondWithError(w)
		return
	}

	report.DateUpdated = orders.Today()

	if err := s.store.PutReport(r.Context(), &report); err != nil {
		s.logger.WithError(err).Error("Failed to save report")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("Added new report for order %s to DB", report.ID),
		"id":            report.ID,
		"deviceRank1Id": report.DeviceRank1ID,
		"deviceRank2Id": report.DeviceRank2ID,
		"deviceRank3Id": report.DeviceRank3ID,
	})
}

func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.respondWithJSON(w, http.StatusOK, map[string]any{})
			return
		}
		s.logger.WithError(err).Error("Failed to get report")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{"Item": report})
}

func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reports")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"Items": reports,
		"Count": len(reports),
	})
}
