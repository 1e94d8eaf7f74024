package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hmctech/ordering/internal/orders"
	"github.com/hmctech/ordering/pkg/models"
)

func (s *Server) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		s.logger.WithError(err).Error("Failed to decode device request")
		s.respondWithError(w)
		return
	}

	device.ID = uuid.New().String()
	device.DateUpdated = orders.Today()

	s.logger.WithField("device_id", device.ID).Info("Adding new device to database")

	if err := s.store.PutDevice(r.Context(), &device); err != nil {
		s.logger.WithError(err).Error("Failed to save device")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Added new device %s to DB", device.ID),
		"id":      device.ID,
	})
}

func (s *Server) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := s.store.GetDevice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.respondWithJSON(w, http.StatusOK, map[string]any{})
			return
		}
		s.logger.WithError(err).Error("Failed to get device")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{"Item": device})
}

func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.ListDevices(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list devices")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"Items": devices,
		"Count": len(devices),
	})
}

// UpdateDevice accepts the request but changes nothing; device edits go
// through delete-and-recreate in the operator dashboard.
func (s *Server) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, nil)
}

func (s *Server) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	if err := s.store.DeleteDevice(r.Context(), deviceID); err != nil {
		s.logger.WithError(err).Error("Failed to delete device")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{})
}
