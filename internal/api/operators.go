package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// Operators are provisioned out of band; the API only reads them.

func (s *Server) GetOperator(w http.ResponseWriter, r *http.Request) {
	operator, err := s.store.GetOperator(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.respondWithJSON(w, http.StatusOK, map[string]any{})
			return
		}
		s.logger.WithError(err).Error("Failed to get operator")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{"Item": operator})
}

func (s *Server) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := s.store.ListOperators(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list operators")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"Items": operators,
		"Count": len(operators),
	})
}
