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

func (s *Server) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.WithError(err).Error("Failed to decode order request")
		s.respondWithError(w)
		return
	}

	order, err := s.orders.Create(r.Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create order")
		s.respondWithError(w)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast("order_created", order, order.ID)
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Added new order %s to DB", order.ID),
		"id":      order.ID,
	})
}

func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, err := s.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A point get on a missing id is not an error, just an empty result.
			s.respondWithJSON(w, http.StatusOK, map[string]any{})
			return
		}
		s.logger.WithError(err).Error("Failed to get order")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{"Item": order})
}

func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	items, err := s.orders.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list orders")
		s.respondWithError(w)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"Items": items,
		"Count": len(items),
	})
}

func (s *Server) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.WithError(err).Error("Failed to decode order update request")
		s.respondWithError(w)
		return
	}

	switch req.Type {
	case "payment":
		order, err := s.orders.MarkPaid(r.Context(), orderID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to update payment status")
			s.respondWithError(w)
			return
		}

		if s.hub != nil {
			s.hub.Broadcast("order_updated", order, orderID)
		}

		s.respondWithJSON(w, http.StatusOK, fmt.Sprintf("PUT item %s payment status updated", orderID))

	case "orderStatus":
		order, err := s.orders.UpdateStatus(r.Context(), orderID, req.OrderStatus)
		if err != nil {
			var invalid *orders.InvalidStatusError
			if errors.As(err, &invalid) {
				// The caller gets the rejection message; storage was not touched.
				s.respondWithJSON(w, http.StatusOK, fmt.Sprintf("Invalid order status %s", invalid.Value))
				return
			}
			s.logger.WithError(err).Error("Failed to update order status")
			s.respondWithError(w)
			return
		}

		if s.hub != nil {
			s.hub.Broadcast("order_updated", order, orderID)
		}

		s.respondWithJSON(w, http.StatusOK,
			fmt.Sprintf("PUT item %s order status updated to %s", orderID, order.OrderStatus))

	default:
		s.logger.WithField("type", req.Type).Error("Unknown order update type")
		s.respondWithError(w)
	}
}

func (s *Server) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	if err := s.orders.Delete(r.Context(), orderID); err != nil {
		s.logger.WithError(err).Error("Failed to delete order")
		s.respondWithError(w)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast("order_deleted", nil, orderID)
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{})
}
