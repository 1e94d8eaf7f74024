package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/notify"
	"github.com/hmctech/ordering/internal/orders"
	"github.com/hmctech/ordering/internal/ws"
	"github.com/hmctech/ordering/pkg/models"
)

// Store covers the supporting entities served straight from the key-value
// tables. Orders go through the lifecycle service instead so every mutation
// emits a change event.
type Store interface {
	PutOrder(ctx context.Context, order *models.Order) error

	PutDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	GetOperator(ctx context.Context, id string) (*models.Operator, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)

	PutReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context) ([]models.Report, error)
}

type Server struct {
	orders      *orders.Service
	store       Store
	mailer      notify.Mailer
	sourceEmail string
	hub         *ws.Hub
	logger      *logrus.Logger
}

func NewServer(orderService *orders.Service, store Store, logger *logrus.Logger) *Server {
	return &Server{
		orders: orderService,
		store:  store,
		logger: logger,
	}
}

// SetMailer enables the welcome-email route. Without it the route degrades
// with a logged warning.
func (s *Server) SetMailer(mailer notify.Mailer, sourceEmail string) {
	s.mailer = mailer
	s.sourceEmail = sourceEmail
}

func (s *Server) SetWebSocketHub(hub *ws.Hub) {
	s.hub = hub
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.HealthCheck).Methods("GET", "OPTIONS")

	// Seed routes are registered before the {id} routes so they match first.
	router.HandleFunc("/orders/populateDatabaseWithTestData", s.SeedOrders).Methods("GET", "OPTIONS")
	router.HandleFunc("/orders", s.CreateOrder).Methods("POST", "OPTIONS")
	router.HandleFunc("/orders", s.ListOrders).Methods("GET", "OPTIONS")
	router.HandleFunc("/orders/{id}", s.GetOrder).Methods("GET", "OPTIONS")
	router.HandleFunc("/orders/{id}", s.UpdateOrder).Methods("PUT", "OPTIONS")
	router.HandleFunc("/orders/{id}", s.DeleteOrder).Methods("DELETE", "OPTIONS")

	router.HandleFunc("/devices/populateDatabaseWithTestData", s.SeedDevices).Methods("GET", "OPTIONS")
	router.HandleFunc("/devices", s.CreateDevice).Methods("POST", "OPTIONS")
	router.HandleFunc("/devices", s.ListDevices).Methods("GET", "OPTIONS")
	router.HandleFunc("/devices/{id}", s.GetDevice).Methods("GET", "OPTIONS")
	router.HandleFunc("/devices/{id}", s.UpdateDevice).Methods("PUT", "OPTIONS")
	router.HandleFunc("/devices/{id}", s.DeleteDevice).Methods("DELETE", "OPTIONS")

	router.HandleFunc("/operators", s.ListOperators).Methods("GET", "OPTIONS")
	router.HandleFunc("/operators/{id}", s.GetOperator).Methods("GET", "OPTIONS")

	router.HandleFunc("/reports", s.CreateReport).Methods("POST", "OPTIONS")
	router.HandleFunc("/reports", s.ListReports).Methods("GET", "OPTIONS")
	router.HandleFunc("/reports/{id}", s.GetReport).Methods("GET", "OPTIONS")

	router.HandleFunc("/emails/sendWelcomeEmail", s.SendWelcomeEmail).Methods("POST", "OPTIONS")

	if s.hub != nil {
		router.HandleFunc("/ws", s.hub.HandleWebSocket)
	}

	// Unrecognized routes get the same generic envelope as handler failures.
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Unsupported route")
		s.respondWithError(w)
	})

	router.Use(corsMiddleware())
	router.Use(loggingMiddleware(s.logger))

	return router
}

func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ordering-api",
	})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError is the one failure shape the API exposes: a generic 500.
// Details stay in the logs.
func (s *Server) respondWithError(w http.ResponseWriter) {
	s.respondWithJSON(w, http.StatusInternalServerError, map[string]string{
		"message": "some error happened",
	})
}

func corsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}
