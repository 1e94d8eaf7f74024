package main

import (
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Local stand-in for the external templated-mail service. Accepts send
// requests, logs them, and keeps them in memory so tests and demos can
// inspect what would have been delivered.

type sendRequest struct {
	Source       string   `json:"source"`
	ToAddresses  []string `json:"toAddresses"`
	ReplyTo      []string `json:"replyToAddresses"`
	Template     string   `json:"template"`
	TemplateData string   `json:"templateData"`
}

type sentMail struct {
	ID string `json:"id"`
	sendRequest
	ReceivedAt time.Time `json:"receivedAt"`
}

type mailStore struct {
	sent   []sentMail
	mutex  sync.RWMutex
	logger *logrus.Logger
}

func (s *mailStore) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.WithError(err).Error("Failed to decode send request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	mail := sentMail{
		ID:          uuid.New().String(),
		sendRequest: req,
		ReceivedAt:  time.Now(),
	}

	s.mutex.Lock()
	s.sent = append(s.sent, mail)
	total := len(s.sent)
	s.mutex.Unlock()

	s.logger.WithFields(logrus.Fields{
		"template":   req.Template,
		"to":         req.ToAddresses,
		"data":       req.TemplateData,
		"total_sent": total,
	}).Info("Mail accepted")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"messageId": mail.ID})
}

func (s *mailStore) handleSent(w http.ResponseWriter, r *http.Request) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(s.sent),
		"sent":  s.sent,
	})
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	port := getEnv("MAILER_PORT", "8083")
	store := &mailStore{logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/send", store.handleSend).Methods("POST")
	router.HandleFunc("/sent", store.handleSent).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "mailer-mock"})
	}).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting mailer mock")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down mailer mock...")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
