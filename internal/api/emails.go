package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/notify"
)

type welcomeEmailRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// SendWelcomeEmail requests a welcome mail for a newly signed-up customer.
// The send is fire-and-forget: the response only acknowledges the request,
// delivery results end up in the logs.
func (s *Server) SendWelcomeEmail(w http.ResponseWriter, r *http.Request) {
	var req welcomeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.WithError(err).Error("Failed to decode welcome email request")
		s.respondWithError(w)
		return
	}

	if s.mailer == nil || s.sourceEmail == "" {
		s.logger.WithField("missing", "mailer configuration").Error("Welcome email not sent")
		s.respondWithError(w)
		return
	}

	intent := notify.Intent{
		Source:   s.sourceEmail,
		To:       []string{req.Email},
		ReplyTo:  []string{s.sourceEmail},
		Template: notify.TemplateWelcome,
		Data: map[string]string{
			"name": req.FirstName + " " + req.LastName,
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.mailer.SendTemplated(ctx, intent); err != nil {
			s.logger.WithError(err).WithField("email", req.Email).Error("Unable to send welcome email")
			return
		}
		s.logger.WithField("email", req.Email).Info("Welcome email sent")
	}()

	s.logger.WithFields(logrus.Fields{
		"email": req.Email,
	}).Info("Welcome email requested")

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome email requested",
	})
}
