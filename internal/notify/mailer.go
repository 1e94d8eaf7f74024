package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/circuitbreaker"
)

// Mailer dispatches one notification intent. Delivery is fire-and-forget from
// the caller's perspective: errors are logged, never surfaced to the customer.
type Mailer interface {
	SendTemplated(ctx context.Context, intent Intent) error
}

// sendRequest is the wire format of the external templated-mail service.
// TemplateData is a JSON-encoded string, matching the template engine's input.
type sendRequest struct {
	Source       string   `json:"source"`
	ToAddresses  []string `json:"toAddresses"`
	ReplyTo      []string `json:"replyToAddresses"`
	Template     string   `json:"template"`
	TemplateData string   `json:"templateData"`
}

// Client talks to the templated-mail service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) SendTemplated(ctx context.Context, intent Intent) error {
	templateData, err := json.Marshal(intent.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal template data: %w", err)
	}

	payload := sendRequest{
		Source:       intent.Source,
		ToAddresses:  intent.To,
		ReplyTo:      intent.ReplyTo,
		Template:     intent.Template,
		TemplateData: string(templateData),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/send", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to mailer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mailer returned error status: %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{
		"template": intent.Template,
		"status":   resp.StatusCode,
	}).Info("Mailer accepted send request")

	return nil
}

// WithBreaker guards a mailer with a circuit breaker so a dead mail service
// fails fast instead of stalling batch processing on timeouts.
func WithBreaker(inner Mailer, cb *circuitbreaker.CircuitBreaker) Mailer {
	return &breakerMailer{inner: inner, cb: cb}
}

type breakerMailer struct {
	inner Mailer
	cb    *circuitbreaker.CircuitBreaker
}

func (m *breakerMailer) SendTemplated(ctx context.Context, intent Intent) error {
	return m.cb.Execute(func() error {
		return m.inner.SendTemplated(ctx, intent)
	})
}
