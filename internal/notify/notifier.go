package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/events"
	"github.com/hmctech/ordering/internal/orders"
	"github.com/hmctech/ordering/pkg/models"
)

// Config is the environment-supplied notification configuration. A missing
// value degrades the paths that need it (logged per record) rather than
// stopping the notifier.
type Config struct {
	SourceEmail string
	AdminEmail  string
	WebsiteURL  string
}

// Notifier turns order change events into notification intents and dispatches
// them through a Mailer.
type Notifier struct {
	cfg    Config
	mailer Mailer
	logger *logrus.Logger
}

func NewNotifier(cfg Config, mailer Mailer, logger *logrus.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		mailer: mailer,
		logger: logger,
	}
}

// Evaluate derives the notification intents for a single change event.
//
//   - INSERT: exactly one order-confirmation intent to the customer.
//   - MODIFY: a payment-confirmation intent (plus an admin copy when an admin
//     address is configured) when datePaid changed, and a report-ready intent
//     when orderStatus changed to COMPLETE. Both checks are independent and
//     may fire from the same event.
//   - REMOVE: no intents.
//
// A malformed event returns an error naming what is missing; the caller skips
// that record and keeps going.
func (n *Notifier) Evaluate(event events.ChangeEvent) ([]Intent, error) {
	switch event.EventName {
	case events.EventInsert:
		if event.NewImage == nil {
			return nil, fmt.Errorf("insert event %s has no new image", event.EventID)
		}
		intent, err := n.orderConfirmation(event.NewImage)
		if err != nil {
			return nil, err
		}
		return []Intent{intent}, nil

	case events.EventModify:
		if event.OldImage == nil {
			return nil, fmt.Errorf("modify event %s has no old image", event.EventID)
		}
		if event.NewImage == nil {
			return nil, fmt.Errorf("modify event %s has no new image", event.EventID)
		}

		var intents []Intent

		if event.NewImage.DatePaid != event.OldImage.DatePaid {
			intent, err := n.customerIntent(event.NewImage, TemplateConfirmPayment)
			if err != nil {
				return nil, err
			}
			intents = append(intents, intent)

			if n.cfg.AdminEmail != "" {
				intents = append(intents, n.adminOrderPaid(event.NewImage))
			}
		}

		if event.NewImage.OrderStatus != event.OldImage.OrderStatus &&
			event.NewImage.OrderStatus == string(orders.StatusComplete) {
			intent, err := n.customerIntent(event.NewImage, TemplateReportReady)
			if err != nil {
				return nil, err
			}
			intents = append(intents, intent)
		}

		return intents, nil

	case events.EventRemove:
		n.logger.WithField("order_id", event.Key()).Info("Order removed, no notification")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown event name %q", event.EventName)
	}
}

// ProcessBatch evaluates every record in the batch, then dispatches all
// collected intents concurrently and waits for every send to finish before
// returning. One malformed record or failed send never aborts the rest of the
// batch. The return value is the number of records evaluated successfully.
func (n *Notifier) ProcessBatch(ctx context.Context, batch []events.ChangeEvent) int {
	var intents []Intent
	processed := 0

	for _, event := range batch {
		derived, err := n.Evaluate(event)
		if err != nil {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"event_id":   event.EventID,
				"event_name": event.EventName,
			}).Error("Skipping change record")
			continue
		}
		processed++
		intents = append(intents, derived...)
	}

	n.dispatch(ctx, intents)

	return processed
}

// HandleOrderChange makes the notifier a change-stream consumer handler: one
// event in, its intents dispatched before returning. Only evaluation failures
// (malformed records) propagate; delivery failures are logged and absorbed.
func (n *Notifier) HandleOrderChange(event events.ChangeEvent) error {
	intents, err := n.Evaluate(event)
	if err != nil {
		return err
	}
	n.dispatch(context.Background(), intents)
	return nil
}

// IsRetryable reports whether a processing error is worth redelivering.
// Evaluation failures are structural, so redelivery cannot fix them.
func (n *Notifier) IsRetryable(err error) bool {
	return false
}

// dispatch sends every intent concurrently and waits for all of them. Each
// send stands alone: a failure is logged and does not block the others.
func (n *Notifier) dispatch(ctx context.Context, intents []Intent) {
	var wg sync.WaitGroup
	for _, intent := range intents {
		wg.Add(1)
		go func(intent Intent) {
			defer wg.Done()
			if err := n.mailer.SendTemplated(ctx, intent); err != nil {
				n.logger.WithError(err).WithFields(logrus.Fields{
					"template": intent.Template,
					"to":       intent.To,
				}).Error("Failed to send notification")
				return
			}
			n.logger.WithFields(logrus.Fields{
				"template": intent.Template,
				"to":       intent.To,
			}).Info("Notification sent")
		}(intent)
	}
	wg.Wait()
}

func (n *Notifier) orderConfirmation(order *models.Order) (Intent, error) {
	intent, err := n.customerIntent(order, TemplateConfirmOrder)
	if err != nil {
		return Intent{}, err
	}
	if n.cfg.WebsiteURL != "" {
		intent.Data["orderUrl"] = fmt.Sprintf("%s/orders/%s", n.cfg.WebsiteURL, order.ID)
	}
	return intent, nil
}

// customerIntent builds a {name, orderId} intent addressed to the order's
// customer, validating every field the send depends on.
func (n *Notifier) customerIntent(order *models.Order, template string) (Intent, error) {
	var missing []string
	if order.ID == "" {
		missing = append(missing, "orderId")
	}
	if order.Email == "" {
		missing = append(missing, "email")
	}
	if order.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if order.LastName == "" {
		missing = append(missing, "lastName")
	}
	if n.cfg.SourceEmail == "" {
		missing = append(missing, "sourceEmail")
	}
	if len(missing) > 0 {
		return Intent{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	return Intent{
		Source:   n.cfg.SourceEmail,
		To:       []string{order.Email},
		ReplyTo:  []string{n.cfg.SourceEmail},
		Template: template,
		Data: map[string]string{
			"name":    order.FirstName + " " + order.LastName,
			"orderId": order.ID,
		},
	}, nil
}

func (n *Notifier) adminOrderPaid(order *models.Order) Intent {
	return Intent{
		Source:   n.cfg.SourceEmail,
		To:       []string{n.cfg.AdminEmail},
		ReplyTo:  []string{n.cfg.SourceEmail},
		Template: TemplateAdminOrderPaid,
		Data: map[string]string{
			"name":    order.FirstName + " " + order.LastName,
			"orderId": order.ID,
		},
	}
}
