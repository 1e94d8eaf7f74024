package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/events"
	"github.com/hmctech/ordering/pkg/models"
)

// Store is the key-value table the service persists orders into. Updates are
// field-level merges applied atomically by the store, which returns the record
// image before and after the merge.
type Store interface {
	PutOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderFields(ctx context.Context, id string, fields map[string]any) (old, updated *models.Order, err error)
	DeleteOrder(ctx context.Context, id string) (*models.Order, error)
}

// Service owns the order lifecycle: every mutation goes through the store and
// is published as a before/after change event. Publish failures are logged and
// never fail the originating request; redelivery is the stream's concern.
type Service struct {
	store     Store
	publisher events.Publisher
	logger    *logrus.Logger
}

func NewService(store Store, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	order := &models.Order{
		ID:          uuid.New().String(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Answers:     req.Answers,
		OrderStatus: string(StatusIncomplete),
		DateCreated: Today(),
	}

	if err := s.store.PutOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.publish(events.ChangeEvent{
		EventName: events.EventInsert,
		NewImage:  order,
	})

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"email":    order.Email,
	}).Info("Order created")

	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}

// MarkPaid stamps datePaid with today's date. The payment sub-state is
// orthogonal to orderStatus and is never cleared.
func (s *Service) MarkPaid(ctx context.Context, id string) (*models.Order, error) {
	old, updated, err := s.store.UpdateOrderFields(ctx, id, map[string]any{
		"datePaid": Today(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	s.publish(events.ChangeEvent{
		EventName: events.EventModify,
		OldImage:  old,
		NewImage:  updated,
	})

	s.logger.WithFields(logrus.Fields{
		"order_id":  id,
		"date_paid": updated.DatePaid,
	}).Info("Order payment status updated")

	return updated, nil
}

// UpdateStatus moves an order to the given status. orderStatus and
// dateCompleted are written in a single store update so dateCompleted is
// non-empty exactly when the order is COMPLETE. An unknown literal is rejected
// before the store is touched.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) (*models.Order, error) {
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	old, updated, err := s.store.UpdateOrderFields(ctx, id, map[string]any{
		"orderStatus":   string(status),
		"dateCompleted": completionDate(status),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.publish(events.ChangeEvent{
		EventName: events.EventModify,
		OldImage:  old,
		NewImage:  updated,
	})

	s.logger.WithFields(logrus.Fields{
		"order_id":   id,
		"old_status": old.OrderStatus,
		"new_status": updated.OrderStatus,
	}).Info("Order status updated")

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	old, err := s.store.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.publish(events.ChangeEvent{
		EventName: events.EventRemove,
		OldImage:  old,
	})

	s.logger.WithField("order_id", id).Info("Order deleted")
	return nil
}

func (s *Service) publish(event events.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderChange(event); err != nil {
		// Don't fail the request, just log the error.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_name": event.EventName,
			"order_id":   event.Key(),
		}).Error("Failed to publish order change event")
	}
}
