package events

import (
	"time"

	"github.com/hmctech/ordering/pkg/models"
)

const (
	OrderChangesTopic    = "orders.changed"
	OrderChangesDLQTopic = "orders.changed.dlq"
)

const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// ChangeEvent is one before/after record pair emitted for every order
// mutation. INSERT carries only the new image, REMOVE only the old one,
// MODIFY both. Consumers must evaluate each event solely from the images it
// carries; ordering between events is not guaranteed.
type ChangeEvent struct {
	EventID   string        `json:"event_id"`
	EventName string        `json:"event_name"`
	OldImage  *models.Order `json:"old_image,omitempty"`
	NewImage  *models.Order `json:"new_image,omitempty"`
	EventTime time.Time     `json:"event_time"`
}

// Key returns the order id the event belongs to, used as the Kafka message
// key so all events for one order land on the same partition.
func (e ChangeEvent) Key() string {
	if e.NewImage != nil {
		return e.NewImage.ID
	}
	if e.OldImage != nil {
		return e.OldImage.ID
	}
	return e.EventID
}
