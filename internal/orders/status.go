package orders

import (
	"fmt"
	"time"
)

// InvalidStatusError reports a status-update payload whose target status is
// not one of the four known literals. The order is left unchanged.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %s", e.Value)
}

// Status is the order lifecycle state. Transitions are driven entirely by
// explicit status updates; any status may move to any other, but unknown
// literals are rejected before storage is touched.
type Status string

const (
	StatusIncomplete Status = "INCOMPLETE"
	StatusBusy       Status = "BUSY"
	StatusComplete   Status = "COMPLETE"
	StatusError      Status = "ERROR"
)

// ParseStatus validates a raw status literal from a request payload.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusIncomplete, StatusBusy, StatusComplete, StatusError:
		return Status(raw), nil
	}
	return "", &InvalidStatusError{Value: raw}
}

// Today returns the current UTC date in the DD/MM/YYYY form stored on order
// date fields.
func Today() string {
	return time.Now().UTC().Format("02/01/2006")
}

// completionDate pairs dateCompleted with a status: the field is non-empty
// exactly when the order is COMPLETE. Both values are always written in the
// same update so the pairing holds under concurrent mutations.
func completionDate(s Status) string {
	if s == StatusComplete {
		return Today()
	}
	return ""
}
