package models

// Order is the central record: one customer's device-shopping request and its
// lifecycle state. Identity fields and answers are fixed at creation; only the
// status and date fields change afterwards. Date fields hold DD/MM/YYYY strings
// (UTC) or "" when unset.
type Order struct {
	ID            string  `json:"id"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	Answers       Answers `json:"answers"`
	OrderStatus   string  `json:"orderStatus"`
	DatePaid      string  `json:"datePaid"`
	DateCompleted string  `json:"dateCompleted"`
	DateCreated   string  `json:"dateCreated"`
}

// Answers is the questionnaire payload captured when an order is submitted.
type Answers struct {
	Device       string   `json:"device"`
	OS           string   `json:"os"`
	Screen       string   `json:"screen"`
	TouchScreen  string   `json:"touchScreen"`
	Uses         []string `json:"uses"`
	Location     string   `json:"location"`
	Storage      string   `json:"storage"`
	Budget       string   `json:"budget"`
	FocusAspect1 string   `json:"focusAspect1"`
	FocusAspect2 string   `json:"focusAspect2"`
	FocusAspect3 string   `json:"focusAspect3"`
	Notes        string   `json:"notes"`
}

type CreateOrderRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Answers   Answers `json:"answers"`
}

// UpdateOrderRequest carries either a payment stamp or a status change,
// discriminated by Type ("payment" or "orderStatus").
type UpdateOrderRequest struct {
	Type        string `json:"type"`
	OrderStatus string `json:"orderStatus,omitempty"`
}
