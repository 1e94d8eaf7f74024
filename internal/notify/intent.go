package notify

// Template names registered with the external templated-mail service.
const (
	TemplateWelcome        = "HMCTECH_WELCOME"
	TemplateConfirmOrder   = "HMCTECH_CONFIRM_ORDER"
	TemplateConfirmPayment = "HMCTECH_CONFIRM_PAYMENT"
	TemplateReportReady    = "HMCTECH_NOTIFY_REPORT_READY"
	TemplateAdminOrderPaid = "HMCTECH_NOTIFY_ADMIN_ORDER_PAID"
)

// Intent is one requested email send: recipient, template and payload,
// decoupled from delivery. Intents are built fresh per change record and
// dispatched independently; one failed send never blocks another.
type Intent struct {
	Source   string            `json:"source"`
	To       []string          `json:"to"`
	ReplyTo  []string          `json:"replyTo"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}
