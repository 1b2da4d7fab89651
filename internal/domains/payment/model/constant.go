package model

// =====================================================
// LEDGER STATUS
// =====================================================
const (
	StatusInitiated = "Initiated"
	StatusPaid      = "Paid"
	StatusFailed    = "Failed"
)

var ValidStatuses = []string{
	StatusInitiated,
	StatusPaid,
	StatusFailed,
}

// IsTerminalStatus reports whether a ledger status accepts no further
// transitions under normal operation.
func IsTerminalStatus(status string) bool {
	return status == StatusPaid || status == StatusFailed
}

// =====================================================
// REFERENCE DOCUMENT KINDS
// =====================================================
const (
	ReferenceKindSalesOrder = "sales_order"
	ReferenceKindInvoice    = "invoice"
	ReferenceKindCart       = "cart"
)

var ValidReferenceKinds = []string{
	ReferenceKindSalesOrder,
	ReferenceKindInvoice,
	ReferenceKindCart,
}

// =====================================================
// CASHFREE PROVIDER CONSTANTS
// =====================================================
const (
	// Order statuses reported by GET /pg/orders/{id}
	CashfreeOrderStatusActive     = "ACTIVE"
	CashfreeOrderStatusPaid       = "PAID"
	CashfreeOrderStatusExpired    = "EXPIRED"
	CashfreeOrderStatusTerminated = "TERMINATED"

	// Webhook event types
	WebhookEventPaymentSuccess = "PAYMENT_SUCCESS"
	WebhookEventPaymentFailed  = "PAYMENT_FAILED"
	WebhookEventUserDropped    = "PAYMENT_USER_DROPPED"

	// External order id shape: "CF-" + sanitized reference id + "-" + random suffix
	ExternalOrderIDPrefix    = "CF-"
	ExternalOrderIDSuffixLen = 5
	// Cashfree caps order_id length
	ExternalOrderIDMaxLen = 50

	// Deliberate "never block payment on missing contact info" placeholders
	PlaceholderCustomerName  = "Guest Customer"
	PlaceholderCustomerPhone = "9999999999"

	DefaultCurrency = "INR"
)

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	ErrCodeConfiguration      = "PAY001"
	ErrCodeMissingAmount      = "PAY002"
	ErrCodeMissingPaymentLink = "PAY003"
	ErrCodeGateway            = "PAY004"
	ErrCodeTransport          = "PAY005"
	ErrCodeSignature          = "PAY006"
	ErrCodeNotFound           = "PAY007"
	ErrCodeInvalidReference   = "PAY008"
	ErrCodeUnauthorized       = "PAY009"
	ErrCodeInternal           = "PAY010"
)

// =====================================================
// RECONCILIATION SOURCES (audit trail)
// =====================================================
const (
	ReconcileSourceRedirect = "redirect"
	ReconcileSourceWebhook  = "webhook"
	ReconcileSourceJob      = "job"
)
