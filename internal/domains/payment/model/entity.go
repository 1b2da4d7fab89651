package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// PAYMENT ORDER ENTITY (ledger entry)
// =====================================================

// PaymentOrder is the local record of one payment attempt. It is created
// right after a successful order creation at Cashfree and mutated only by
// the reconciliation paths (redirect-return, webhook, background job).
type PaymentOrder struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Identifier generated locally, sent to and echoed back by Cashfree.
	ExternalOrderID string `json:"external_order_id" db:"external_order_id"`

	// Back-reference to the business document this payment is for.
	// Never owned by this service.
	ReferenceKind string `json:"reference_kind" db:"reference_kind"`
	ReferenceID   string `json:"reference_id" db:"reference_id"`

	// Copied at creation time, immutable afterwards.
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Currency string          `json:"currency" db:"currency"`

	// Customer block sent to the provider.
	CustomerID    string `json:"customer_id" db:"customer_id"`
	CustomerName  string `json:"customer_name" db:"customer_name"`
	CustomerEmail string `json:"customer_email" db:"customer_email"`
	CustomerPhone string `json:"customer_phone" db:"customer_phone"`

	// Initiated -> Paid | Failed. Terminal statuses accept no transitions.
	Status string `json:"status" db:"status"`

	// Opaque mapping captured from the provider's creation response
	// (cf_order_id, payment_session_id, payment link).
	GatewayMetadata map[string]interface{} `json:"gateway_metadata,omitempty" db:"gateway_metadata"`

	// Last reconciliation detail (source, provider status).
	ReconcileSource *string    `json:"reconcile_source,omitempty" db:"reconcile_source"`
	ReconciledAt    *time.Time `json:"reconciled_at,omitempty" db:"reconciled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the entry has reached Paid or Failed.
func (p *PaymentOrder) IsTerminal() bool {
	return IsTerminalStatus(p.Status)
}

// IsPaid reports whether the entry is settled.
func (p *PaymentOrder) IsPaid() bool {
	return p.Status == StatusPaid
}

// StaleAfter reports whether an Initiated entry is older than the given
// window and should be picked up by the background reconciliation job.
func (p *PaymentOrder) StaleAfter(window time.Duration) bool {
	if p.IsTerminal() {
		return false
	}
	return time.Since(p.CreatedAt) > window
}

// =====================================================
// WEBHOOK LOG ENTITY
// =====================================================

// WebhookLog records one webhook delivery. Every delivery is logged before
// any state change so failed processing can be retried by the worker.
type WebhookLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PaymentOrderID *uuid.UUID `json:"payment_order_id,omitempty" db:"payment_order_id"`

	EventType       string  `json:"event_type" db:"event_type"`
	ExternalOrderID *string `json:"external_order_id,omitempty" db:"external_order_id"`

	// Raw request data, kept verbatim for signature re-verification.
	Body      []byte  `json:"-" db:"body"`
	Signature *string `json:"signature,omitempty" db:"signature"`
	Timestamp *string `json:"timestamp,omitempty" db:"timestamp"`

	IsValid         *bool   `json:"is_valid,omitempty" db:"is_valid"`
	IsProcessed     bool    `json:"is_processed" db:"is_processed"`
	ProcessingError *string `json:"processing_error,omitempty" db:"processing_error"`

	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

// MarkAsInvalid marks the delivery as rejected by signature verification.
func (w *WebhookLog) MarkAsInvalid(reason string) {
	valid := false
	w.IsValid = &valid
	w.ProcessingError = &reason
}

// MarkProcessingError records a failure after the signature was accepted.
func (w *WebhookLog) MarkProcessingError(err error) {
	msg := err.Error()
	w.ProcessingError = &msg
}
