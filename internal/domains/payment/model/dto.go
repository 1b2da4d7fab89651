package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// INITIATE PAYMENT REQUEST/RESPONSE
// =====================================================

// InitiatePaymentRequest starts a payment attempt for a reference document.
// Amount, currency and contact fields are optional overrides; the builder
// resolves them from the document first.
type InitiatePaymentRequest struct {
	ReferenceKind string `json:"reference_kind" binding:"required"`
	ReferenceID   string `json:"reference_id" binding:"required"`

	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`

	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

func (r InitiatePaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ReferenceKind,
			validation.Required.Error("reference_kind is required"),
			validation.In(toInterfaces(ValidReferenceKinds)...).Error("unknown reference_kind"),
		),
		validation.Field(&r.ReferenceID,
			validation.Required.Error("reference_id is required"),
			validation.Length(1, 140),
		),
		validation.Field(&r.Currency,
			validation.Length(3, 3).Error("currency must be a 3-letter code"),
		),
		validation.Field(&r.CustomerEmail,
			is.Email.Error("invalid email format"),
		),
	)
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

type InitiatePaymentResponse struct {
	PaymentOrderID  uuid.UUID       `json:"payment_order_id"`
	ExternalOrderID string          `json:"external_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	PaymentURL      string          `json:"payment_url"`
}

// CustomerIdentity is the caller identity extracted from a bearer token,
// when one was presented. Anonymous initiation is allowed; this only feeds
// contact-detail resolution.
type CustomerIdentity struct {
	ID    string
	Name  string
	Email string
}

// =====================================================
// PAYMENT STATUS RESPONSE
// =====================================================

type PaymentStatusResponse struct {
	PaymentOrderID  uuid.UUID       `json:"payment_order_id"`
	ExternalOrderID string          `json:"external_order_id"`
	ReferenceKind   string          `json:"reference_kind"`
	ReferenceID     string          `json:"reference_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	ReconcileSource *string         `json:"reconcile_source,omitempty"`
	ReconciledAt    *time.Time      `json:"reconciled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// =====================================================
// WEBHOOK PAYLOAD
// =====================================================

// CashfreeWebhookPayload is the provider-pushed notification body.
// Only the fields this service acts on are modelled; the raw body is kept
// verbatim in the webhook log.
type CashfreeWebhookPayload struct {
	Type string              `json:"type"`
	Data CashfreeWebhookData `json:"data"`
}

type CashfreeWebhookData struct {
	Order   CashfreeWebhookOrder   `json:"order"`
	Payment CashfreeWebhookPayment `json:"payment"`
}

type CashfreeWebhookOrder struct {
	OrderID       string          `json:"order_id"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	OrderCurrency string          `json:"order_currency"`
}

type CashfreeWebhookPayment struct {
	CFPaymentID   string          `json:"cf_payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentTime   string          `json:"payment_time"`
}
