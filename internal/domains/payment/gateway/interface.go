package gateway

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =====================================================
// CASHFREE GATEWAY INTERFACE
// =====================================================

// CashfreeGateway abstracts the Cashfree PG API so the service layer can be
// tested against a mock.
type CashfreeGateway interface {
	// CreateOrder creates an order at Cashfree and returns the provider's
	// identifiers plus a resolved payment URL. A non-2xx response surfaces
	// as *model.GatewayError, a network failure as *model.TransportError.
	// Single attempt, no automatic retry.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderCreationResult, error)

	// GetOrderStatus queries GET /orders/{order_id}. Same error contract
	// as CreateOrder.
	GetOrderStatus(ctx context.Context, externalOrderID string) (*OrderStatus, error)

	// VerifySignature checks the webhook HMAC over timestamp+rawBody.
	// Returns (false, nil-secret handling is the caller's concern).
	VerifySignature(signature, timestamp string, rawBody []byte) bool
}

// =====================================================
// REQUEST / RESPONSE TYPES
// =====================================================

// CreateOrderRequest is the wire payload for POST /orders.
type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     decimal.Decimal `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

// MarshalJSON renders order_amount as a plain JSON number. decimal.Decimal
// quotes its values by default, and Cashfree expects a number, not a string.
func (r CreateOrderRequest) MarshalJSON() ([]byte, error) {
	type plain CreateOrderRequest
	return json.Marshal(struct {
		plain
		OrderAmount json.Number `json:"order_amount"`
	}{
		plain:       plain(r),
		OrderAmount: json.Number(r.OrderAmount.String()),
	})
}

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type OrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

// OrderCreationResult is the decoded creation response. PaymentURL is
// already resolved through the link-priority rules; Raw keeps the full
// response for the ledger's gateway metadata.
type OrderCreationResult struct {
	CFOrderID        string
	OrderID          string
	OrderStatus      string
	PaymentSessionID string
	PaymentURL       string
	Raw              map[string]interface{}
}

// OrderStatus is the decoded GET /orders/{id} response.
type OrderStatus struct {
	CFOrderID     string          `json:"cf_order_id"`
	OrderID       string          `json:"order_id"`
	OrderStatus   string          `json:"order_status"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	OrderCurrency string          `json:"order_currency"`
}

// IsPaid reports settlement from the provider's point of view.
func (s *OrderStatus) IsPaid() bool {
	return s.OrderStatus == "PAID"
}

// IsFinal reports whether the provider will not change this status anymore.
func (s *OrderStatus) IsFinal() bool {
	switch s.OrderStatus {
	case "PAID", "EXPIRED", "TERMINATED":
		return true
	}
	return false
}
