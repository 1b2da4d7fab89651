package service

import (
	"context"

	"github.com/google/uuid"

	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// PAYMENT SERVICE INTERFACE
// =====================================================
type PaymentService interface {
	// InitiatePayment resolves the reference document, creates an order at
	// Cashfree and records the ledger entry. Gateway failures surface before
	// anything is persisted.
	InitiatePayment(ctx context.Context, req model.InitiatePaymentRequest, identity *model.CustomerIdentity) (*model.InitiatePaymentResponse, error)

	// GetPaymentStatus returns the ledger view of one payment attempt.
	GetPaymentStatus(ctx context.Context, id uuid.UUID) (*model.PaymentStatusResponse, error)

	// HandleReturn reconciles a browser redirect from Cashfree and returns
	// the path the browser should land on. It never fails the redirect:
	// every error degrades to the generic failure page.
	HandleReturn(ctx context.Context, externalOrderID string) string

	// ProcessWebhook verifies, logs and applies one webhook delivery.
	ProcessWebhook(ctx context.Context, body []byte, signature, timestamp string) error

	// ReconcileStaleOrders re-queries Cashfree for Initiated entries older
	// than the stale window and applies any final status. Returns the number
	// of entries moved to a terminal status.
	ReconcileStaleOrders(ctx context.Context) (int, error)

	// RetryFailedWebhooks re-runs verified deliveries whose processing
	// failed. Returns the number of deliveries that succeeded this pass.
	RetryFailedWebhooks(ctx context.Context) (int, error)
}
