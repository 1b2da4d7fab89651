package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// PAYMENT ORDER REPOSITORY INTERFACE
// =====================================================
type OrderRepoInterface interface {
	// Create persists a new ledger entry
	Create(ctx context.Context, order *model.PaymentOrder) error

	// GetByID gets a ledger entry by its local id
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentOrder, error)

	// GetByExternalOrderID looks an entry up by the id echoed back by the
	// provider. With duplicates, the most recently created non-terminal
	// entry wins; zero matches return model.ErrOrderNotFound.
	GetByExternalOrderID(ctx context.Context, externalOrderID string) (*model.PaymentOrder, error)

	// GetLiveByReference returns the latest non-terminal entry for a
	// reference document, or model.ErrOrderNotFound.
	GetLiveByReference(ctx context.Context, kind, id string) (*model.PaymentOrder, error)

	// Transition applies a status change. Returns false when the row was
	// already in the requested status (idempotent re-delivery).
	Transition(ctx context.Context, id uuid.UUID, newStatus, source string) (bool, error)

	// ListStaleInitiated lists Initiated entries older than the cutoff,
	// oldest first, for the background reconciliation job.
	ListStaleInitiated(ctx context.Context, olderThan time.Time, limit int) ([]*model.PaymentOrder, error)
}

// =====================================================
// WEBHOOK LOG REPOSITORY INTERFACE
// =====================================================
type WebhookRepoInterface interface {
	// Create records one webhook delivery
	Create(ctx context.Context, log *model.WebhookLog) error

	// MarkAsProcessed marks a delivery as fully handled
	MarkAsProcessed(ctx context.Context, id uuid.UUID) error

	// MarkProcessingError records a post-verification failure
	MarkProcessingError(ctx context.Context, id uuid.UUID, errorMsg string) error

	// CheckIdempotency reports whether a delivery for (event, external
	// order id) was already processed
	CheckIdempotency(ctx context.Context, eventType, externalOrderID string) (bool, error)

	// GetFailedWebhooks lists valid but unprocessed deliveries for retry
	GetFailedWebhooks(ctx context.Context, limit int) ([]*model.WebhookLog, error)
}
