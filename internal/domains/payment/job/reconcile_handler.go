package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"cashfree-gateway/internal/domains/payment/service"
	"cashfree-gateway/pkg/logger"
)

// =====================================================
// STALE ORDER RECONCILIATION JOB
// =====================================================

// ReconcileStaleHandler sweeps Initiated ledger entries the redirect and
// webhook paths never closed out and asks Cashfree for their final status.
type ReconcileStaleHandler struct {
	paymentService service.PaymentService
}

func NewReconcileStaleHandler(paymentService service.PaymentService) *ReconcileStaleHandler {
	return &ReconcileStaleHandler{paymentService: paymentService}
}

// ProcessTask runs one reconciliation sweep.
func (h *ReconcileStaleHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	reconciled, err := h.paymentService.ReconcileStaleOrders(ctx)
	if err != nil {
		logger.Error("ReconcileStaleOrders: sweep failed", err)
		return fmt.Errorf("reconcile stale orders: %w", err)
	}

	logger.Info("ReconcileStaleOrders: sweep finished", map[string]interface{}{
		"reconciled": reconciled,
	})
	return nil
}

// =====================================================
// WEBHOOK RETRY JOB
// =====================================================

// RetryWebhooksHandler re-runs verified webhook deliveries whose processing
// failed, typically because the ledger row was written after the delivery
// arrived or the database was briefly unavailable.
type RetryWebhooksHandler struct {
	paymentService service.PaymentService
}

func NewRetryWebhooksHandler(paymentService service.PaymentService) *RetryWebhooksHandler {
	return &RetryWebhooksHandler{paymentService: paymentService}
}

// ProcessTask runs one retry pass.
func (h *RetryWebhooksHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	// The payload limit is advisory; the service caps the batch itself.
	var payload struct {
		Limit int `json:"limit"`
	}
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// A broken payload never fixes itself, skip retrying the task.
			logger.Error("RetryFailedWebhooks: failed to unmarshal payload", err)
			return fmt.Errorf("unmarshal RetryFailedWebhooks payload: %w", err)
		}
	}

	succeeded, err := h.paymentService.RetryFailedWebhooks(ctx)
	if err != nil {
		logger.Error("RetryFailedWebhooks: pass failed", err)
		return fmt.Errorf("retry failed webhooks: %w", err)
	}

	if succeeded > 0 {
		logger.Info("RetryFailedWebhooks: pass finished", map[string]interface{}{
			"succeeded": succeeded,
		})
	}
	return nil
}
