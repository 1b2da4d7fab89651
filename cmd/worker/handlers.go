package main

import (
	"github.com/hibiken/asynq"

	paymentJob "cashfree-gateway/internal/domains/payment/job"
	"cashfree-gateway/internal/shared"
	"cashfree-gateway/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	reconcileStale *paymentJob.ReconcileStaleHandler
	retryWebhooks  *paymentJob.RetryWebhooksHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		reconcileStale: paymentJob.NewReconcileStaleHandler(c.PaymentService),
		retryWebhooks:  paymentJob.NewRetryWebhooksHandler(c.PaymentService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeReconcileStaleOrders, h.reconcileStale.ProcessTask)
	mux.HandleFunc(shared.TypeRetryFailedWebhooks, h.retryWebhooks.ProcessTask)
}
