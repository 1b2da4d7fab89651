package shared

// Task types handled by the background worker
const (
	TypeReconcileStaleOrders = "payment:reconcile_stale_orders"
	TypeRetryFailedWebhooks  = "payment:retry_failed_webhooks"
)

// Queue names
const (
	QueuePayment = "payment"
)

// ReconcileStaleOrdersPayload carries the batch limit for one sweep.
type ReconcileStaleOrdersPayload struct {
	Limit int `json:"limit"`
}

// RetryFailedWebhooksPayload carries the batch limit for one retry pass.
type RetryFailedWebhooksPayload struct {
	Limit int `json:"limit"`
}
