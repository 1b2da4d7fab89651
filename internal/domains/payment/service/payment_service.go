package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cashfree-gateway/internal/domains/payment/gateway"
	"cashfree-gateway/internal/domains/payment/model"
	"cashfree-gateway/internal/domains/payment/reference"
	repo "cashfree-gateway/internal/domains/payment/repository"
	"cashfree-gateway/pkg/cache"
	"cashfree-gateway/pkg/logger"
)

// =====================================================
// PAYMENT SERVICE IMPLEMENTATION
// =====================================================

// Config carries the service-level knobs resolved from the environment.
type Config struct {
	Callbacks CallbackURLs

	// ProductionMode decides the fail-closed behaviour when no webhook
	// secret is configured.
	ProductionMode   bool
	WebhookSecretSet bool

	// Browser destinations when the reference document cannot say.
	SuccessPath string
	FailurePath string

	// Provider status lookups during the redirect/webhook race window are
	// served from cache for final statuses.
	StatusCacheTTL time.Duration

	// Background reconciliation.
	StaleWindow    time.Duration
	ReconcileBatch int
}

type paymentService struct {
	orderRepo   repo.OrderRepoInterface
	webhookRepo repo.WebhookRepoInterface

	gateway    gateway.CashfreeGateway
	references *reference.Registry
	cache      cache.Cache

	cfg Config
}

func NewPaymentService(
	orderRepo repo.OrderRepoInterface,
	webhookRepo repo.WebhookRepoInterface,
	gw gateway.CashfreeGateway,
	references *reference.Registry,
	statusCache cache.Cache,
	cfg Config,
) PaymentService {
	if cfg.SuccessPath == "" {
		cfg.SuccessPath = "/payment-success"
	}
	if cfg.FailurePath == "" {
		cfg.FailurePath = "/payment-failed"
	}
	if cfg.StatusCacheTTL <= 0 {
		cfg.StatusCacheTTL = 30 * time.Second
	}
	if cfg.StaleWindow <= 0 {
		cfg.StaleWindow = 30 * time.Minute
	}
	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = 100
	}

	return &paymentService{
		orderRepo:   orderRepo,
		webhookRepo: webhookRepo,
		gateway:     gw,
		references:  references,
		cache:       statusCache,
		cfg:         cfg,
	}
}

// =====================================================
// INITIATE PAYMENT
// =====================================================

// InitiatePayment starts a payment attempt for a reference document
//
// Business Logic Flow:
// 1. Validate request
// 2. Resolve the reference document through the registry
// 3. Reuse the latest live (non-terminal) ledger entry if it still carries
//    a payment link
// 4. Build the Cashfree order payload
// 5. Create the order at Cashfree (no ledger entry on failure)
// 6. Record the ledger entry with the creation response
//
// Edge Cases:
// - Unknown reference kind -> PAY008
// - No resolvable positive amount -> PAY002
// - Gateway rejection -> *model.GatewayError, nothing persisted
// - Creation response without a payment link -> PAY003, nothing persisted
func (s *paymentService) InitiatePayment(
	ctx context.Context,
	req model.InitiatePaymentRequest,
	identity *model.CustomerIdentity,
) (*model.InitiatePaymentResponse, error) {
	// Step 1: Validate request
	if err := req.Validate(); err != nil {
		return nil, model.NewPaymentError(model.ErrCodeInvalidReference, "Invalid request", err)
	}

	// Step 2: Resolve the reference document
	doc, err := s.references.Resolve(ctx, req.ReferenceKind, req.ReferenceID)
	if err != nil {
		if errors.Is(err, model.ErrInvalidReference) {
			return nil, model.NewInvalidReferenceError(req.ReferenceKind)
		}
		return nil, err
	}

	// Step 3: Reuse a live entry instead of piling up provider orders
	if live, err := s.orderRepo.GetLiveByReference(ctx, req.ReferenceKind, req.ReferenceID); err == nil {
		if url := metadataString(live.GatewayMetadata, "payment_url"); url != "" {
			logger.Info("Reusing live payment order", map[string]interface{}{
				"payment_order_id":  live.ID.String(),
				"external_order_id": live.ExternalOrderID,
			})
			return &model.InitiatePaymentResponse{
				PaymentOrderID:  live.ID,
				ExternalOrderID: live.ExternalOrderID,
				Amount:          live.Amount,
				Currency:        live.Currency,
				Status:          live.Status,
				PaymentURL:      url,
			}, nil
		}
	} else if !errors.Is(err, model.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to check live payment order: %w", err)
	}

	// Step 4: Build the order payload
	payload, err := BuildOrder(doc, req, identity, s.cfg.Callbacks)
	if err != nil {
		return nil, err
	}

	// Step 5: Create the order at Cashfree. Failures surface untouched so
	// the caller sees the exact gateway/transport error; the ledger stays
	// clean of attempts that never existed at the provider.
	result, err := s.gateway.CreateOrder(ctx, *payload)
	if err != nil {
		return nil, err
	}

	// Step 6: Record the ledger entry
	now := time.Now()
	order := &model.PaymentOrder{
		ID:              uuid.New(),
		ExternalOrderID: payload.OrderID,
		ReferenceKind:   doc.Kind(),
		ReferenceID:     doc.ID(),
		Amount:          payload.OrderAmount,
		Currency:        payload.OrderCurrency,
		CustomerID:      payload.CustomerDetails.CustomerID,
		CustomerName:    payload.CustomerDetails.CustomerName,
		CustomerEmail:   payload.CustomerDetails.CustomerEmail,
		CustomerPhone:   payload.CustomerDetails.CustomerPhone,
		Status:          model.StatusInitiated,
		GatewayMetadata: map[string]interface{}{
			"cf_order_id":        result.CFOrderID,
			"payment_session_id": result.PaymentSessionID,
			"payment_url":        result.PaymentURL,
			"order_status":       result.OrderStatus,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// The provider order exists but the ledger write failed. The stale
		// reconciliation job cannot see it, so keep a loud trace.
		logger.Error("Ledger write failed after order creation at Cashfree", err)
		return nil, fmt.Errorf("failed to record payment order %s: %w", payload.OrderID, err)
	}

	logger.Info("Payment initiated", map[string]interface{}{
		"payment_order_id":  order.ID.String(),
		"external_order_id": order.ExternalOrderID,
		"reference_kind":    order.ReferenceKind,
		"reference_id":      order.ReferenceID,
		"amount":            order.Amount.String(),
	})

	return &model.InitiatePaymentResponse{
		PaymentOrderID:  order.ID,
		ExternalOrderID: order.ExternalOrderID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          order.Status,
		PaymentURL:      result.PaymentURL,
	}, nil
}

// =====================================================
// PAYMENT STATUS
// =====================================================

func (s *paymentService) GetPaymentStatus(ctx context.Context, id uuid.UUID) (*model.PaymentStatusResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, model.NewOrderNotFoundError(id.String())
		}
		return nil, err
	}

	return &model.PaymentStatusResponse{
		PaymentOrderID:  order.ID,
		ExternalOrderID: order.ExternalOrderID,
		ReferenceKind:   order.ReferenceKind,
		ReferenceID:     order.ReferenceID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          order.Status,
		ReconcileSource: order.ReconcileSource,
		ReconciledAt:    order.ReconciledAt,
		CreatedAt:       order.CreatedAt,
	}, nil
}

// =====================================================
// REDIRECT RETURN
// =====================================================

// HandleReturn reconciles the browser redirect from Cashfree
//
// Business Logic Flow:
// 1. Look up the ledger entry by external order id
// 2. Re-query Cashfree for the authoritative order status
// 3. Apply the status transition (no-op when already there)
// 4. Resolve the redirect destination from the reference document
//
// The browser never sees an error page from this path: lookup and provider
// failures degrade to the generic failure destination.
func (s *paymentService) HandleReturn(ctx context.Context, externalOrderID string) string {
	if externalOrderID == "" {
		return s.cfg.FailurePath
	}

	// Step 1: Look up the ledger entry
	entry, err := s.orderRepo.GetByExternalOrderID(ctx, externalOrderID)
	if err != nil {
		logger.Warn("Redirect for unknown payment order", map[string]interface{}{
			"external_order_id": externalOrderID,
		})
		return s.cfg.FailurePath
	}

	// Step 2: Re-query Cashfree. The redirect query string is never
	// trusted; only the provider's answer decides.
	status, err := s.fetchOrderStatus(ctx, externalOrderID)
	if err != nil {
		logger.Error("Status query failed during redirect return", err)
		// Fall back to whatever the ledger already knows.
		return s.redirectPath(ctx, entry, entry.IsPaid())
	}

	// Step 3: Apply the transition
	succeeded := status.IsPaid()
	if newStatus := ledgerStatusFor(status.OrderStatus); newStatus != "" {
		if err := s.applyTransition(ctx, entry, newStatus, model.ReconcileSourceRedirect); err != nil {
			logger.Error("Transition failed during redirect return", err)
		}
	}

	// Step 4: Resolve the destination
	return s.redirectPath(ctx, entry, succeeded)
}

// redirectPath asks the reference document where the browser should land,
// falling back to the generic destinations.
func (s *paymentService) redirectPath(ctx context.Context, entry *model.PaymentOrder, succeeded bool) string {
	doc, err := s.references.Resolve(ctx, entry.ReferenceKind, entry.ReferenceID)
	if err != nil {
		if succeeded {
			return s.cfg.SuccessPath
		}
		return s.cfg.FailurePath
	}
	return doc.RedirectPath(succeeded)
}

// =====================================================
// WEBHOOK PROCESSING
// =====================================================

// ProcessWebhook verifies, logs and applies one webhook delivery
//
// Business Logic Flow:
// 1. Parse the payload for event type and external order id
// 2. Verify the HMAC signature over timestamp + raw body
// 3. Persist the webhook log before touching any state
// 4. Skip deliveries already processed for the same (event, order)
// 5. Apply the status transition for recognized events
//
// Edge Cases:
// - No secret configured: rejected in production, accepted with a degraded
//   trust warning otherwise
// - Unknown external order id -> PAY007, recorded on the log for retry
// - Unrecognized event type -> acknowledged as a no-op
func (s *paymentService) ProcessWebhook(ctx context.Context, body []byte, signature, timestamp string) error {
	// Step 1: Parse first so even rejected deliveries are logged with
	// their event metadata.
	var payload model.CashfreeWebhookPayload
	parseErr := json.Unmarshal(body, &payload)

	entry := &model.WebhookLog{
		ID:         uuid.New(),
		EventType:  payload.Type,
		Body:       body,
		ReceivedAt: time.Now(),
	}
	if signature != "" {
		entry.Signature = &signature
	}
	if timestamp != "" {
		entry.Timestamp = &timestamp
	}
	if id := payload.Data.Order.OrderID; id != "" {
		entry.ExternalOrderID = &id
	}

	// Step 2: Verify the signature
	if !s.cfg.WebhookSecretSet {
		if s.cfg.ProductionMode {
			entry.MarkAsInvalid("webhook secret not configured")
			s.persistWebhookLog(ctx, entry)
			return model.NewSignatureError()
		}
		logger.Warn("Webhook secret not configured, accepting unverified delivery", map[string]interface{}{
			"event_type": payload.Type,
		})
	} else if !s.gateway.VerifySignature(signature, timestamp, body) {
		entry.MarkAsInvalid("signature verification failed")
		s.persistWebhookLog(ctx, entry)
		return model.NewSignatureError()
	} else {
		valid := true
		entry.IsValid = &valid
	}

	// Step 3: Log before any state change
	s.persistWebhookLog(ctx, entry)

	if parseErr != nil {
		err := fmt.Errorf("failed to parse webhook payload: %w", parseErr)
		s.recordWebhookError(ctx, entry, err)
		return err
	}

	// Step 4: Idempotency gate. Only processed deliveries count, so the
	// log row written above does not shadow itself.
	if payload.Type != "" && payload.Data.Order.OrderID != "" {
		processed, err := s.webhookRepo.CheckIdempotency(ctx, payload.Type, payload.Data.Order.OrderID)
		if err != nil {
			logger.Error("Idempotency check failed", err)
		} else if processed {
			logger.Info("Duplicate webhook delivery, acknowledging", map[string]interface{}{
				"event_type":        payload.Type,
				"external_order_id": payload.Data.Order.OrderID,
			})
			return s.webhookRepo.MarkAsProcessed(ctx, entry.ID)
		}
	}

	// Step 5: Apply the event
	return s.applyWebhookEvent(ctx, entry, &payload)
}

// applyWebhookEvent maps the event onto a ledger transition and closes out
// the log row. Shared by the live path and the worker retry.
func (s *paymentService) applyWebhookEvent(
	ctx context.Context,
	entry *model.WebhookLog,
	payload *model.CashfreeWebhookPayload,
) error {
	var newStatus string
	switch payload.Type {
	case model.WebhookEventPaymentSuccess:
		newStatus = model.StatusPaid
	case model.WebhookEventPaymentFailed, model.WebhookEventUserDropped:
		newStatus = model.StatusFailed
	default:
		// Unknown events are acknowledged so Cashfree stops redelivering.
		logger.Info("Unrecognized webhook event, acknowledging as no-op", map[string]interface{}{
			"event_type": payload.Type,
		})
		return s.webhookRepo.MarkAsProcessed(ctx, entry.ID)
	}

	order, err := s.orderRepo.GetByExternalOrderID(ctx, payload.Data.Order.OrderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			notFound := model.NewOrderNotFoundError(payload.Data.Order.OrderID)
			s.recordWebhookError(ctx, entry, notFound)
			return notFound
		}
		s.recordWebhookError(ctx, entry, err)
		return err
	}

	if err := s.applyTransition(ctx, order, newStatus, model.ReconcileSourceWebhook); err != nil {
		s.recordWebhookError(ctx, entry, err)
		return err
	}

	return s.webhookRepo.MarkAsProcessed(ctx, entry.ID)
}

func (s *paymentService) persistWebhookLog(ctx context.Context, entry *model.WebhookLog) {
	if err := s.webhookRepo.Create(ctx, entry); err != nil {
		logger.Error("Failed to persist webhook log", err)
	}
}

func (s *paymentService) recordWebhookError(ctx context.Context, entry *model.WebhookLog, cause error) {
	if err := s.webhookRepo.MarkProcessingError(ctx, entry.ID, cause.Error()); err != nil {
		logger.Error("Failed to record webhook processing error", err)
	}
}

// =====================================================
// BACKGROUND RECONCILIATION
// =====================================================

// ReconcileStaleOrders sweeps Initiated entries the redirect and webhook
// paths never reached, asking Cashfree for their final word.
func (s *paymentService) ReconcileStaleOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.StaleWindow)
	stale, err := s.orderRepo.ListStaleInitiated(ctx, cutoff, s.cfg.ReconcileBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale payment orders: %w", err)
	}

	reconciled := 0
	for _, order := range stale {
		// Fresh lookup, no cache: the job exists to catch what the fast
		// paths missed.
		status, err := s.gateway.GetOrderStatus(ctx, order.ExternalOrderID)
		if err != nil {
			logger.Error("Stale reconciliation status query failed", err)
			continue
		}

		newStatus := ledgerStatusFor(status.OrderStatus)
		if newStatus == "" {
			continue // still ACTIVE at the provider
		}

		if err := s.applyTransition(ctx, order, newStatus, model.ReconcileSourceJob); err != nil {
			logger.Error("Stale reconciliation transition failed", err)
			continue
		}
		reconciled++
	}

	if reconciled > 0 {
		logger.Info("Stale payment orders reconciled", map[string]interface{}{
			"checked":    len(stale),
			"reconciled": reconciled,
		})
	}

	return reconciled, nil
}

// RetryFailedWebhooks re-runs verified deliveries whose processing failed.
func (s *paymentService) RetryFailedWebhooks(ctx context.Context) (int, error) {
	failed, err := s.webhookRepo.GetFailedWebhooks(ctx, s.cfg.ReconcileBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed webhooks: %w", err)
	}

	succeeded := 0
	for _, entry := range failed {
		var payload model.CashfreeWebhookPayload
		if err := json.Unmarshal(entry.Body, &payload); err != nil {
			s.recordWebhookError(ctx, entry, fmt.Errorf("failed to parse webhook payload: %w", err))
			continue
		}

		if err := s.applyWebhookEvent(ctx, entry, &payload); err != nil {
			continue // error already recorded on the log row
		}
		succeeded++
	}

	return succeeded, nil
}

// =====================================================
// SHARED HELPERS
// =====================================================

// applyTransition moves a ledger entry to newStatus. Repeated deliveries of
// the same outcome are silent no-ops; conflicting terminal outcomes are
// logged as anomalies and the newest report wins.
func (s *paymentService) applyTransition(ctx context.Context, order *model.PaymentOrder, newStatus, source string) error {
	if order.Status == newStatus {
		return nil
	}

	if order.IsTerminal() {
		logger.Warn("Conflicting terminal status reported, applying last write", map[string]interface{}{
			"payment_order_id":  order.ID.String(),
			"external_order_id": order.ExternalOrderID,
			"current_status":    order.Status,
			"new_status":        newStatus,
			"source":            source,
		})
	}

	changed, err := s.orderRepo.Transition(ctx, order.ID, newStatus, source)
	if err != nil {
		return fmt.Errorf("failed to transition payment order %s: %w", order.ID, err)
	}
	if changed {
		order.Status = newStatus
		logger.Info("Payment order reconciled", map[string]interface{}{
			"payment_order_id":  order.ID.String(),
			"external_order_id": order.ExternalOrderID,
			"status":            newStatus,
			"source":            source,
		})
	}
	return nil
}

// fetchOrderStatus queries the provider, serving final statuses from cache
// to absorb the redirect/webhook race window.
func (s *paymentService) fetchOrderStatus(ctx context.Context, externalOrderID string) (*gateway.OrderStatus, error) {
	key := "payment:order_status:" + externalOrderID

	if s.cache != nil {
		var cached gateway.OrderStatus
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	status, err := s.gateway.GetOrderStatus(ctx, externalOrderID)
	if err != nil {
		return nil, err
	}

	// Only final statuses are safe to serve stale.
	if s.cache != nil && status.IsFinal() {
		if err := s.cache.Set(ctx, key, status, s.cfg.StatusCacheTTL); err != nil {
			logger.Error("Failed to cache order status", err)
		}
	}

	return status, nil
}

// ledgerStatusFor maps a provider order status onto the ledger state
// machine. An empty result means no transition applies.
func ledgerStatusFor(providerStatus string) string {
	switch providerStatus {
	case model.CashfreeOrderStatusPaid:
		return model.StatusPaid
	case model.CashfreeOrderStatusExpired, model.CashfreeOrderStatusTerminated:
		return model.StatusFailed
	}
	return ""
}

func metadataString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
