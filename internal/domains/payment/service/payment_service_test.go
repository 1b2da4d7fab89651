package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashfree-gateway/internal/domains/payment/gateway/mock"
	"cashfree-gateway/internal/domains/payment/model"
	"cashfree-gateway/internal/domains/payment/reference"
)

// =====================================================
// IN-MEMORY FAKES
// =====================================================

type fakeOrderRepo struct {
	orders      map[uuid.UUID]*model.PaymentOrder
	transitions int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*model.PaymentOrder)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *model.PaymentOrder) error {
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.PaymentOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) GetByExternalOrderID(_ context.Context, externalOrderID string) (*model.PaymentOrder, error) {
	for _, order := range r.orders {
		if order.ExternalOrderID == externalOrderID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (r *fakeOrderRepo) GetLiveByReference(_ context.Context, kind, id string) (*model.PaymentOrder, error) {
	for _, order := range r.orders {
		if order.ReferenceKind == kind && order.ReferenceID == id && !order.IsTerminal() {
			cp := *order
			return &cp, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (r *fakeOrderRepo) Transition(_ context.Context, id uuid.UUID, newStatus, source string) (bool, error) {
	order, ok := r.orders[id]
	if !ok {
		return false, model.ErrOrderNotFound
	}
	if order.Status == newStatus {
		return false, nil
	}
	now := time.Now()
	order.Status = newStatus
	order.ReconcileSource = &source
	order.ReconciledAt = &now
	r.transitions++
	return true, nil
}

func (r *fakeOrderRepo) ListStaleInitiated(_ context.Context, olderThan time.Time, limit int) ([]*model.PaymentOrder, error) {
	var stale []*model.PaymentOrder
	for _, order := range r.orders {
		if order.Status == model.StatusInitiated && order.CreatedAt.Before(olderThan) {
			cp := *order
			stale = append(stale, &cp)
		}
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}

type fakeWebhookRepo struct {
	logs map[uuid.UUID]*model.WebhookLog
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{logs: make(map[uuid.UUID]*model.WebhookLog)}
}

func (r *fakeWebhookRepo) Create(_ context.Context, log *model.WebhookLog) error {
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *fakeWebhookRepo) MarkAsProcessed(_ context.Context, id uuid.UUID) error {
	log, ok := r.logs[id]
	if !ok {
		return fmt.Errorf("webhook log %s not found", id)
	}
	log.IsProcessed = true
	return nil
}

func (r *fakeWebhookRepo) MarkProcessingError(_ context.Context, id uuid.UUID, errorMsg string) error {
	log, ok := r.logs[id]
	if !ok {
		return fmt.Errorf("webhook log %s not found", id)
	}
	log.ProcessingError = &errorMsg
	return nil
}

func (r *fakeWebhookRepo) CheckIdempotency(_ context.Context, eventType, externalOrderID string) (bool, error) {
	for _, log := range r.logs {
		if !log.IsProcessed || log.EventType != eventType {
			continue
		}
		if log.ExternalOrderID != nil && *log.ExternalOrderID == externalOrderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeWebhookRepo) GetFailedWebhooks(_ context.Context, limit int) ([]*model.WebhookLog, error) {
	var failed []*model.WebhookLog
	for _, log := range r.logs {
		if log.IsValid != nil && *log.IsValid && !log.IsProcessed {
			cp := *log
			failed = append(failed, &cp)
		}
		if len(failed) == limit {
			break
		}
	}
	return failed, nil
}

// singleLog returns the only webhook log on record.
func (r *fakeWebhookRepo) singleLog(t *testing.T) *model.WebhookLog {
	t.Helper()
	require.Len(t, r.logs, 1)
	for _, log := range r.logs {
		return log
	}
	return nil
}

type fakeLoader struct {
	doc reference.Document
}

func (l *fakeLoader) Load(_ context.Context, id string) (reference.Document, error) {
	if l.doc == nil || l.doc.ID() != id {
		return nil, model.ErrInvalidReference
	}
	return l.doc, nil
}

// =====================================================
// TEST FIXTURE
// =====================================================

type serviceFixture struct {
	service     PaymentService
	orderRepo   *fakeOrderRepo
	webhookRepo *fakeWebhookRepo
	gateway     *mock.MockCashfreeGateway
}

func newFixture(cfg Config) *serviceFixture {
	if cfg.Callbacks.ReturnURL == "" {
		cfg.Callbacks = testCallbacks()
	}
	if !cfg.WebhookSecretSet && !cfg.ProductionMode {
		cfg.WebhookSecretSet = true
	}

	orderRepo := newFakeOrderRepo()
	webhookRepo := newFakeWebhookRepo()
	gw := mock.NewMockCashfreeGateway()

	registry := reference.NewRegistry()
	registry.Register(model.ReferenceKindSalesOrder, &fakeLoader{doc: salesOrderDoc()})

	return &serviceFixture{
		service:     NewPaymentService(orderRepo, webhookRepo, gw, registry, nil, cfg),
		orderRepo:   orderRepo,
		webhookRepo: webhookRepo,
		gateway:     gw,
	}
}

func initiateRequest() model.InitiatePaymentRequest {
	return model.InitiatePaymentRequest{
		ReferenceKind: model.ReferenceKindSalesOrder,
		ReferenceID:   "SO-1234",
	}
}

func webhookBody(eventType, externalOrderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":%q,"data":{"order":{"order_id":%q,"order_amount":499.00,"order_currency":"INR"},"payment":{"cf_payment_id":"pay_1","payment_status":"SUCCESS"}}}`,
		eventType, externalOrderID,
	))
}

// =====================================================
// INITIATE PAYMENT
// =====================================================

func TestInitiatePayment_CreatesInitiatedLedgerEntry(t *testing.T) {
	f := newFixture(Config{})

	resp, err := f.service.InitiatePayment(context.Background(), initiateRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusInitiated, resp.Status)
	assert.NotEmpty(t, resp.PaymentURL)
	assert.True(t, resp.Amount.Equal(decimal.RequireFromString("499.00")))

	require.Len(t, f.orderRepo.orders, 1)
	stored, err := f.orderRepo.GetByID(context.Background(), resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, stored.Status)
	assert.Equal(t, resp.ExternalOrderID, stored.ExternalOrderID)
	assert.Equal(t, "cf_1", stored.GatewayMetadata["cf_order_id"])
	assert.Equal(t, resp.PaymentURL, stored.GatewayMetadata["payment_url"])
}

func TestInitiatePayment_GatewayRejectionLeavesLedgerEmpty(t *testing.T) {
	f := newFixture(Config{})
	f.gateway.CreateOrderErr = &model.GatewayError{
		StatusCode: 401,
		Body:       `{"message":"authentication failed"}`,
	}

	_, err := f.service.InitiatePayment(context.Background(), initiateRequest(), nil)
	require.Error(t, err)

	var gatewayErr *model.GatewayError
	require.True(t, errors.As(err, &gatewayErr))
	assert.Equal(t, 401, gatewayErr.StatusCode)
	assert.Empty(t, f.orderRepo.orders, "rejected creation must not write a ledger entry")
}

func TestInitiatePayment_ReusesLiveEntry(t *testing.T) {
	f := newFixture(Config{})

	first, err := f.service.InitiatePayment(context.Background(), initiateRequest(), nil)
	require.NoError(t, err)

	second, err := f.service.InitiatePayment(context.Background(), initiateRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.ExternalOrderID, second.ExternalOrderID)
	assert.Equal(t, first.PaymentURL, second.PaymentURL)
	assert.Len(t, f.gateway.CreateOrderCalls, 1, "second initiation must not hit the provider")
	assert.Len(t, f.orderRepo.orders, 1)
}

func TestInitiatePayment_NewOrderAfterTerminalEntry(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	first, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)
	_, err = f.orderRepo.Transition(ctx, first.PaymentOrderID, model.StatusFailed, model.ReconcileSourceJob)
	require.NoError(t, err)

	second, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ExternalOrderID, second.ExternalOrderID)
	assert.Len(t, f.gateway.CreateOrderCalls, 2)
}

func TestInitiatePayment_UnknownReferenceKind(t *testing.T) {
	f := newFixture(Config{})

	_, err := f.service.InitiatePayment(context.Background(), model.InitiatePaymentRequest{
		ReferenceKind: "subscription",
		ReferenceID:   "SUB-1",
	}, nil)

	var paymentErr *model.PaymentError
	require.True(t, errors.As(err, &paymentErr))
	assert.Equal(t, model.ErrCodeInvalidReference, paymentErr.Code)
}

func TestInitiatePayment_UnknownReferenceID(t *testing.T) {
	f := newFixture(Config{})

	_, err := f.service.InitiatePayment(context.Background(), model.InitiatePaymentRequest{
		ReferenceKind: model.ReferenceKindSalesOrder,
		ReferenceID:   "SO-9999",
	}, nil)

	var paymentErr *model.PaymentError
	require.True(t, errors.As(err, &paymentErr))
	assert.Equal(t, model.ErrCodeInvalidReference, paymentErr.Code)
}

// =====================================================
// PAYMENT STATUS
// =====================================================

func TestGetPaymentStatus(t *testing.T) {
	f := newFixture(Config{})

	resp, err := f.service.InitiatePayment(context.Background(), initiateRequest(), nil)
	require.NoError(t, err)

	status, err := f.service.GetPaymentStatus(context.Background(), resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, status.Status)
	assert.Equal(t, resp.ExternalOrderID, status.ExternalOrderID)
	assert.Equal(t, model.ReferenceKindSalesOrder, status.ReferenceKind)
}

func TestGetPaymentStatus_NotFound(t *testing.T) {
	f := newFixture(Config{})

	_, err := f.service.GetPaymentStatus(context.Background(), uuid.New())

	var paymentErr *model.PaymentError
	require.True(t, errors.As(err, &paymentErr))
	assert.Equal(t, model.ErrCodeNotFound, paymentErr.Code)
}

// =====================================================
// WEBHOOK PROCESSING
// =====================================================

func TestProcessWebhook_PaymentSuccessTransitionsToPaid(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	body := webhookBody(model.WebhookEventPaymentSuccess, resp.ExternalOrderID)
	require.NoError(t, f.service.ProcessWebhook(ctx, body, "sig", "1700000000"))

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, order.Status)
	require.NotNil(t, order.ReconcileSource)
	assert.Equal(t, model.ReconcileSourceWebhook, *order.ReconcileSource)

	log := f.webhookRepo.singleLog(t)
	assert.True(t, log.IsProcessed)
	require.NotNil(t, log.IsValid)
	assert.True(t, *log.IsValid)
}

func TestProcessWebhook_PaymentFailedTransitionsToFailed(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	body := webhookBody(model.WebhookEventPaymentFailed, resp.ExternalOrderID)
	require.NoError(t, f.service.ProcessWebhook(ctx, body, "sig", "1700000000"))

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, order.Status)
}

func TestProcessWebhook_DuplicateDeliveryIsAcknowledged(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	body := webhookBody(model.WebhookEventPaymentSuccess, resp.ExternalOrderID)
	require.NoError(t, f.service.ProcessWebhook(ctx, body, "sig", "1700000000"))
	transitionsAfterFirst := f.orderRepo.transitions

	require.NoError(t, f.service.ProcessWebhook(ctx, body, "sig", "1700000001"))

	assert.Equal(t, transitionsAfterFirst, f.orderRepo.transitions,
		"duplicate delivery must not transition again")
	for _, log := range f.webhookRepo.logs {
		assert.True(t, log.IsProcessed)
	}
}

func TestProcessWebhook_InvalidSignatureIsRejected(t *testing.T) {
	f := newFixture(Config{})
	f.gateway.SignatureValid = false
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	body := webhookBody(model.WebhookEventPaymentSuccess, resp.ExternalOrderID)
	err = f.service.ProcessWebhook(ctx, body, "bad-sig", "1700000000")

	var paymentErr *model.PaymentError
	require.True(t, errors.As(err, &paymentErr))
	assert.Equal(t, model.ErrCodeSignature, paymentErr.Code)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, order.Status, "rejected delivery must not touch the ledger")

	log := f.webhookRepo.singleLog(t)
	require.NotNil(t, log.IsValid)
	assert.False(t, *log.IsValid)
	assert.False(t, log.IsProcessed)
}

func TestProcessWebhook_NoSecretInProductionFailsClosed(t *testing.T) {
	f := newFixture(Config{ProductionMode: true, WebhookSecretSet: false})

	err := f.service.ProcessWebhook(context.Background(),
		webhookBody(model.WebhookEventPaymentSuccess, "CF-SO-1234-abcde"), "sig", "1700000000")

	var paymentErr *model.PaymentError
	require.True(t, errors.As(err, &paymentErr))
	assert.Equal(t, model.ErrCodeSignature, paymentErr.Code)

	log := f.webhookRepo.singleLog(t)
	require.NotNil(t, log.IsValid)
	assert.False(t, *log.IsValid)
}

func TestProcessWebhook_NoSecretInTestModeProcessesWithWarning(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	webhookRepo := newFakeWebhookRepo()
	gw := mock.NewMockCashfreeGateway()
	gw.SignatureValid = false // must never be consulted without a secret

	registry := reference.NewRegistry()
	registry.Register(model.ReferenceKindSalesOrder, &fakeLoader{doc: salesOrderDoc()})

	svc := NewPaymentService(orderRepo, webhookRepo, gw, registry, nil, Config{
		Callbacks:        testCallbacks(),
		ProductionMode:   false,
		WebhookSecretSet: false,
	})

	ctx := context.Background()
	resp, err := svc.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	body := webhookBody(model.WebhookEventPaymentSuccess, resp.ExternalOrderID)
	require.NoError(t, svc.ProcessWebhook(ctx, body, "", ""))

	order, err := orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, order.Status)
}

func TestProcessWebhook_UnknownOrderRecordsError(t *testing.T) {
	f := newFixture(Config{})

	body := webhookBody(model.WebhookEventPaymentSuccess, "CF-unknown-xxxxx")
	err := f.service.ProcessWebhook(context.Background(), body, "sig", "1700000000")

	var paymentErr *model.PaymentError
	require.True(t, errors.As(err, &paymentErr))
	assert.Equal(t, model.ErrCodeNotFound, paymentErr.Code)

	log := f.webhookRepo.singleLog(t)
	assert.False(t, log.IsProcessed)
	require.NotNil(t, log.ProcessingError)
}

func TestProcessWebhook_UnknownEventIsAcknowledgedAsNoOp(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	body := webhookBody("REFUND_STATUS", resp.ExternalOrderID)
	require.NoError(t, f.service.ProcessWebhook(ctx, body, "sig", "1700000000"))

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, order.Status)

	log := f.webhookRepo.singleLog(t)
	assert.True(t, log.IsProcessed)
}

func TestProcessWebhook_MalformedBodyRecordsError(t *testing.T) {
	f := newFixture(Config{})

	err := f.service.ProcessWebhook(context.Background(), []byte("{not json"), "sig", "1700000000")
	require.Error(t, err)

	log := f.webhookRepo.singleLog(t)
	assert.False(t, log.IsProcessed)
	require.NotNil(t, log.ProcessingError)
}

// =====================================================
// REDIRECT RETURN
// =====================================================

func TestHandleReturn_PaidOrderRedirectsToDocumentSuccessPath(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)
	f.gateway.SetOrderStatus(resp.ExternalOrderID, model.CashfreeOrderStatusPaid)

	dest := f.service.HandleReturn(ctx, resp.ExternalOrderID)

	assert.Equal(t, "/sales_order/SO-1234", dest)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, order.Status)
	require.NotNil(t, order.ReconcileSource)
	assert.Equal(t, model.ReconcileSourceRedirect, *order.ReconcileSource)
}

func TestHandleReturn_ActiveOrderRedirectsToFailurePathWithoutTransition(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)
	// Mock default status is ACTIVE.

	dest := f.service.HandleReturn(ctx, resp.ExternalOrderID)

	assert.Equal(t, "/sales_order/SO-1234?payment_failed=1", dest)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, order.Status)
}

func TestHandleReturn_ExpiredOrderTransitionsToFailed(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)
	f.gateway.SetOrderStatus(resp.ExternalOrderID, model.CashfreeOrderStatusExpired)

	dest := f.service.HandleReturn(ctx, resp.ExternalOrderID)

	assert.Equal(t, "/sales_order/SO-1234?payment_failed=1", dest)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, order.Status)
}

func TestHandleReturn_UnknownOrderFallsBackToFailurePath(t *testing.T) {
	f := newFixture(Config{})

	dest := f.service.HandleReturn(context.Background(), "CF-ghost-aaaaa")

	assert.Equal(t, "/payment-failed", dest)
}

func TestHandleReturn_MissingOrderIDFallsBackToFailurePath(t *testing.T) {
	f := newFixture(Config{})

	assert.Equal(t, "/payment-failed", f.service.HandleReturn(context.Background(), ""))
}

func TestHandleReturn_StatusQueryFailureFallsBackToLedger(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)
	f.gateway.OrderStatusErr = &model.TransportError{Err: errors.New("connection refused")}

	dest := f.service.HandleReturn(ctx, resp.ExternalOrderID)

	assert.Equal(t, "/sales_order/SO-1234?payment_failed=1", dest)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, order.Status)
}

// =====================================================
// BACKGROUND RECONCILIATION
// =====================================================

func TestReconcileStaleOrders_TransitionsExpired(t *testing.T) {
	f := newFixture(Config{StaleWindow: 30 * time.Minute})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	// Age the entry past the stale window.
	f.orderRepo.orders[resp.PaymentOrderID].CreatedAt = time.Now().Add(-time.Hour)
	f.gateway.SetOrderStatus(resp.ExternalOrderID, model.CashfreeOrderStatusExpired)

	reconciled, err := f.service.ReconcileStaleOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reconciled)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, order.Status)
	require.NotNil(t, order.ReconcileSource)
	assert.Equal(t, model.ReconcileSourceJob, *order.ReconcileSource)
}

func TestReconcileStaleOrders_SkipsFreshAndActive(t *testing.T) {
	f := newFixture(Config{StaleWindow: 30 * time.Minute})
	ctx := context.Background()

	fresh, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	reconciled, err := f.service.ReconcileStaleOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reconciled)
	assert.Empty(t, f.gateway.StatusQueryCalls, "fresh entries must not be queried")

	// Stale but still ACTIVE at the provider: queried, not transitioned.
	f.orderRepo.orders[fresh.PaymentOrderID].CreatedAt = time.Now().Add(-time.Hour)
	reconciled, err = f.service.ReconcileStaleOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reconciled)
	assert.Len(t, f.gateway.StatusQueryCalls, 1)

	order, err := f.orderRepo.GetByID(ctx, fresh.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, order.Status)
}

func TestReconcileStaleOrders_ContinuesPastQueryFailures(t *testing.T) {
	f := newFixture(Config{StaleWindow: 30 * time.Minute})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)
	f.orderRepo.orders[resp.PaymentOrderID].CreatedAt = time.Now().Add(-time.Hour)
	f.gateway.OrderStatusErr = &model.TransportError{Err: errors.New("timeout")}

	reconciled, err := f.service.ReconcileStaleOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reconciled)
}

func TestRetryFailedWebhooks_ReappliesStoredDelivery(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	resp, err := f.service.InitiatePayment(ctx, initiateRequest(), nil)
	require.NoError(t, err)

	// A verified delivery whose processing failed earlier.
	valid := true
	errMsg := "payment order not found"
	extID := resp.ExternalOrderID
	require.NoError(t, f.webhookRepo.Create(ctx, &model.WebhookLog{
		ID:              uuid.New(),
		EventType:       model.WebhookEventPaymentSuccess,
		ExternalOrderID: &extID,
		Body:            webhookBody(model.WebhookEventPaymentSuccess, resp.ExternalOrderID),
		IsValid:         &valid,
		ProcessingError: &errMsg,
		ReceivedAt:      time.Now(),
	}))

	retried, err := f.service.RetryFailedWebhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)

	order, err := f.orderRepo.GetByID(ctx, resp.PaymentOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, order.Status)
}

func TestRetryFailedWebhooks_NothingToRetry(t *testing.T) {
	f := newFixture(Config{})

	retried, err := f.service.RetryFailedWebhooks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, retried)
}
