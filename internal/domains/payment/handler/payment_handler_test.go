package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashfree-gateway/internal/domains/payment/model"
	"cashfree-gateway/internal/shared/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubPaymentService lets each test script the service layer.
type stubPaymentService struct {
	initiateFn func(ctx context.Context, req model.InitiatePaymentRequest, identity *model.CustomerIdentity) (*model.InitiatePaymentResponse, error)
	statusFn   func(ctx context.Context, id uuid.UUID) (*model.PaymentStatusResponse, error)
	returnFn   func(ctx context.Context, externalOrderID string) string
	webhookFn  func(ctx context.Context, body []byte, signature, timestamp string) error
}

func (s *stubPaymentService) InitiatePayment(ctx context.Context, req model.InitiatePaymentRequest, identity *model.CustomerIdentity) (*model.InitiatePaymentResponse, error) {
	return s.initiateFn(ctx, req, identity)
}

func (s *stubPaymentService) GetPaymentStatus(ctx context.Context, id uuid.UUID) (*model.PaymentStatusResponse, error) {
	return s.statusFn(ctx, id)
}

func (s *stubPaymentService) HandleReturn(ctx context.Context, externalOrderID string) string {
	return s.returnFn(ctx, externalOrderID)
}

func (s *stubPaymentService) ProcessWebhook(ctx context.Context, body []byte, signature, timestamp string) error {
	return s.webhookFn(ctx, body, signature, timestamp)
}

func (s *stubPaymentService) ReconcileStaleOrders(ctx context.Context) (int, error) { return 0, nil }
func (s *stubPaymentService) RetryFailedWebhooks(ctx context.Context) (int, error) { return 0, nil }

func newTestRouter(svc *stubPaymentService) *gin.Engine {
	h := NewPaymentHandler(svc)
	r := gin.New()
	r.POST("/payments/initiate", h.InitiatePayment)
	r.GET("/payments/return", h.PaymentReturn)
	r.GET("/payments/:payment_id", h.GetPaymentStatus)
	r.POST("/webhooks/cashfree", h.CashfreeWebhook)
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// =====================================================
// INITIATE PAYMENT
// =====================================================

func TestInitiatePayment_Created(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentService{
		initiateFn: func(_ context.Context, req model.InitiatePaymentRequest, identity *model.CustomerIdentity) (*model.InitiatePaymentResponse, error) {
			assert.Equal(t, model.ReferenceKindSalesOrder, req.ReferenceKind)
			assert.Equal(t, "SO-1234", req.ReferenceID)
			assert.Nil(t, identity)
			return &model.InitiatePaymentResponse{
				PaymentOrderID:  orderID,
				ExternalOrderID: "CF-SO-1234-abcde",
				Amount:          decimal.RequireFromString("499.00"),
				Currency:        "INR",
				Status:          model.StatusInitiated,
				PaymentURL:      "https://payments.cashfree.com/order/#sess1",
			}, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate",
		bytes.NewBufferString(`{"reference_kind":"sales_order","reference_id":"SO-1234"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "CF-SO-1234-abcde", data["external_order_id"])
	assert.Equal(t, "https://payments.cashfree.com/order/#sess1", data["payment_url"])
}

func TestInitiatePayment_ValidationFailure(t *testing.T) {
	svc := &stubPaymentService{
		initiateFn: func(context.Context, model.InitiatePaymentRequest, *model.CustomerIdentity) (*model.InitiatePaymentResponse, error) {
			t.Fatal("service must not be called for an invalid request")
			return nil, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate",
		bytes.NewBufferString(`{"reference_kind":"subscription","reference_id":"SUB-1"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
}

func TestInitiatePayment_MalformedBody(t *testing.T) {
	svc := &stubPaymentService{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate",
		bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiatePayment_GatewayErrorMapsToBadGateway(t *testing.T) {
	svc := &stubPaymentService{
		initiateFn: func(context.Context, model.InitiatePaymentRequest, *model.CustomerIdentity) (*model.InitiatePaymentResponse, error) {
			return nil, &model.GatewayError{StatusCode: 401, Body: `{"message":"authentication failed"}`}
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate",
		bytes.NewBufferString(`{"reference_kind":"sales_order","reference_id":"SO-1234"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeBody(t, w)
	errBlock := body["error"].(map[string]interface{})
	assert.Equal(t, "GATEWAY_ERROR", errBlock["code"])
}

func TestInitiatePayment_PassesBearerIdentity(t *testing.T) {
	var got *model.CustomerIdentity
	svc := &stubPaymentService{
		initiateFn: func(_ context.Context, _ model.InitiatePaymentRequest, identity *model.CustomerIdentity) (*model.InitiatePaymentResponse, error) {
			got = identity
			return &model.InitiatePaymentResponse{Status: model.StatusInitiated}, nil
		},
	}

	h := NewPaymentHandler(svc)
	r := gin.New()
	r.POST("/payments/initiate", func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, "user-42")
		c.Set(middleware.ContextKeyUserName, "Ravi Kumar")
		c.Set(middleware.ContextKeyUserEmail, "ravi@example.com")
	}, h.InitiatePayment)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate",
		bytes.NewBufferString(`{"reference_kind":"sales_order","reference_id":"SO-1234"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-42", got.ID)
	assert.Equal(t, "Ravi Kumar", got.Name)
	assert.Equal(t, "ravi@example.com", got.Email)
}

// =====================================================
// PAYMENT STATUS
// =====================================================

func TestGetPaymentStatus_OK(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentService{
		statusFn: func(_ context.Context, id uuid.UUID) (*model.PaymentStatusResponse, error) {
			assert.Equal(t, orderID, id)
			return &model.PaymentStatusResponse{
				PaymentOrderID:  id,
				ExternalOrderID: "CF-SO-1234-abcde",
				Status:          model.StatusPaid,
			}, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/"+orderID.String(), nil)
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, model.StatusPaid, data["status"])
}

func TestGetPaymentStatus_InvalidID(t *testing.T) {
	svc := &stubPaymentService{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil)
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPaymentStatus_NotFound(t *testing.T) {
	svc := &stubPaymentService{
		statusFn: func(_ context.Context, id uuid.UUID) (*model.PaymentStatusResponse, error) {
			return nil, model.NewOrderNotFoundError(id.String())
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/"+uuid.NewString(), nil)
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	errBlock := decodeBody(t, w)["error"].(map[string]interface{})
	assert.Equal(t, model.ErrCodeNotFound, errBlock["code"])
}

// =====================================================
// REDIRECT RETURN
// =====================================================

func TestPaymentReturn_RedirectsToServiceDestination(t *testing.T) {
	svc := &stubPaymentService{
		returnFn: func(_ context.Context, externalOrderID string) string {
			assert.Equal(t, "CF-SO-1234-abcde", externalOrderID)
			return "/sales_order/SO-1234"
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/return?order_id=CF-SO-1234-abcde", nil)
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/sales_order/SO-1234", w.Header().Get("Location"))
}

func TestPaymentReturn_MissingOrderIDStillRedirects(t *testing.T) {
	svc := &stubPaymentService{
		returnFn: func(_ context.Context, externalOrderID string) string {
			assert.Empty(t, externalOrderID)
			return "/payment-failed"
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/return", nil)
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/payment-failed", w.Header().Get("Location"))
}

// =====================================================
// WEBHOOK
// =====================================================

func TestCashfreeWebhook_Success(t *testing.T) {
	svc := &stubPaymentService{
		webhookFn: func(_ context.Context, body []byte, signature, timestamp string) error {
			assert.JSONEq(t, `{"type":"PAYMENT_SUCCESS"}`, string(body))
			assert.Equal(t, "c2ln", signature)
			assert.Equal(t, "1700000000", timestamp)
			return nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/cashfree",
		bytes.NewBufferString(`{"type":"PAYMENT_SUCCESS"}`))
	req.Header.Set("x-webhook-signature", "c2ln")
	req.Header.Set("x-webhook-timestamp", "1700000000")
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())
}

func TestCashfreeWebhook_SignatureRejectionIsUnauthorized(t *testing.T) {
	svc := &stubPaymentService{
		webhookFn: func(context.Context, []byte, string, string) error {
			return model.NewSignatureError()
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/cashfree",
		bytes.NewBufferString(`{"type":"PAYMENT_SUCCESS"}`))
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error"}`, w.Body.String())
}

func TestCashfreeWebhook_ProcessingFailureIsAcknowledged(t *testing.T) {
	svc := &stubPaymentService{
		webhookFn: func(context.Context, []byte, string, string) error {
			return model.NewOrderNotFoundError("CF-ghost-aaaaa")
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/cashfree",
		bytes.NewBufferString(`{"type":"PAYMENT_SUCCESS","data":{"order":{"order_id":"CF-ghost-aaaaa"}}}`))
	newTestRouter(svc).ServeHTTP(w, req)

	// Acknowledged so Cashfree stops redelivering; the worker retries.
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"error"}`, w.Body.String())
}
