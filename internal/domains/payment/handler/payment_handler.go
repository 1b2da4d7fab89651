package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cashfree-gateway/internal/domains/payment/model"
	"cashfree-gateway/internal/domains/payment/service"
	"cashfree-gateway/internal/shared/middleware"
	res "cashfree-gateway/internal/shared/response"
)

const (
	headerWebhookSignature = "x-webhook-signature"
	headerWebhookTimestamp = "x-webhook-timestamp"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// =====================================================
// PAYMENT ENDPOINTS
// =====================================================

// InitiatePayment starts a payment attempt for a reference document
// POST /api/v1/payments/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	// Step 1: Bind request body
	var req model.InitiatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Step 2: Validate request
	if err := req.Validate(); err != nil {
		res.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", err)
		return
	}

	// Step 3: Call service (identity is optional, anonymous checkout works)
	response, err := h.paymentService.InitiatePayment(c.Request.Context(), req, identityFrom(c))
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	// Step 4: Return response
	res.Success(c, http.StatusCreated, response)
}

// GetPaymentStatus returns the ledger view of one payment attempt
// GET /api/v1/payments/:payment_id
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	// Step 1: Get payment ID from URL
	paymentID, err := uuid.Parse(c.Param("payment_id"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "INVALID_PAYMENT_ID", "Invalid payment ID")
		return
	}

	// Step 2: Call service
	response, err := h.paymentService.GetPaymentStatus(c.Request.Context(), paymentID)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusOK, response)
}

// PaymentReturn reconciles the browser redirect from Cashfree
// GET /api/v1/payments/return?order_id=...
//
// Always redirects. The service re-queries Cashfree and decides the
// destination; the query string is only used to find the ledger entry.
func (h *PaymentHandler) PaymentReturn(c *gin.Context) {
	destination := h.paymentService.HandleReturn(c.Request.Context(), c.Query("order_id"))
	c.Redirect(http.StatusFound, destination)
}

// =====================================================
// WEBHOOK ENDPOINT
// =====================================================

// CashfreeWebhook handles the server-to-server payment notification
// POST /api/v1/webhooks/cashfree
func (h *PaymentHandler) CashfreeWebhook(c *gin.Context) {
	// Step 1: Read the raw body. Verification signs the exact bytes, so
	// no binding before the HMAC check.
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	// Step 2: Process webhook
	err = h.paymentService.ProcessWebhook(
		c.Request.Context(),
		body,
		c.GetHeader(headerWebhookSignature),
		c.GetHeader(headerWebhookTimestamp),
	)

	// Step 3: Acknowledge. A rejected signature gets 401 so Cashfree
	// retries later; processing failures are acknowledged and retried by
	// the background worker instead.
	if err != nil {
		var paymentErr *model.PaymentError
		if errors.As(err, &paymentErr) && paymentErr.Code == model.ErrCodeSignature {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// =====================================================
// HELPERS
// =====================================================

// mapPaymentError maps service errors onto HTTP status codes
func mapPaymentError(err error) (statusCode int, errorCode string) {
	// Default
	statusCode = http.StatusInternalServerError
	errorCode = "INTERNAL_ERROR"

	// Provider-side failures first
	var gatewayErr *model.GatewayError
	if errors.As(err, &gatewayErr) {
		return http.StatusBadGateway, "GATEWAY_ERROR"
	}
	var transportErr *model.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusBadGateway, "GATEWAY_UNREACHABLE"
	}

	var paymentErr *model.PaymentError
	if errors.As(err, &paymentErr) {
		errorCode = paymentErr.Code

		// Map error codes to HTTP status codes
		switch paymentErr.Code {
		case model.ErrCodeNotFound:
			statusCode = http.StatusNotFound
		case model.ErrCodeInvalidReference, model.ErrCodeMissingAmount:
			statusCode = http.StatusBadRequest
		case model.ErrCodeSignature:
			statusCode = http.StatusUnauthorized
		case model.ErrCodeMissingPaymentLink:
			statusCode = http.StatusBadGateway
		case model.ErrCodeConfiguration:
			statusCode = http.StatusInternalServerError
		default:
			statusCode = http.StatusInternalServerError
		}
	}

	return statusCode, errorCode
}

// identityFrom picks up the optional bearer identity set by the auth
// middleware. Nil when the request was anonymous.
func identityFrom(c *gin.Context) *model.CustomerIdentity {
	id, ok := c.Get(middleware.ContextKeyUserID)
	if !ok {
		return nil
	}

	identity := &model.CustomerIdentity{ID: fmt.Sprint(id)}
	if v, ok := c.Get(middleware.ContextKeyUserName); ok {
		identity.Name = fmt.Sprint(v)
	}
	if v, ok := c.Get(middleware.ContextKeyUserEmail); ok {
		identity.Email = fmt.Sprint(v)
	}
	return identity
}

func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
