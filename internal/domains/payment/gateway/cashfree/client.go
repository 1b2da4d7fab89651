package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cashfree-gateway/internal/domains/payment/gateway"
	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// CASHFREE CLIENT IMPLEMENTATION
// =====================================================

type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new Cashfree client
func NewClient(config *Config) (gateway.CashfreeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Cashfree config: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// =====================================================
// CREATE ORDER
// =====================================================

// CreateOrder posts the order payload to POST {base}/orders.
// Any 2xx status is success; non-2xx becomes *model.GatewayError carrying
// the status code and raw body. Single attempt, no retry.
func (c *Client) CreateOrder(
	ctx context.Context,
	req gateway.CreateOrderRequest,
) (*gateway.OrderCreationResult, error) {
	body, err := c.do(ctx, http.MethodPost, c.config.GetBaseURL()+"/orders", req)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	result := &gateway.OrderCreationResult{
		CFOrderID:        stringField(raw, "cf_order_id"),
		OrderID:          stringField(raw, "order_id"),
		OrderStatus:      stringField(raw, "order_status"),
		PaymentSessionID: stringField(raw, "payment_session_id"),
		Raw:              raw,
	}

	paymentURL, err := c.resolvePaymentURL(raw, result.PaymentSessionID)
	if err != nil {
		return nil, err
	}
	result.PaymentURL = paymentURL

	return result, nil
}

// resolvePaymentURL picks the checkout link out of a creation response.
// The response shape varies by API version: older versions return a direct
// payment_link, some return payments.url, current ones return only a
// payment_session_id the link must be templated from. Fixed priority order.
func (c *Client) resolvePaymentURL(raw map[string]interface{}, sessionID string) (string, error) {
	if link := stringField(raw, "payment_link"); link != "" {
		return link, nil
	}

	if payments, ok := raw["payments"].(map[string]interface{}); ok {
		if link := stringField(payments, "url"); link != "" {
			return link, nil
		}
	}

	if sessionID != "" {
		return fmt.Sprintf("%s/#%s", c.config.GetCheckoutURL(), sessionID), nil
	}

	return "", model.NewMissingPaymentLinkError(stringField(raw, "order_id"))
}

// =====================================================
// GET ORDER STATUS
// =====================================================

// GetOrderStatus queries GET {base}/orders/{order_id}.
func (c *Client) GetOrderStatus(
	ctx context.Context,
	externalOrderID string,
) (*gateway.OrderStatus, error) {
	url := fmt.Sprintf("%s/orders/%s", c.config.GetBaseURL(), externalOrderID)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var status gateway.OrderStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode order status: %w", err)
	}

	return &status, nil
}

// =====================================================
// VERIFY SIGNATURE
// =====================================================

// VerifySignature verifies the Cashfree webhook signature with the
// configured webhook secret.
func (c *Client) VerifySignature(signature, timestamp string, rawBody []byte) bool {
	return VerifySignature(signature, timestamp, rawBody, c.config.WebhookSecret)
}

// =====================================================
// HTTP PLUMBING
// =====================================================

// do executes one request against the Cashfree API and returns the raw
// response body on 2xx. Network failures become *model.TransportError,
// non-2xx statuses *model.GatewayError.
func (c *Client) do(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		bodyJSON, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(bodyJSON)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-version", APIVersion)
	httpReq.Header.Set("x-client-id", c.config.ClientID)
	httpReq.Header.Set("x-client-secret", c.config.ClientSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &model.TransportError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.GatewayError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	return bodyBytes, nil
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}
