package mock

import (
	"context"
	"fmt"
	"sync"

	"cashfree-gateway/internal/domains/payment/gateway"
	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// MOCK CASHFREE GATEWAY FOR TESTING
// =====================================================

type MockCashfreeGateway struct {
	mu sync.Mutex

	CreateOrderErr    error
	OrderStatusErr    error
	SignatureValid    bool
	StatusByOrderID   map[string]string
	CreateOrderCalls  []gateway.CreateOrderRequest
	StatusQueryCalls  []string
	paymentURLFormat  string
	cfOrderIDSequence int
}

func NewMockCashfreeGateway() *MockCashfreeGateway {
	return &MockCashfreeGateway{
		SignatureValid:   true,
		StatusByOrderID:  make(map[string]string),
		paymentURLFormat: "https://mock-cashfree.com/order/#%s",
	}
}

func (m *MockCashfreeGateway) CreateOrder(
	ctx context.Context,
	req gateway.CreateOrderRequest,
) (*gateway.OrderCreationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateOrderCalls = append(m.CreateOrderCalls, req)

	if m.CreateOrderErr != nil {
		return nil, m.CreateOrderErr
	}

	m.cfOrderIDSequence++
	sessionID := fmt.Sprintf("session_%d", m.cfOrderIDSequence)

	return &gateway.OrderCreationResult{
		CFOrderID:        fmt.Sprintf("cf_%d", m.cfOrderIDSequence),
		OrderID:          req.OrderID,
		OrderStatus:      model.CashfreeOrderStatusActive,
		PaymentSessionID: sessionID,
		PaymentURL:       fmt.Sprintf(m.paymentURLFormat, sessionID),
		Raw: map[string]interface{}{
			"order_id":           req.OrderID,
			"order_status":       model.CashfreeOrderStatusActive,
			"payment_session_id": sessionID,
		},
	}, nil
}

func (m *MockCashfreeGateway) GetOrderStatus(
	ctx context.Context,
	externalOrderID string,
) (*gateway.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StatusQueryCalls = append(m.StatusQueryCalls, externalOrderID)

	if m.OrderStatusErr != nil {
		return nil, m.OrderStatusErr
	}

	status, ok := m.StatusByOrderID[externalOrderID]
	if !ok {
		status = model.CashfreeOrderStatusActive
	}

	return &gateway.OrderStatus{
		OrderID:     externalOrderID,
		OrderStatus: status,
	}, nil
}

func (m *MockCashfreeGateway) VerifySignature(signature, timestamp string, rawBody []byte) bool {
	return m.SignatureValid
}

// SetOrderStatus controls what GetOrderStatus reports for an order id.
func (m *MockCashfreeGateway) SetOrderStatus(externalOrderID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusByOrderID[externalOrderID] = status
}
