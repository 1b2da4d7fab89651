package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrConfiguration      = errors.New("gateway credentials are not configured")
	ErrMissingAmount      = errors.New("no resolvable positive amount")
	ErrMissingPaymentLink = errors.New("no payment link in gateway response")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrOrderNotFound      = errors.New("payment order not found")
	ErrInvalidReference   = errors.New("unknown reference document")
	ErrUnrecognizedEvent  = errors.New("unrecognized webhook event type")
)

// =====================================================
// GATEWAY / TRANSPORT ERRORS
// =====================================================

// GatewayError is a non-2xx response from Cashfree. The status code and raw
// body are carried so the caller can log or report them; it is never
// swallowed inside the client.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("cashfree API returned status %d: %s", e.StatusCode, e.Body)
}

// TransportError is a network-level failure (timeout, connection refused).
// Distinct from GatewayError: the request may never have reached the
// provider. Never retried automatically.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cashfree request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewConfigurationError(detail string) *PaymentError {
	return NewPaymentError(
		ErrCodeConfiguration,
		fmt.Sprintf("Cashfree settings incomplete: %s", detail),
		ErrConfiguration,
	)
}

func NewMissingAmountError(referenceKind, referenceID string) *PaymentError {
	return NewPaymentError(
		ErrCodeMissingAmount,
		fmt.Sprintf("No positive amount resolvable for %s %s", referenceKind, referenceID),
		ErrMissingAmount,
	)
}

func NewMissingPaymentLinkError(externalOrderID string) *PaymentError {
	return NewPaymentError(
		ErrCodeMissingPaymentLink,
		fmt.Sprintf("Gateway accepted order %s but returned no payment link", externalOrderID),
		ErrMissingPaymentLink,
	)
}

func NewSignatureError() *PaymentError {
	return NewPaymentError(
		ErrCodeSignature,
		"Webhook signature verification failed",
		ErrInvalidSignature,
	)
}

func NewOrderNotFoundError(externalOrderID string) *PaymentError {
	return NewPaymentError(
		ErrCodeNotFound,
		fmt.Sprintf("No ledger entry for external order id %s", externalOrderID),
		ErrOrderNotFound,
	)
}

func NewInvalidReferenceError(kind string) *PaymentError {
	return NewPaymentError(
		ErrCodeInvalidReference,
		fmt.Sprintf("Unknown reference kind: %s", kind),
		ErrInvalidReference,
	)
}
