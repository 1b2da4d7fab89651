package service

import (
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"

	"cashfree-gateway/internal/domains/payment/gateway"
	"cashfree-gateway/internal/domains/payment/model"
	"cashfree-gateway/internal/domains/payment/reference"
)

// =====================================================
// ORDER BUILDER
// =====================================================

// CallbackURLs are the absolute endpoints Cashfree calls back on.
// The external order id is appended to the return URL as a query parameter
// so the redirect handler can correlate without trusting anything else.
type CallbackURLs struct {
	ReturnURL string
	NotifyURL string
}

// BuildOrder assembles the full Cashfree order payload from a reference
// document and the request overrides. Pure construction: no network, no
// persistence.
//
// Resolution order:
//   - amount: document candidates first, then the explicit override;
//     MissingAmountError when neither yields a positive value
//   - currency: override, document, then INR
//   - contact: override, document, bearer identity, then placeholders
func BuildOrder(
	doc reference.Document,
	req model.InitiatePaymentRequest,
	identity *model.CustomerIdentity,
	urls CallbackURLs,
) (*gateway.CreateOrderRequest, error) {
	amount := doc.Amount()
	if !amount.GreaterThan(decimal.Zero) && req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.GreaterThan(decimal.Zero) {
		return nil, model.NewMissingAmountError(doc.Kind(), doc.ID())
	}

	currency := req.Currency
	if currency == "" {
		currency = doc.Currency()
	}
	if currency == "" {
		currency = model.DefaultCurrency
	}

	externalOrderID := GenerateExternalOrderID(doc.ID())

	return &gateway.CreateOrderRequest{
		OrderID:         externalOrderID,
		OrderAmount:     amount,
		OrderCurrency:   currency,
		CustomerDetails: resolveCustomer(doc.Contact(), req, identity),
		OrderMeta: gateway.OrderMeta{
			ReturnURL: appendOrderID(urls.ReturnURL, externalOrderID),
			NotifyURL: urls.NotifyURL,
		},
		OrderNote: "Payment for " + doc.Kind() + " " + doc.ID(),
	}, nil
}

// resolveCustomer merges the contact sources. Placeholders fill whatever is
// left; missing contact info never blocks a payment.
func resolveCustomer(
	contact reference.ContactInfo,
	req model.InitiatePaymentRequest,
	identity *model.CustomerIdentity,
) gateway.CustomerDetails {
	details := gateway.CustomerDetails{
		CustomerID:    contact.CustomerID,
		CustomerName:  firstNonEmpty(req.CustomerName, contact.Name),
		CustomerEmail: firstNonEmpty(req.CustomerEmail, contact.Email),
		CustomerPhone: firstNonEmpty(req.CustomerPhone, contact.Phone),
	}

	if identity != nil {
		details.CustomerID = firstNonEmpty(details.CustomerID, identity.ID)
		details.CustomerName = firstNonEmpty(details.CustomerName, identity.Name)
		details.CustomerEmail = firstNonEmpty(details.CustomerEmail, identity.Email)
	}

	if details.CustomerID == "" {
		details.CustomerID = firstNonEmpty(details.CustomerEmail, "guest")
	}
	if details.CustomerName == "" {
		details.CustomerName = model.PlaceholderCustomerName
	}
	if details.CustomerPhone == "" {
		details.CustomerPhone = model.PlaceholderCustomerPhone
	}

	return details
}

// =====================================================
// EXTERNAL ORDER ID
// =====================================================

// GenerateExternalOrderID derives the provider-facing order id from the
// reference id: "CF-" + sanitized id + "-" + random suffix, capped at the
// provider's maximum length. Sanitization can collapse distinct reference
// ids onto the same stem; the random suffix keeps collisions unlikely but
// not impossible. Known limitation.
func GenerateExternalOrderID(referenceID string) string {
	stem := sanitizeOrderID(referenceID)

	maxStem := model.ExternalOrderIDMaxLen - len(model.ExternalOrderIDPrefix) - model.ExternalOrderIDSuffixLen - 1
	if len(stem) > maxStem {
		stem = stem[:maxStem]
	}

	return model.ExternalOrderIDPrefix + stem + "-" + randomSuffix(model.ExternalOrderIDSuffixLen)
}

// sanitizeOrderID keeps only the characters Cashfree accepts in order_id.
func sanitizeOrderID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}

func appendOrderID(url, externalOrderID string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "order_id=" + externalOrderID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
