package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// INVOICE ADAPTER
// =====================================================

// Invoice adapts an invoices row. Amount candidates, in order:
// outstanding_amount, grand_total, total.
type Invoice struct {
	id          string
	outstanding *decimal.Decimal
	grandTotal  *decimal.Decimal
	total       *decimal.Decimal
	currency    *string
	customerID  *string
	customer    *string
	email       *string
	phone       *string
}

func (i *Invoice) Kind() string { return model.ReferenceKindInvoice }
func (i *Invoice) ID() string   { return i.id }

func (i *Invoice) Amount() decimal.Decimal {
	return firstPositive(i.outstanding, i.grandTotal, i.total)
}

func (i *Invoice) Currency() string {
	if i.currency == nil {
		return ""
	}
	return *i.currency
}

func (i *Invoice) Contact() ContactInfo {
	info := ContactInfo{}
	if i.customerID != nil {
		info.CustomerID = *i.customerID
	}
	if i.customer != nil {
		info.Name = *i.customer
	}
	if i.email != nil {
		info.Email = *i.email
	}
	if i.phone != nil {
		info.Phone = *i.phone
	}
	return info
}

func (i *Invoice) RedirectPath(succeeded bool) string {
	if succeeded {
		return fmt.Sprintf("/invoice/%s", i.id)
	}
	return fmt.Sprintf("/invoice/%s?payment_failed=1", i.id)
}

// =====================================================
// LOADER
// =====================================================

type InvoiceLoader struct {
	pool *pgxpool.Pool
}

func NewInvoiceLoader(pool *pgxpool.Pool) *InvoiceLoader {
	return &InvoiceLoader{pool: pool}
}

func (l *InvoiceLoader) Load(ctx context.Context, id string) (Document, error) {
	query := `
		SELECT id, outstanding_amount, grand_total, total, currency,
			customer_id, customer_name, contact_email, contact_phone
		FROM invoices
		WHERE id = $1
	`

	doc := &Invoice{}
	err := l.pool.QueryRow(ctx, query, id).Scan(
		&doc.id,
		&doc.outstanding,
		&doc.grandTotal,
		&doc.total,
		&doc.currency,
		&doc.customerID,
		&doc.customer,
		&doc.email,
		&doc.phone,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}

	return doc, nil
}
