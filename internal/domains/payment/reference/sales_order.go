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
// SALES ORDER ADAPTER
// =====================================================

// SalesOrder adapts a sales_orders row to the Document interface.
// Amount candidates, in order: grand_total, rounded_total, total.
type SalesOrder struct {
	id          string
	grandTotal  *decimal.Decimal
	roundedTot  *decimal.Decimal
	total       *decimal.Decimal
	currency    *string
	customerID  *string
	customer    *string
	contactMail *string
	contactTel  *string
}

func (s *SalesOrder) Kind() string { return model.ReferenceKindSalesOrder }
func (s *SalesOrder) ID() string   { return s.id }

func (s *SalesOrder) Amount() decimal.Decimal {
	return firstPositive(s.grandTotal, s.roundedTot, s.total)
}

func (s *SalesOrder) Currency() string {
	if s.currency == nil {
		return ""
	}
	return *s.currency
}

func (s *SalesOrder) Contact() ContactInfo {
	info := ContactInfo{}
	if s.customerID != nil {
		info.CustomerID = *s.customerID
	}
	if s.customer != nil {
		info.Name = *s.customer
	}
	if s.contactMail != nil {
		info.Email = *s.contactMail
	}
	if s.contactTel != nil {
		info.Phone = *s.contactTel
	}
	return info
}

func (s *SalesOrder) RedirectPath(succeeded bool) string {
	if succeeded {
		return fmt.Sprintf("/sales-order/%s", s.id)
	}
	return fmt.Sprintf("/sales-order/%s?payment_failed=1", s.id)
}

// =====================================================
// LOADER
// =====================================================

type SalesOrderLoader struct {
	pool *pgxpool.Pool
}

func NewSalesOrderLoader(pool *pgxpool.Pool) *SalesOrderLoader {
	return &SalesOrderLoader{pool: pool}
}

func (l *SalesOrderLoader) Load(ctx context.Context, id string) (Document, error) {
	query := `
		SELECT id, grand_total, rounded_total, total, currency,
			customer_id, customer_name, contact_email, contact_phone
		FROM sales_orders
		WHERE id = $1
	`

	doc := &SalesOrder{}
	err := l.pool.QueryRow(ctx, query, id).Scan(
		&doc.id,
		&doc.grandTotal,
		&doc.roundedTot,
		&doc.total,
		&doc.currency,
		&doc.customerID,
		&doc.customer,
		&doc.contactMail,
		&doc.contactTel,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to load sales order: %w", err)
	}

	return doc, nil
}
