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
// SHOPPING CART ADAPTER
// =====================================================

// Cart adapts an open shopping cart row. Amount candidates, in order:
// grand_total, subtotal. Carts rarely carry contact data; the builder's
// placeholders cover the gaps.
type Cart struct {
	id         string
	grandTotal *decimal.Decimal
	subtotal   *decimal.Decimal
	currency   *string
	ownerEmail *string
}

func (c *Cart) Kind() string { return model.ReferenceKindCart }
func (c *Cart) ID() string   { return c.id }

func (c *Cart) Amount() decimal.Decimal {
	return firstPositive(c.grandTotal, c.subtotal)
}

func (c *Cart) Currency() string {
	if c.currency == nil {
		return ""
	}
	return *c.currency
}

func (c *Cart) Contact() ContactInfo {
	info := ContactInfo{}
	if c.ownerEmail != nil {
		info.CustomerID = *c.ownerEmail
		info.Email = *c.ownerEmail
	}
	return info
}

func (c *Cart) RedirectPath(succeeded bool) string {
	if succeeded {
		return "/checkout/success"
	}
	return fmt.Sprintf("/cart/%s?payment_failed=1", c.id)
}

// =====================================================
// LOADER
// =====================================================

type CartLoader struct {
	pool *pgxpool.Pool
}

func NewCartLoader(pool *pgxpool.Pool) *CartLoader {
	return &CartLoader{pool: pool}
}

func (l *CartLoader) Load(ctx context.Context, id string) (Document, error) {
	query := `
		SELECT id, grand_total, subtotal, currency, owner_email
		FROM carts
		WHERE id = $1
	`

	doc := &Cart{}
	err := l.pool.QueryRow(ctx, query, id).Scan(
		&doc.id,
		&doc.grandTotal,
		&doc.subtotal,
		&doc.currency,
		&doc.ownerEmail,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return doc, nil
}
