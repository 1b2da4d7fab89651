package reference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// REFERENCE DOCUMENT ADAPTERS
// =====================================================

// ContactInfo is the customer block resolved from a reference document.
// Empty fields are filled with placeholders by the order builder; missing
// contact info never blocks a payment.
type ContactInfo struct {
	CustomerID string
	Name       string
	Email      string
	Phone      string
}

// Document is the capability interface a reference kind must implement.
// One implementation per supported kind, resolved through the registry,
// instead of probing attribute names at runtime.
type Document interface {
	Kind() string
	ID() string

	// Amount returns the first present positive value from the kind's
	// ordered candidate fields, or decimal.Zero when none resolve.
	Amount() decimal.Decimal

	// Currency returns the document currency, or "" when unset.
	Currency() string

	Contact() ContactInfo

	// RedirectPath is where the browser lands after reconciliation.
	RedirectPath(succeeded bool) string
}

// Loader fetches one document of a fixed kind.
type Loader interface {
	Load(ctx context.Context, id string) (Document, error)
}

// =====================================================
// REGISTRY
// =====================================================

// Registry dispatches reference kinds to their loaders.
type Registry struct {
	loaders map[string]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register binds a kind to its loader. Last registration wins.
func (r *Registry) Register(kind string, loader Loader) {
	r.loaders[kind] = loader
}

// Resolve loads the document for (kind, id). Unknown kinds fail with the
// invalid-reference error; a known kind with no matching row returns the
// loader's not-found error.
func (r *Registry) Resolve(ctx context.Context, kind, id string) (Document, error) {
	loader, ok := r.loaders[kind]
	if !ok {
		return nil, model.NewInvalidReferenceError(kind)
	}

	doc, err := loader.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}

	return doc, nil
}

// RegisterDefaultLoaders binds every supported reference kind to its
// database-backed loader.
func RegisterDefaultLoaders(r *Registry, pool *pgxpool.Pool) {
	r.Register(model.ReferenceKindSalesOrder, NewSalesOrderLoader(pool))
	r.Register(model.ReferenceKindInvoice, NewInvoiceLoader(pool))
	r.Register(model.ReferenceKindCart, NewCartLoader(pool))
}

// firstPositive returns the first non-nil positive amount from the ordered
// candidates, or decimal.Zero.
func firstPositive(candidates ...*decimal.Decimal) decimal.Decimal {
	for _, c := range candidates {
		if c != nil && c.GreaterThan(decimal.Zero) {
			return *c
		}
	}
	return decimal.Zero
}
