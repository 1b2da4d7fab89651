package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// PAYMENT ORDER REPOSITORY IMPLEMENTATION
// =====================================================
type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepoInterface {
	return &orderRepository{pool: pool}
}

const orderColumns = `
	id, external_order_id, reference_kind, reference_id,
	amount, currency, customer_id, customer_name, customer_email, customer_phone,
	status, gateway_metadata, reconcile_source, reconciled_at,
	created_at, updated_at
`

// Create persists a ledger entry
func (r *orderRepository) Create(ctx context.Context, order *model.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (
			id, external_order_id, reference_kind, reference_id,
			amount, currency, customer_id, customer_name, customer_email, customer_phone,
			status, gateway_metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	metadataJSON, err := json.Marshal(order.GatewayMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway_metadata: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		order.ID,
		order.ExternalOrderID,
		order.ReferenceKind,
		order.ReferenceID,
		order.Amount,
		order.Currency,
		order.CustomerID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.Status,
		metadataJSON,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create payment order: %w", err)
	}

	return nil
}

// GetByID gets a ledger entry by local id
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_orders WHERE id = $1`, orderColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByExternalOrderID looks an entry up by the provider-echoed order id.
// Duplicates are tolerated: non-terminal entries sort first, newest wins.
// This is lookup policy, not a uniqueness constraint.
func (r *orderRepository) GetByExternalOrderID(
	ctx context.Context,
	externalOrderID string,
) (*model.PaymentOrder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_orders
		WHERE external_order_id = $1
		ORDER BY (status IN ('Paid', 'Failed')) ASC, created_at DESC
		LIMIT 1
	`, orderColumns)

	return r.scanOne(r.pool.QueryRow(ctx, query, externalOrderID))
}

// GetLiveByReference returns the latest non-terminal entry for a reference
func (r *orderRepository) GetLiveByReference(
	ctx context.Context,
	kind, id string,
) (*model.PaymentOrder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_orders
		WHERE reference_kind = $1
			AND reference_id = $2
			AND status NOT IN ('Paid', 'Failed')
		ORDER BY created_at DESC
		LIMIT 1
	`, orderColumns)

	return r.scanOne(r.pool.QueryRow(ctx, query, kind, id))
}

// Transition applies a status change. The WHERE clause makes re-delivery of
// the current status a no-op without read-modify-write races; concurrent
// redirect and webhook paths both pass through here.
func (r *orderRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	newStatus, source string,
) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = $2,
			reconcile_source = $3,
			reconciled_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status IS DISTINCT FROM $2
	`

	result, err := r.pool.Exec(ctx, query, id, newStatus, source)
	if err != nil {
		return false, fmt.Errorf("failed to transition payment order: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListStaleInitiated lists Initiated entries older than the cutoff
func (r *orderRepository) ListStaleInitiated(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*model.PaymentOrder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_orders
		WHERE status = 'Initiated' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, orderColumns)

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payment orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.PaymentOrder
	for rows.Next() {
		order, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// =====================================================
// SCAN HELPERS
// =====================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *orderRepository) scanOne(row rowScanner) (*model.PaymentOrder, error) {
	order := &model.PaymentOrder{}
	var metadataJSON []byte

	err := row.Scan(
		&order.ID,
		&order.ExternalOrderID,
		&order.ReferenceKind,
		&order.ReferenceID,
		&order.Amount,
		&order.Currency,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.Status,
		&metadataJSON,
		&order.ReconcileSource,
		&order.ReconciledAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan payment order: %w", err)
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &order.GatewayMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal gateway_metadata: %w", err)
		}
	}

	return order, nil
}
