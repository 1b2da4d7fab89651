package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cashfree-gateway/internal/domains/payment/model"
)

// =====================================================
// WEBHOOK LOG REPOSITORY IMPLEMENTATION
// =====================================================
type webhookRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookRepository(pool *pgxpool.Pool) WebhookRepoInterface {
	return &webhookRepository{pool: pool}
}

// Create records one webhook delivery
func (r *webhookRepository) Create(ctx context.Context, log *model.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (
			id, payment_order_id, event_type, external_order_id,
			body, signature, timestamp, is_valid, is_processed, processing_error,
			received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.PaymentOrderID,
		log.EventType,
		log.ExternalOrderID,
		log.Body,
		log.Signature,
		log.Timestamp,
		log.IsValid,
		log.IsProcessed,
		log.ProcessingError,
		log.ReceivedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}

	return nil
}

// MarkAsProcessed marks a delivery as fully handled
func (r *webhookRepository) MarkAsProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_logs
		SET is_processed = true, processing_error = NULL
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark webhook as processed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("webhook log %s not found", id)
	}

	return nil
}

// MarkProcessingError records a post-verification failure
func (r *webhookRepository) MarkProcessingError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE webhook_logs
		SET processing_error = $2
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, errorMsg); err != nil {
		return fmt.Errorf("failed to mark webhook processing error: %w", err)
	}

	return nil
}

// CheckIdempotency reports whether a delivery for (event, external order id)
// was already processed
func (r *webhookRepository) CheckIdempotency(
	ctx context.Context,
	eventType, externalOrderID string,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM webhook_logs
			WHERE event_type = $1
				AND external_order_id = $2
				AND is_processed = true
		)
	`

	var processed bool
	err := r.pool.QueryRow(ctx, query, eventType, externalOrderID).Scan(&processed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check webhook idempotency: %w", err)
	}

	return processed, nil
}

// GetFailedWebhooks lists valid but unprocessed deliveries for retry
func (r *webhookRepository) GetFailedWebhooks(ctx context.Context, limit int) ([]*model.WebhookLog, error) {
	query := `
		SELECT id, payment_order_id, event_type, external_order_id,
			body, signature, timestamp, is_valid, is_processed, processing_error,
			received_at
		FROM webhook_logs
		WHERE is_valid = true
			AND is_processed = false
			AND processing_error IS NOT NULL
		ORDER BY received_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed webhooks: %w", err)
	}
	defer rows.Close()

	var logs []*model.WebhookLog
	for rows.Next() {
		log := &model.WebhookLog{}
		err := rows.Scan(
			&log.ID,
			&log.PaymentOrderID,
			&log.EventType,
			&log.ExternalOrderID,
			&log.Body,
			&log.Signature,
			&log.Timestamp,
			&log.IsValid,
			&log.IsProcessed,
			&log.ProcessingError,
			&log.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook log: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
