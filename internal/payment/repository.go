package payment

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Repository journals inbound provider notifications.
type Repository interface {
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		externalID string,
		payload json.RawMessage,
		signatureValid bool,
	) (webhookID int64, isDuplicate bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	externalID string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_type,
		event_id,
		external_id,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET provider = EXCLUDED.provider
	RETURNING id, (xmax <> 0) AS duplicate;
	`

	// the no-op update hands back the id of the first delivery, xmax is set
	// only on rows that already existed
	var (
		id        int64
		duplicate bool
	)
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		eventType,
		eventID,
		externalID,
		signatureValid,
		[]byte(payload),
	).Scan(&id, &duplicate)
	if err != nil {
		return 0, false, err
	}

	return id, duplicate, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `UPDATE payment_webhooks SET processed_at = now(), process_error = NULL WHERE id = $1`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `UPDATE payment_webhooks SET process_error = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
