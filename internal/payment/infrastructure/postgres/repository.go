package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acmeshop/orderflow/internal/payment/application"
	"github.com/acmeshop/orderflow/internal/payment/domain"
	"github.com/acmeshop/orderflow/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) SaveWithEvents(ctx context.Context, p *domain.Payment, events ...application.StagedEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, order_id, user_id, amount, currency, status, external_ref, failure_reason, created_at, updated_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			external_ref = EXCLUDED.external_ref,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at`,
		p.ID, p.OrderID, p.UserID, p.Amount.Amount, p.Amount.Currency,
		p.Status, p.ExternalRef, p.FailureReason, p.CreatedAt, p.UpdatedAt, p.CompletedAt)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := outbox.Stage(ctx, tx, "payment", p.OrderID, ev.Type, ev.Payload); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return r.one(ctx, `WHERE id = $1`, id)
}

func (r *Repository) GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.one(ctx, `WHERE order_id = $1`, orderID)
}

func (r *Repository) one(ctx context.Context, where string, arg any) (*domain.Payment, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, user_id, amount, currency, status, external_ref, failure_reason, created_at, updated_at, completed_at
		FROM payments `+where, arg).
		Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount.Amount, &p.Amount.Currency,
			&p.Status, &p.ExternalRef, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
