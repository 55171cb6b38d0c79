package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acmeshop/orderflow/internal/order/application"
	"github.com/acmeshop/orderflow/internal/order/domain"
	"github.com/acmeshop/orderflow/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) SaveWithEvents(ctx context.Context, o *domain.Order, events ...application.StagedEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, customer_email, customer_name, total_amount, currency, status, cancellation_reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			status = EXCLUDED.status,
			cancellation_reason = EXCLUDED.cancellation_reason,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.CustomerID, o.CustomerEmail, o.CustomerName, o.TotalAmount, o.Currency,
		o.Status, o.CancellationReason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	// Items are replaced wholesale; RemoveItem would otherwise leave
	// stale rows behind an upsert.
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	for _, ev := range events {
		if err := outbox.Stage(ctx, tx, "order", o.ID, ev.Type, ev.Payload); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, customer_email, customer_name, total_amount, currency, status, cancellation_reason, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerID, &o.CustomerEmail, &o.CustomerName, &o.TotalAmount, &o.Currency,
			&o.Status, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, unit_price, quantity
		FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}
