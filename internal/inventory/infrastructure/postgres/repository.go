package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acmeshop/orderflow/internal/inventory/application"
	"github.com/acmeshop/orderflow/internal/inventory/domain"
	"github.com/acmeshop/orderflow/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx application.Tx) error) error {
	pgTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = pgTx.Rollback(ctx)
	}()

	if err := fn(&ledgerTx{tx: pgTx}); err != nil {
		return err
	}
	return pgTx.Commit(ctx)
}

func (r *Repository) CreateItemIfAbsent(ctx context.Context, item *domain.InventoryItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_items (product_id, quantity_on_hand, quantity_reserved, reorder_level, reorder_quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (product_id) DO NOTHING`,
		item.ProductID, item.QuantityOnHand, item.QuantityReserved,
		item.ReorderLevel, item.ReorderQuantity, item.CreatedAt, item.UpdatedAt)
	return err
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) ItemForUpdate(ctx context.Context, productID string) (*domain.InventoryItem, error) {
	var it domain.InventoryItem
	err := t.tx.QueryRow(ctx, `
		SELECT product_id, quantity_on_hand, quantity_reserved, reorder_level, reorder_quantity, created_at, updated_at
		FROM inventory_items WHERE product_id = $1
		FOR UPDATE`, productID).
		Scan(&it.ProductID, &it.QuantityOnHand, &it.QuantityReserved,
			&it.ReorderLevel, &it.ReorderQuantity, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (t *ledgerTx) SaveItem(ctx context.Context, it *domain.InventoryItem) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inventory_items
		SET quantity_on_hand = $2, quantity_reserved = $3, updated_at = $4
		WHERE product_id = $1`,
		it.ProductID, it.QuantityOnHand, it.QuantityReserved, it.UpdatedAt)
	return err
}

func (t *ledgerTx) InsertReservation(ctx context.Context, res *domain.Reservation) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_reservations (id, order_id, product_id, quantity, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		res.ID, res.OrderID, res.ProductID, res.Quantity, res.Status, res.CreatedAt, res.ExpiresAt)
	return err
}

func (t *ledgerTx) UpdateReservation(ctx context.Context, res *domain.Reservation) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inventory_reservations
		SET status = $2, fulfilled_at = $3, canceled_at = $4
		WHERE id = $1`,
		res.ID, res.Status, res.FulfilledAt, res.CanceledAt)
	return err
}

func (t *ledgerTx) ReservedByOrder(ctx context.Context, orderID string) ([]*domain.Reservation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, status, created_at, expires_at, fulfilled_at, canceled_at
		FROM inventory_reservations
		WHERE order_id = $1 AND status = 'reserved'
		ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (t *ledgerTx) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, status, created_at, expires_at, fulfilled_at, canceled_at
		FROM inventory_reservations
		WHERE status = 'reserved' AND expires_at < $1
		ORDER BY expires_at
		FOR UPDATE SKIP LOCKED
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (t *ledgerTx) StageEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error {
	return outbox.Stage(ctx, t.tx, "order", aggregateID, eventType, payload)
}

func scanReservations(rows pgx.Rows) ([]*domain.Reservation, error) {
	var out []*domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.OrderID, &res.ProductID, &res.Quantity, &res.Status,
			&res.CreatedAt, &res.ExpiresAt, &res.FulfilledAt, &res.CanceledAt); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

// Publisher stages failure events after the ledger transaction has
// already rolled back.
type Publisher struct {
	pool *pgxpool.Pool
}

func NewPublisher(pool *pgxpool.Pool) *Publisher {
	return &Publisher{pool: pool}
}

func (p *Publisher) Publish(ctx context.Context, orderID, eventType string, payload []byte) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := outbox.Stage(ctx, tx, "order", orderID, eventType, payload); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
