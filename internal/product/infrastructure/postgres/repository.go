package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acmeshop/orderflow/internal/product/application"
	"github.com/acmeshop/orderflow/internal/product/domain"
	"github.com/acmeshop/orderflow/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price, stock_quantity, is_active, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SaveWithEvents(ctx context.Context, p *domain.Product, events ...application.StagedEvent) error {
	return r.inTx(ctx, p, events, nil)
}

func (r *Repository) SaveWithReservation(ctx context.Context, p *domain.Product, orderID string, quantity int, events ...application.StagedEvent) error {
	return r.inTx(ctx, p, events, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_reservations (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (order_id, product_id) DO NOTHING`,
			orderID, p.ID, quantity)
		return err
	})
}

func (r *Repository) SaveWithRelease(ctx context.Context, p *domain.Product, orderID string) error {
	return r.inTx(ctx, p, nil, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM stock_reservations
			WHERE order_id = $1 AND product_id = $2`,
			orderID, p.ID)
		return err
	})
}

func (r *Repository) ReservationsByOrder(ctx context.Context, orderID string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, quantity
		FROM stock_reservations WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var productID string
		var quantity int
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, err
		}
		out[productID] = quantity
	}
	return out, rows.Err()
}

// inTx upserts the product, runs extra (when set) and stages events, all
// in one transaction.
func (r *Repository) inTx(ctx context.Context, p *domain.Product, events []application.StagedEvent, extra func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO products (id, name, price, stock_quantity, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Price, p.StockQuantity, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}

	if extra != nil {
		if err := extra(tx); err != nil {
			return err
		}
	}
	for _, ev := range events {
		if err := outbox.Stage(ctx, tx, "product", p.ID, ev.Type, ev.Payload); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Publisher stages events that are not tied to a product row, such as
// reservation failures for unknown products.
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
