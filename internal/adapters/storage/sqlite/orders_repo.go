package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stepflow-go/stepflow/internal/orders"
)

// OrdersRepository implements orders.Repository on top of Store. Writes
// issued during a command pipeline pick up the invocation's transaction
// from the context.
type OrdersRepository struct {
	store *Store
}

var _ orders.Repository = (*OrdersRepository)(nil)

// NewOrdersRepository creates the repository.
func NewOrdersRepository(store *Store) *OrdersRepository {
	return &OrdersRepository{store: store}
}

type userRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Active bool   `db:"active"`
}

type orderRow struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    float64   `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// FindUser loads one user by ID.
func (r *OrdersRepository) FindUser(ctx context.Context, id int64) (*orders.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.store.querier(ctx), &row,
		`SELECT id, name, active FROM users WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, orders.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &orders.User{ID: row.ID, Name: row.Name, Active: row.Active}, nil
}

// FindOrders returns a user's orders, oldest first.
func (r *OrdersRepository) FindOrders(ctx context.Context, userID int64) ([]orders.Order, error) {
	var rows []orderRow
	err := sqlx.SelectContext(ctx, r.store.querier(ctx), &rows,
		`SELECT id, user_id, amount, created_at FROM orders WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("find orders for user %d: %w", userID, err)
	}

	out := make([]orders.Order, len(rows))
	for i, row := range rows {
		out[i] = orders.Order{
			ID:        row.ID,
			UserID:    row.UserID,
			Amount:    row.Amount,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

// SaveOrder persists an order.
func (r *OrdersRepository) SaveOrder(ctx context.Context, o *orders.Order) error {
	_, err := r.store.querier(ctx).ExecContext(ctx,
		`INSERT INTO orders (id, user_id, amount, created_at) VALUES (?, ?, ?, ?)`,
		o.ID, o.UserID, o.Amount, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

// SaveUser persists a user. Used by seeding and tests.
func (r *OrdersRepository) SaveUser(ctx context.Context, u *orders.User) error {
	_, err := r.store.querier(ctx).ExecContext(ctx,
		`INSERT INTO users (id, name, active) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.Active)
	if err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return nil
}
