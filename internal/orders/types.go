// Package orders implements the demo read and write use cases built on the
// pipeline engine: a customer-summary query and a place-order command.
package orders

import (
	"context"
	"errors"
	"time"
)

// User is a customer account.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Order is one purchase by a user.
type Order struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrUserNotFound is returned by repositories when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// Repository is the persistence surface the use cases need. The sqlite
// adapter implements it; writes issued inside a command pipeline join the
// invocation's transaction.
type Repository interface {
	FindUser(ctx context.Context, id int64) (*User, error)
	FindOrders(ctx context.Context, userID int64) ([]Order, error)
	SaveOrder(ctx context.Context, o *Order) error
}

// SummaryRequest asks for a customer's purchase summary.
type SummaryRequest struct {
	UserID int64 `json:"user_id"`
}

// Summary is the customer-summary query response.
type Summary struct {
	User       User    `json:"user"`
	TotalSpent float64 `json:"totalSpent"`
	OrderCount int     `json:"orderCount"`
}

// PlaceOrderCommand requests a new order for a user.
type PlaceOrderCommand struct {
	UserID  int64   `json:"user_id"`
	Amount  float64 `json:"amount"`
	ActorID string  `json:"actor_id"`
}

// PlaceOrderReceipt is the place-order command response.
type PlaceOrderReceipt struct {
	OrderID string `json:"order_id"`
	TxID    string `json:"tx_id"`
}
