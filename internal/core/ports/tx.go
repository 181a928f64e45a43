package ports

import "context"

// TxManager is the transaction boundary provider for command pipelines.
//
// WithinTx begins a transaction, runs fn, and commits when fn returns nil.
// When fn returns an error or panics, the transaction is rolled back and the
// error (or panic) is propagated. Implementations must release the
// transaction on every exit path. The context passed to fn carries the
// active transaction for repositories to pick up.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
