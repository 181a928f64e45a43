// Package sqlite provides the SQLite storage adapter: the transaction
// boundary used by command pipelines plus the demo repositories.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
)

// Store wraps a SQLite database. It implements ports.TxManager and the
// repository interfaces consumed by the demo use cases.
type Store struct {
	db *sqlx.DB
}

var _ ports.TxManager = (*Store)(nil)

// New opens (or creates) the database at dsn and initializes the schema.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sqlx.DB for advanced operations.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
id INTEGER PRIMARY KEY,
name TEXT NOT NULL,
active INTEGER NOT NULL DEFAULT 1
)`,
		`CREATE TABLE IF NOT EXISTS orders (
id TEXT PRIMARY KEY,
user_id INTEGER NOT NULL,
amount REAL NOT NULL,
created_at TIMESTAMP NOT NULL,
FOREIGN KEY (user_id) REFERENCES users(id)
)`,
		`CREATE TABLE IF NOT EXISTS events (
id TEXT PRIMARY KEY,
name TEXT NOT NULL,
occurred_at TIMESTAMP NOT NULL,
payload TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	return nil
}

// txKey carries the active transaction through the context passed to the
// pipeline's step sequence.
type txKey struct{}

// TxFrom returns the transaction carried by ctx, if any. Repositories use it
// to join the invocation's transaction.
func TxFrom(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// WithinTx implements ports.TxManager. The transaction is committed when fn
// returns nil and rolled back on error or panic; it is released on every
// exit path.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// querier returns the invocation's transaction when present, falling back
// to the pooled connection for reads outside a boundary.
func (s *Store) querier(ctx context.Context) sqlx.ExtContext {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return s.db
}

// AppendEvents persists domain events. Called by the direct event sink after
// a command has committed, so it runs outside the command's transaction.
func (s *Store) AppendEvents(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		_, err = s.querier(ctx).ExecContext(ctx,
			`INSERT INTO events (id, name, occurred_at, payload) VALUES (?, ?, ?, ?)`,
			e.ID, e.Name, e.OccurredAt, string(payload))
		if err != nil {
			return fmt.Errorf("append event %s: %w", e.ID, err)
		}
	}
	return nil
}

// CountEvents returns the number of persisted events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, s.querier(ctx), &n, `SELECT COUNT(*) FROM events`)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
