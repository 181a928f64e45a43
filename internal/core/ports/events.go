package ports

import (
	"context"

	"github.com/stepflow-go/stepflow/internal/core/domain"
)

// EventSink consumes the domain events a command accumulated in its context.
// The engine invokes the sink exactly once per command, only after the
// transaction has committed; a failed or rolled-back command never reaches
// the sink.
type EventSink interface {
	Publish(ctx context.Context, events []domain.Event) error
}
