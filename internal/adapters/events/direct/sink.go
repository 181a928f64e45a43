// Package direct provides an event sink that writes events straight to
// storage. This is the default sink for single-instance deployments; a
// broker-backed sink would implement the same port.
package direct

import (
	"context"
	"fmt"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
)

// EventStore persists domain events.
type EventStore interface {
	AppendEvents(ctx context.Context, events []domain.Event) error
}

// Sink implements ports.EventSink by appending events to an EventStore.
type Sink struct {
	store EventStore
}

var _ ports.EventSink = (*Sink)(nil)

// NewSink creates a direct event sink.
func NewSink(store EventStore) (*Sink, error) {
	if store == nil {
		return nil, fmt.Errorf("event store required")
	}
	return &Sink{store: store}, nil
}

// Publish writes the events to storage. The engine calls it only after the
// originating command has committed.
func (s *Sink) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.store.AppendEvents(ctx, events)
}
