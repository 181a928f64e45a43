package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event appended to a command's context during step
// execution. Events are dispatched to the configured sink only after the
// command's transaction has committed.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Name is the event type, e.g. "order.placed".
	Name string `json:"name"`

	// OccurredAt is when the event was appended.
	OccurredAt time.Time `json:"occurred_at"`

	// Payload carries event-specific data.
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(name string, payload map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Audit describes who initiated a command and under which transaction.
type Audit struct {
	// ActorID identifies the initiating principal.
	ActorID string `json:"actor_id"`

	// Source names the entry point, e.g. "http" or "cli".
	Source string `json:"source"`

	// InitiatedAt is when the command entered the pipeline.
	InitiatedAt time.Time `json:"initiated_at"`

	// TxID identifies the invocation for correlation.
	TxID string `json:"tx_id"`
}

// NewAudit creates audit metadata with a fresh transaction ID.
func NewAudit(actorID, source string) Audit {
	return Audit{
		ActorID:     actorID,
		Source:      source,
		InitiatedAt: time.Now().UTC(),
		TxID:        uuid.New().String(),
	}
}
