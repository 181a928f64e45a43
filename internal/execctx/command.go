package execctx

import "github.com/stepflow-go/stepflow/internal/core/domain"

// CommandContext is the write-side execution context. On top of the shared
// key/value store it carries audit metadata and an append-only list of
// domain events accumulated during step execution. Events are dispatched
// only after the surrounding transaction commits.
type CommandContext struct {
	*Context

	audit  domain.Audit
	events []domain.Event
}

// NewCommand creates a command context with the given audit metadata.
func NewCommand(audit domain.Audit) *CommandContext {
	return &CommandContext{
		Context: New(),
		audit:   audit,
	}
}

// Audit returns the audit metadata for this invocation.
func (c *CommandContext) Audit() domain.Audit {
	return c.audit
}

// AppendEvent records a domain event. Events are append-only for the
// lifetime of the invocation.
func (c *CommandContext) AppendEvent(e domain.Event) {
	c.events = append(c.events, e)
}

// Events returns a copy of the accumulated events in append order.
func (c *CommandContext) Events() []domain.Event {
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}
