// Package ports defines the contracts between the pipeline engine and its
// collaborators: steps, the transaction boundary, and the event sink.
package ports

import (
	"context"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/execctx"
)

// Step is one unit of pipeline work on the read side.
//
// A Step instance is constructed once and reused across invocations, which
// may run concurrently; it must therefore hold no invocation-scoped mutable
// state. Everything per-call lives in the execctx.Context argument. A step
// signals an expected, classified failure through the returned Result;
// anything it panics with is converted by the pipeline into a system
// failure with a generic message.
type Step interface {
	// Name returns the step's identifier, used in logs and traces.
	Name() string
	// Execute runs the step against the invocation's context.
	Execute(ctx context.Context, ec *execctx.Context) domain.Result
}

// CommandStep is one unit of pipeline work on the write side. It differs
// from Step only in the context type: command steps may append events and
// read audit metadata.
type CommandStep interface {
	Name() string
	Execute(ctx context.Context, cc *execctx.CommandContext) domain.Result
}

type stepFunc struct {
	name string
	fn   func(ctx context.Context, ec *execctx.Context) domain.Result
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Execute(ctx context.Context, ec *execctx.Context) domain.Result {
	return s.fn(ctx, ec)
}

// StepFunc adapts a function to the Step interface.
func StepFunc(name string, fn func(ctx context.Context, ec *execctx.Context) domain.Result) Step {
	return stepFunc{name: name, fn: fn}
}

type commandStepFunc struct {
	name string
	fn   func(ctx context.Context, cc *execctx.CommandContext) domain.Result
}

func (s commandStepFunc) Name() string { return s.name }

func (s commandStepFunc) Execute(ctx context.Context, cc *execctx.CommandContext) domain.Result {
	return s.fn(ctx, cc)
}

// CommandStepFunc adapts a function to the CommandStep interface.
func CommandStepFunc(name string, fn func(ctx context.Context, cc *execctx.CommandContext) domain.Result) CommandStep {
	return commandStepFunc{name: name, fn: fn}
}
