package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
)

// msgSystemQuery is the caller-safe message for unexpected failures inside a
// query. Internal detail goes to the logger only.
const msgSystemQuery = "system error during query"

// QueryConfig assembles a read-only pipeline from its collaborators.
type QueryConfig[In, Out any] struct {
	// Name identifies the pipeline in logs and traces.
	Name string

	// Validate checks the request before any step runs. Optional; nil means
	// every request is valid. A failed result aborts the call without
	// executing steps.
	Validate func(in In) domain.Result

	// Steps resolves the ordered step list for one call. The list may
	// depend on the request and on context state seeded so far; it is
	// resolved exactly once, before execution begins. Required.
	Steps func(in In, ec *execctx.Context) []ports.Step

	// BuildResponse assembles the response from the context after all
	// steps succeeded. Required.
	BuildResponse func(ec *execctx.Context) (Out, error)

	// Logger receives diagnostic detail for masked system errors.
	// Defaults to slog.Default.
	Logger *slog.Logger
}

// Query orchestrates validation, step execution, and response assembly for
// read-only use cases. A Query holds no per-invocation state and may be
// shared across concurrent callers.
type Query[In, Out any] struct {
	name          string
	validate      func(In) domain.Result
	steps         func(In, *execctx.Context) []ports.Step
	buildResponse func(*execctx.Context) (Out, error)
	logger        *slog.Logger
}

// NewQuery creates a query pipeline from cfg.
func NewQuery[In, Out any](cfg QueryConfig[In, Out]) (*Query[In, Out], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("pipeline name required")
	}
	if cfg.Steps == nil {
		return nil, fmt.Errorf("pipeline %s: step resolver required", cfg.Name)
	}
	if cfg.BuildResponse == nil {
		return nil, fmt.Errorf("pipeline %s: response builder required", cfg.Name)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Query[In, Out]{
		name:          cfg.Name,
		validate:      cfg.Validate,
		steps:         cfg.Steps,
		buildResponse: cfg.BuildResponse,
		logger:        logger,
	}, nil
}

// Name returns the pipeline name.
func (q *Query[In, Out]) Name() string {
	return q.name
}

// Execute runs one query invocation. It returns the assembled response or a
// classified error; on the first failure the remaining steps never run.
func (q *Query[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	var zero Out

	ec := execctx.New()
	ec.Put(execctx.KeyRequest, in)

	if q.validate != nil {
		if res := q.validate(in); res.Failed() {
			return zero, res.Err()
		}
	}

	steps := q.steps(in, ec)
	for _, step := range steps {
		res := q.runStep(ctx, step, ec)
		if res.Failed() {
			return zero, res.Err()
		}
	}

	out, err := q.assemble(ec)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// Handler returns the pipeline entry point as a Handler for middleware
// composition.
func (q *Query[In, Out]) Handler() Handler[In, Out] {
	return q.Execute
}

// runStep executes one step, converting panics into a masked system
// failure. The panic detail is logged, never surfaced.
func (q *Query[In, Out]) runStep(ctx context.Context, step ports.Step, ec *execctx.Context) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("step panicked",
				slog.String("pipeline", q.name),
				slog.String("step", step.Name()),
				slog.Any("panic", r),
			)
			res = domain.SystemFailure(msgSystemQuery)
		}
	}()
	return step.Execute(ctx, ec)
}

func (q *Query[In, Out]) assemble(ec *execctx.Context) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("response assembly panicked",
				slog.String("pipeline", q.name),
				slog.Any("panic", r),
			)
			var zero Out
			out, err = zero, domain.ErrSystem(msgSystemQuery)
		}
	}()

	out, err = q.buildResponse(ec)
	if err != nil {
		if classified, ok := domain.AsClassified(err); ok {
			var zero Out
			return zero, classified
		}
		q.logger.Error("response assembly failed",
			slog.String("pipeline", q.name),
			slog.String("error", err.Error()),
		)
		var zero Out
		return zero, domain.ErrSystem(msgSystemQuery).WithCause(err)
	}
	return out, nil
}
