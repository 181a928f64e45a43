package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
)

// msgSystemCommand is the caller-safe message for unexpected failures inside
// a command.
const msgSystemCommand = "system error during command"

// CommandConfig assembles a transactional write pipeline.
type CommandConfig[In, Out any] struct {
	// Name identifies the pipeline in logs and traces.
	Name string

	// Validate checks the command before any step runs. Optional.
	Validate func(in In) domain.Result

	// Steps resolves the ordered step list for one call, exactly once.
	// Required.
	Steps func(in In, cc *execctx.CommandContext) []ports.CommandStep

	// BuildResponse assembles the response inside the transaction, after
	// all steps succeeded. Required.
	BuildResponse func(cc *execctx.CommandContext) (Out, error)

	// Tx supplies the transaction boundary wrapping validation, step
	// execution, and response assembly. Required.
	Tx ports.TxManager

	// Audit derives audit metadata from the command. Optional; defaults to
	// an anonymous actor with source "unknown".
	Audit func(in In) domain.Audit

	// Sink receives the accumulated events after a successful commit.
	// Optional.
	Sink ports.EventSink

	// PostExecute runs after commit and event dispatch, outside the
	// transaction. Optional. It never runs for a failed command.
	PostExecute func(ctx context.Context, cc *execctx.CommandContext)

	// Logger receives diagnostic detail for masked system errors and
	// post-commit failures. Defaults to slog.Default.
	Logger *slog.Logger
}

// Command orchestrates a transactional write use case. Validation, step
// execution, and response assembly run inside one transaction boundary; the
// event sink and the post-execution hook run only once the transaction has
// committed. A Command holds no per-invocation state and may be shared
// across concurrent callers.
type Command[In, Out any] struct {
	name          string
	validate      func(In) domain.Result
	steps         func(In, *execctx.CommandContext) []ports.CommandStep
	buildResponse func(*execctx.CommandContext) (Out, error)
	tx            ports.TxManager
	audit         func(In) domain.Audit
	sink          ports.EventSink
	postExecute   func(context.Context, *execctx.CommandContext)
	logger        *slog.Logger
}

// NewCommand creates a command pipeline from cfg.
func NewCommand[In, Out any](cfg CommandConfig[In, Out]) (*Command[In, Out], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("pipeline name required")
	}
	if cfg.Steps == nil {
		return nil, fmt.Errorf("pipeline %s: step resolver required", cfg.Name)
	}
	if cfg.BuildResponse == nil {
		return nil, fmt.Errorf("pipeline %s: response builder required", cfg.Name)
	}
	if cfg.Tx == nil {
		return nil, fmt.Errorf("pipeline %s: transaction manager required", cfg.Name)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Command[In, Out]{
		name:          cfg.Name,
		validate:      cfg.Validate,
		steps:         cfg.Steps,
		buildResponse: cfg.BuildResponse,
		tx:            cfg.Tx,
		audit:         cfg.Audit,
		sink:          cfg.Sink,
		postExecute:   cfg.PostExecute,
		logger:        logger,
	}, nil
}

// Name returns the pipeline name.
func (c *Command[In, Out]) Name() string {
	return c.name
}

// Execute runs one command invocation. All step side effects and the
// response assembly commit together or roll back together; events reach the
// sink and PostExecute runs only after a successful commit.
func (c *Command[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	var zero Out

	audit := domain.NewAudit("anonymous", "unknown")
	if c.audit != nil {
		audit = c.audit(in)
	}
	cc := execctx.NewCommand(audit)
	cc.Put(execctx.KeyRequest, in)

	var out Out
	txErr := c.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if c.validate != nil {
			if res := c.validate(in); res.Failed() {
				return res.Err()
			}
		}

		steps := c.steps(in, cc)
		for _, step := range steps {
			res := c.runStep(txCtx, step, cc)
			if res.Failed() {
				return res.Err()
			}
		}

		built, err := c.assemble(cc)
		if err != nil {
			return err
		}
		out = built
		return nil
	})
	if txErr != nil {
		if classified, ok := domain.AsClassified(txErr); ok {
			return zero, classified
		}
		// Infrastructure failure from the boundary itself (begin/commit).
		c.logger.Error("transaction boundary failed",
			slog.String("pipeline", c.name),
			slog.String("tx_id", audit.TxID),
			slog.String("error", txErr.Error()),
		)
		return zero, domain.ErrSystem(msgSystemCommand).WithCause(txErr)
	}

	c.afterCommit(ctx, cc)
	return out, nil
}

// Handler returns the pipeline entry point as a Handler for middleware
// composition.
func (c *Command[In, Out]) Handler() Handler[In, Out] {
	return c.Execute
}

func (c *Command[In, Out]) runStep(ctx context.Context, step ports.CommandStep, cc *execctx.CommandContext) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("step panicked",
				slog.String("pipeline", c.name),
				slog.String("step", step.Name()),
				slog.String("tx_id", cc.Audit().TxID),
				slog.Any("panic", r),
			)
			res = domain.SystemFailure(msgSystemCommand)
		}
	}()
	return step.Execute(ctx, cc)
}

// assemble builds the response inside the transaction, converting panics
// and unclassified errors into a masked system failure.
func (c *Command[In, Out]) assemble(cc *execctx.CommandContext) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("response assembly panicked",
				slog.String("pipeline", c.name),
				slog.String("tx_id", cc.Audit().TxID),
				slog.Any("panic", r),
			)
			var zero Out
			out, err = zero, domain.ErrSystem(msgSystemCommand)
		}
	}()

	out, err = c.buildResponse(cc)
	if err != nil {
		if classified, ok := domain.AsClassified(err); ok {
			var zero Out
			return zero, classified
		}
		c.logger.Error("response assembly failed",
			slog.String("pipeline", c.name),
			slog.String("tx_id", cc.Audit().TxID),
			slog.String("error", err.Error()),
		)
		var zero Out
		return zero, domain.ErrSystem(msgSystemCommand).WithCause(err)
	}
	return out, nil
}

// afterCommit dispatches events and runs the post-execution hook. The
// command has already committed, so failures here are logged, not returned.
func (c *Command[In, Out]) afterCommit(ctx context.Context, cc *execctx.CommandContext) {
	if c.sink != nil {
		if events := cc.Events(); len(events) > 0 {
			if err := c.sink.Publish(ctx, events); err != nil {
				c.logger.Error("event dispatch failed",
					slog.String("pipeline", c.name),
					slog.String("tx_id", cc.Audit().TxID),
					slog.Int("events", len(events)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	if c.postExecute != nil {
		c.postExecute(ctx, cc)
	}
}
