package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
)

// Handler is a pipeline entry point: one request in, one response or one
// classified error out.
type Handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// Middleware wraps a Handler with cross-cutting behavior.
type Middleware[In, Out any] func(next Handler[In, Out]) Handler[In, Out]

// Chain applies middleware so that the first element is outermost.
func Chain[In, Out any](h Handler[In, Out], mws ...Middleware[In, Out]) Handler[In, Out] {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WithLogging logs each invocation with its duration and, on failure, the
// error classification and code.
func WithLogging[In, Out any](logger *slog.Logger, name string) Middleware[In, Out] {
	return func(next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			start := time.Now()
			logger.Info("pipeline started", slog.String("pipeline", name))

			out, err := next(ctx, in)

			attrs := []slog.Attr{
				slog.String("pipeline", name),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				if classified, ok := domain.AsClassified(err); ok {
					attrs = append(attrs,
						slog.String("classification", string(classified.Classification)),
						slog.String("code", classified.Code),
					)
				}
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelWarn, "pipeline failed", attrs...)
				return out, err
			}

			logger.LogAttrs(ctx, slog.LevelInfo, "pipeline completed", attrs...)
			return out, nil
		}
	}
}

// WithTracing opens an OpenTelemetry span around each invocation and records
// the classification of failures.
func WithTracing[In, Out any](name string) Middleware[In, Out] {
	tracer := otel.Tracer("stepflow/pipeline")
	return func(next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
				attribute.String("pipeline.name", name),
			))
			defer span.End()

			out, err := next(ctx, in)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "pipeline failed")
				if classified, ok := domain.AsClassified(err); ok {
					span.SetAttributes(
						attribute.String("pipeline.error_classification", string(classified.Classification)),
						attribute.String("pipeline.error_code", classified.Code),
					)
				}
				return out, err
			}

			span.SetStatus(codes.Ok, "")
			return out, nil
		}
	}
}

type timedStep struct {
	inner  ports.Step
	logger *slog.Logger
}

func (s timedStep) Name() string { return s.inner.Name() }

func (s timedStep) Execute(ctx context.Context, ec *execctx.Context) domain.Result {
	start := time.Now()
	res := s.inner.Execute(ctx, ec)
	s.logger.Debug("step executed",
		slog.String("step", s.inner.Name()),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", res.OK()),
	)
	return res
}

// InstrumentSteps wraps each step with a timing decorator that logs at debug
// level. The wrapped steps remain stateless and reusable.
func InstrumentSteps(logger *slog.Logger, steps []ports.Step) []ports.Step {
	out := make([]ports.Step, len(steps))
	for i, s := range steps {
		out[i] = timedStep{inner: s, logger: logger}
	}
	return out
}
