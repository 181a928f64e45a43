package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
)

// mockStep is a test helper that records invocations and returns a
// configured result, or runs a custom function.
type mockStep struct {
	name   string
	result domain.Result
	fn     func(ctx context.Context, ec *execctx.Context) domain.Result

	mu    sync.Mutex
	calls int
}

func (s *mockStep) Name() string { return s.name }

func (s *mockStep) Execute(ctx context.Context, ec *execctx.Context) domain.Result {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, ec)
	}
	return s.result
}

func (s *mockStep) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type queryRequest struct {
	ID int
}

func newTestQuery(t *testing.T, cfg QueryConfig[queryRequest, map[string]any]) *Query[queryRequest, map[string]any] {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test-query"
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.BuildResponse == nil {
		cfg.BuildResponse = func(ec *execctx.Context) (map[string]any, error) {
			return map[string]any{}, nil
		}
	}
	q, err := NewQuery(cfg)
	if err != nil {
		t.Fatalf("NewQuery() error = %v", err)
	}
	return q
}

func TestNewQueryRequiresCollaborators(t *testing.T) {
	tests := []struct {
		name string
		cfg  QueryConfig[queryRequest, map[string]any]
	}{
		{"missing name", QueryConfig[queryRequest, map[string]any]{
			Steps:         func(queryRequest, *execctx.Context) []ports.Step { return nil },
			BuildResponse: func(*execctx.Context) (map[string]any, error) { return nil, nil },
		}},
		{"missing steps", QueryConfig[queryRequest, map[string]any]{
			Name:          "q",
			BuildResponse: func(*execctx.Context) (map[string]any, error) { return nil, nil },
		}},
		{"missing builder", QueryConfig[queryRequest, map[string]any]{
			Name:  "q",
			Steps: func(queryRequest, *execctx.Context) []ports.Step { return nil },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewQuery(tt.cfg); err == nil {
				t.Error("expected constructor error")
			}
		})
	}
}

func TestQueryFailFastOnValidation(t *testing.T) {
	step := &mockStep{name: "never-runs", result: domain.Empty()}

	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Validate: func(in queryRequest) domain.Result {
			return domain.ValidationFailure("id must be positive")
		},
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			return []ports.Step{step}
		},
	})

	_, err := q.Execute(context.Background(), queryRequest{ID: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}

	classified, ok := domain.AsClassified(err)
	if !ok {
		t.Fatalf("expected classified error, got %T", err)
	}
	if classified.Classification != domain.ClassValidation {
		t.Errorf("Classification = %v, want validation", classified.Classification)
	}
	if classified.Code != domain.CodeValidationFailed {
		t.Errorf("Code = %v, want %v", classified.Code, domain.CodeValidationFailed)
	}
	if classified.Message != "id must be positive" {
		t.Errorf("Message = %q", classified.Message)
	}
	if step.callCount() != 0 {
		t.Errorf("step ran %d times, want 0", step.callCount())
	}
}

func TestQueryShortCircuitOnStepFailure(t *testing.T) {
	s1 := &mockStep{name: "s1", result: domain.Empty()}
	s2 := &mockStep{name: "s2", result: domain.Failure("account inactive")}
	s3 := &mockStep{name: "s3", result: domain.Empty()}

	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			return []ports.Step{s1, s2, s3}
		},
	})

	_, err := q.Execute(context.Background(), queryRequest{ID: 1})
	if err == nil {
		t.Fatal("expected step failure")
	}

	classified, _ := domain.AsClassified(err)
	if classified == nil || classified.Classification != domain.ClassBusiness {
		t.Errorf("expected business classification, got %v", err)
	}

	if s1.callCount() != 1 {
		t.Errorf("s1 calls = %d, want 1", s1.callCount())
	}
	if s2.callCount() != 1 {
		t.Errorf("s2 calls = %d, want 1", s2.callCount())
	}
	if s3.callCount() != 0 {
		t.Errorf("s3 calls = %d, want 0 (must never run after failure)", s3.callCount())
	}
}

func TestQuerySystemErrorMasking(t *testing.T) {
	panicking := &mockStep{
		name: "panics",
		fn: func(ctx context.Context, ec *execctx.Context) domain.Result {
			panic("boom")
		},
	}

	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			return []ports.Step{panicking}
		},
	})

	_, err := q.Execute(context.Background(), queryRequest{ID: 1})
	if err == nil {
		t.Fatal("expected system error")
	}

	classified, ok := domain.AsClassified(err)
	if !ok {
		t.Fatalf("expected classified error, got %T", err)
	}
	if classified.Classification != domain.ClassSystem {
		t.Errorf("Classification = %v, want system", classified.Classification)
	}
	if strings.Contains(err.Error(), "boom") {
		t.Errorf("internal detail leaked to caller: %q", err.Error())
	}
	if classified.Message != "system error during query" {
		t.Errorf("Message = %q, want generic system message", classified.Message)
	}
}

func TestQueryEmptyStepList(t *testing.T) {
	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			return nil
		},
		BuildResponse: func(ec *execctx.Context) (map[string]any, error) {
			return map[string]any{"empty": true}, nil
		},
	})

	out, err := q.Execute(context.Background(), queryRequest{ID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["empty"] != true {
		t.Error("expected response from empty pipeline")
	}
}

func TestQueryStepsResolvedFromRequest(t *testing.T) {
	extra := &mockStep{name: "extra", result: domain.Empty()}
	base := &mockStep{name: "base", result: domain.Empty()}

	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			steps := []ports.Step{base}
			if in.ID > 100 {
				steps = append(steps, extra)
			}
			return steps
		},
	})

	if _, err := q.Execute(context.Background(), queryRequest{ID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extra.callCount() != 0 {
		t.Error("conditional step ran for small ID")
	}

	if _, err := q.Execute(context.Background(), queryRequest{ID: 101}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extra.callCount() != 1 {
		t.Error("conditional step should run for large ID")
	}
	if base.callCount() != 2 {
		t.Errorf("base calls = %d, want 2", base.callCount())
	}
}

func TestQueryContextSeededWithRequest(t *testing.T) {
	var seen queryRequest

	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			return []ports.Step{ports.StepFunc("read-request", func(ctx context.Context, ec *execctx.Context) domain.Result {
				v, ok := ec.Get(execctx.KeyRequest)
				if !ok {
					return domain.SystemFailure("request not seeded")
				}
				seen = v.(queryRequest)
				return domain.Empty()
			})}
		},
	})

	if _, err := q.Execute(context.Background(), queryRequest{ID: 42}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.ID != 42 {
		t.Errorf("seeded request ID = %d, want 42", seen.ID)
	}
}

func TestQueryBuildResponseErrorMasked(t *testing.T) {
	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step { return nil },
		BuildResponse: func(ec *execctx.Context) (map[string]any, error) {
			return nil, fmt.Errorf("template render exploded")
		},
	})

	_, err := q.Execute(context.Background(), queryRequest{ID: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	classified, ok := domain.AsClassified(err)
	if !ok || classified.Classification != domain.ClassSystem {
		t.Fatalf("expected masked system error, got %v", err)
	}
	if strings.Contains(classified.Message, "exploded") {
		t.Error("internal detail leaked to caller")
	}
}

func TestQueryBuildResponseClassifiedErrorPassedThrough(t *testing.T) {
	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step { return nil },
		BuildResponse: func(ec *execctx.Context) (map[string]any, error) {
			return nil, domain.ErrBusiness("nothing to report")
		},
	})

	_, err := q.Execute(context.Background(), queryRequest{ID: 1})
	classified, ok := domain.AsClassified(err)
	if !ok {
		t.Fatalf("expected classified error, got %v", err)
	}
	if classified.Classification != domain.ClassBusiness || classified.Message != "nothing to report" {
		t.Errorf("classified error altered: %v", classified)
	}
}

// Verifies cross-step data flow and aggregation through a four step
// pipeline: load user, load orders, compute total, no-op.
func TestQueryCrossStepDataFlow(t *testing.T) {
	type user struct{ ID int }

	userKey := execctx.NewKey[user]("user")
	ordersKey := execctx.NewKey[[]float64]("orders")
	totalKey := execctx.NewKey[float64]("total")

	steps := []ports.Step{
		ports.StepFunc("load-user", func(ctx context.Context, ec *execctx.Context) domain.Result {
			execctx.Put(ec, userKey, user{ID: 1})
			return domain.Empty()
		}),
		ports.StepFunc("load-orders", func(ctx context.Context, ec *execctx.Context) domain.Result {
			execctx.Put(ec, ordersKey, []float64{89.99, 1299.99, 310.00})
			return domain.Empty()
		}),
		ports.StepFunc("compute-total", func(ctx context.Context, ec *execctx.Context) domain.Result {
			orders, ok := execctx.Get(ec, ordersKey)
			if !ok {
				return domain.SystemFailure("orders missing")
			}
			var total float64
			for _, amount := range orders {
				total += amount
			}
			execctx.Put(ec, totalKey, total)
			return domain.Success(total)
		}),
		ports.StepFunc("noop", func(ctx context.Context, ec *execctx.Context) domain.Result {
			return domain.Empty()
		}),
	}

	q := newTestQuery(t, QueryConfig[queryRequest, map[string]any]{
		Steps: func(in queryRequest, ec *execctx.Context) []ports.Step {
			return steps
		},
		BuildResponse: func(ec *execctx.Context) (map[string]any, error) {
			u, _ := execctx.Get(ec, userKey)
			orders, _ := execctx.Get(ec, ordersKey)
			total, _ := execctx.Get(ec, totalKey)
			return map[string]any{
				"user":       u,
				"totalSpent": total,
				"orderCount": len(orders),
			}, nil
		},
	})

	out, err := q.Execute(context.Background(), queryRequest{ID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := out["user"].(user); got.ID != 1 {
		t.Errorf("user.ID = %d, want 1", got.ID)
	}
	if got := out["totalSpent"].(float64); math.Abs(got-1699.98) > 1e-9 {
		t.Errorf("totalSpent = %v, want 1699.98", got)
	}
	if got := out["orderCount"].(int); got != 3 {
		t.Errorf("orderCount = %d, want 3", got)
	}
}

// Two concurrent invocations of the same pipeline must never observe each
// other's context data.
func TestQueryConcurrentIsolation(t *testing.T) {
	nameKey := execctx.NewKey[string]("name")

	q, err := NewQuery(QueryConfig[string, string]{
		Name:   "isolation",
		Logger: discardLogger(),
		Steps: func(in string, ec *execctx.Context) []ports.Step {
			return []ports.Step{ports.StepFunc("record-name", func(ctx context.Context, ec *execctx.Context) domain.Result {
				execctx.Put(ec, nameKey, in)
				return domain.Empty()
			})}
		},
		BuildResponse: func(ec *execctx.Context) (string, error) {
			name, ok := execctx.Get(ec, nameKey)
			if !ok {
				return "", domain.ErrSystem("name missing")
			}
			return name, nil
		},
	})
	if err != nil {
		t.Fatalf("NewQuery() error = %v", err)
	}

	const goroutines = 32
	const iterations = 50

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				in := fmt.Sprintf("caller-%d-%d", g, i)
				out, err := q.Execute(context.Background(), in)
				if err != nil {
					errCh <- err
					return
				}
				if out != in {
					errCh <- fmt.Errorf("cross-invocation leak: got %q, want %q", out, in)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
}
