package orders

import (
	"log/slog"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
	"github.com/stepflow-go/stepflow/internal/pipeline"
)

// NewSummaryQuery builds the customer-summary query pipeline:
// load-user → load-orders → compute-total, with the response assembled from
// the context's accumulated state.
func NewSummaryQuery(repo Repository, logger *slog.Logger) (*pipeline.Query[SummaryRequest, Summary], error) {
	steps := pipeline.InstrumentSteps(logger, []ports.Step{
		loadUserStep(repo),
		loadOrdersStep(repo),
		computeTotalStep(),
	})

	return pipeline.NewQuery(pipeline.QueryConfig[SummaryRequest, Summary]{
		Name:   "customer-summary",
		Logger: logger,
		Validate: func(req SummaryRequest) domain.Result {
			if req.UserID <= 0 {
				return domain.ValidationFailure("user_id must be positive")
			}
			return domain.Empty()
		},
		Steps: func(req SummaryRequest, ec *execctx.Context) []ports.Step {
			return steps
		},
		BuildResponse: func(ec *execctx.Context) (Summary, error) {
			user, ok := execctx.Get(ec, keyUser)
			if !ok {
				return Summary{}, domain.ErrSystem("user missing from context")
			}
			list, _ := execctx.Get(ec, keyOrders)
			total, _ := execctx.Get(ec, keyTotal)
			return Summary{
				User:       *user,
				TotalSpent: total,
				OrderCount: len(list),
			}, nil
		},
	})
}
