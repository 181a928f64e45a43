package orders

import (
	"log/slog"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
	"github.com/stepflow-go/stepflow/internal/pipeline"
)

// NewPlaceOrderCommand builds the place-order command pipeline:
// check-user-active → persist-order, committed atomically. The order.placed
// event reaches the sink only after commit.
func NewPlaceOrderCommand(repo Repository, tx ports.TxManager, sink ports.EventSink, logger *slog.Logger) (*pipeline.Command[PlaceOrderCommand, PlaceOrderReceipt], error) {
	return pipeline.NewCommand(pipeline.CommandConfig[PlaceOrderCommand, PlaceOrderReceipt]{
		Name:   "place-order",
		Logger: logger,
		Tx:     tx,
		Sink:   sink,
		Audit: func(cmd PlaceOrderCommand) domain.Audit {
			actor := cmd.ActorID
			if actor == "" {
				actor = "anonymous"
			}
			return domain.NewAudit(actor, "http")
		},
		Validate: func(cmd PlaceOrderCommand) domain.Result {
			if cmd.UserID <= 0 {
				return domain.ValidationFailure("user_id must be positive")
			}
			if cmd.Amount <= 0 {
				return domain.ValidationFailure("amount must be positive")
			}
			return domain.Empty()
		},
		Steps: func(cmd PlaceOrderCommand, cc *execctx.CommandContext) []ports.CommandStep {
			return []ports.CommandStep{
				checkUserActiveStep(repo),
				persistOrderStep(repo),
			}
		},
		BuildResponse: func(cc *execctx.CommandContext) (PlaceOrderReceipt, error) {
			orderID, ok := execctx.Get(cc.Context, keyOrderID)
			if !ok {
				return PlaceOrderReceipt{}, domain.ErrSystem("order id missing from context")
			}
			return PlaceOrderReceipt{
				OrderID: orderID,
				TxID:    cc.Audit().TxID,
			}, nil
		},
	})
}
