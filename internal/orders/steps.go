package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
)

// Context keys shared between steps and response builders. Downstream steps
// and buildResponse agree on these by convention; the pipeline imposes no
// schema of its own.
var (
	keyUser    = execctx.NewKey[*User]("user")
	keyOrders  = execctx.NewKey[[]Order]("orders")
	keyTotal   = execctx.NewKey[float64]("total")
	keyOrderID = execctx.NewKey[string]("order_id")
)

// loadUserStep loads the requested user into the context. A missing or
// inactive user is a business failure.
func loadUserStep(repo Repository) ports.Step {
	return ports.StepFunc("load-user", func(ctx context.Context, ec *execctx.Context) domain.Result {
		req, ok := execctx.Get(ec, execctx.NewKey[SummaryRequest](execctx.KeyRequest))
		if !ok {
			return domain.SystemFailure("request missing from context")
		}

		user, err := repo.FindUser(ctx, req.UserID)
		if errors.Is(err, ErrUserNotFound) {
			return domain.ClassifiedFailure("user not found or inactive", "USER_NOT_FOUND", domain.ClassBusiness)
		}
		if err != nil {
			return domain.FailureErr(domain.ErrSystem("failed to load user").WithCause(err))
		}
		if !user.Active {
			return domain.ClassifiedFailure("user not found or inactive", "USER_INACTIVE", domain.ClassBusiness)
		}

		execctx.Put(ec, keyUser, user)
		return domain.Success(user)
	})
}

// loadOrdersStep loads the user's orders. Depends on load-user having
// stored the user.
func loadOrdersStep(repo Repository) ports.Step {
	return ports.StepFunc("load-orders", func(ctx context.Context, ec *execctx.Context) domain.Result {
		user, ok := execctx.Get(ec, keyUser)
		if !ok {
			return domain.SystemFailure("user missing from context")
		}

		list, err := repo.FindOrders(ctx, user.ID)
		if err != nil {
			return domain.FailureErr(domain.ErrSystem("failed to load orders").WithCause(err))
		}

		execctx.Put(ec, keyOrders, list)
		return domain.Success(list)
	})
}

// computeTotalStep aggregates the order amounts stored by load-orders.
func computeTotalStep() ports.Step {
	return ports.StepFunc("compute-total", func(ctx context.Context, ec *execctx.Context) domain.Result {
		list, ok := execctx.Get(ec, keyOrders)
		if !ok {
			return domain.SystemFailure("orders missing from context")
		}

		var total float64
		for _, o := range list {
			total += o.Amount
		}

		execctx.Put(ec, keyTotal, total)
		return domain.Success(total)
	})
}

// checkUserActiveStep verifies the command's user exists and is active.
func checkUserActiveStep(repo Repository) ports.CommandStep {
	return ports.CommandStepFunc("check-user-active", func(ctx context.Context, cc *execctx.CommandContext) domain.Result {
		cmd, ok := execctx.Get(cc.Context, execctx.NewKey[PlaceOrderCommand](execctx.KeyRequest))
		if !ok {
			return domain.SystemFailure("command missing from context")
		}

		user, err := repo.FindUser(ctx, cmd.UserID)
		if errors.Is(err, ErrUserNotFound) {
			return domain.ClassifiedFailure("user not found or inactive", "USER_NOT_FOUND", domain.ClassBusiness)
		}
		if err != nil {
			return domain.FailureErr(domain.ErrSystem("failed to load user").WithCause(err))
		}
		if !user.Active {
			return domain.ClassifiedFailure("user not found or inactive", "USER_INACTIVE", domain.ClassBusiness)
		}

		execctx.Put(cc.Context, keyUser, user)
		return domain.Empty()
	})
}

// persistOrderStep writes the order inside the command's transaction and
// appends the order.placed event.
func persistOrderStep(repo Repository) ports.CommandStep {
	return ports.CommandStepFunc("persist-order", func(ctx context.Context, cc *execctx.CommandContext) domain.Result {
		cmd, ok := execctx.Get(cc.Context, execctx.NewKey[PlaceOrderCommand](execctx.KeyRequest))
		if !ok {
			return domain.SystemFailure("command missing from context")
		}

		order := &Order{
			ID:        uuid.New().String(),
			UserID:    cmd.UserID,
			Amount:    cmd.Amount,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.SaveOrder(ctx, order); err != nil {
			return domain.FailureErr(domain.ErrSystem("failed to save order").WithCause(err))
		}

		execctx.Put(cc.Context, keyOrderID, order.ID)
		cc.AppendEvent(domain.NewEvent("order.placed", map[string]any{
			"order_id": order.ID,
			"user_id":  cmd.UserID,
			"amount":   cmd.Amount,
			"actor_id": cc.Audit().ActorID,
		}))
		return domain.Success(order.ID)
	})
}
