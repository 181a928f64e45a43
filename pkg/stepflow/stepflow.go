// Package stepflow provides the public API for embedding the pipeline
// engine. This is the stable surface for external consumers; see the
// internal packages for full documentation.
package stepflow

import (
	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/core/ports"
	"github.com/stepflow-go/stepflow/internal/execctx"
	"github.com/stepflow-go/stepflow/internal/pipeline"
)

// Execution context.
type (
	Context        = execctx.Context
	CommandContext = execctx.CommandContext
)

// NewContext creates an empty execution context. Pipelines create their own
// contexts; this is exposed for tests of individual steps.
var NewContext = execctx.New

// KeyRequest is the reserved context key holding the original request.
const KeyRequest = execctx.KeyRequest

// Step results and classified errors.
type (
	Result         = domain.Result
	Error          = domain.Error
	Classification = domain.Classification
	Event          = domain.Event
	Audit          = domain.Audit
)

const (
	ClassValidation = domain.ClassValidation
	ClassBusiness   = domain.ClassBusiness
	ClassSystem     = domain.ClassSystem
)

var (
	Success           = domain.Success
	Empty             = domain.Empty
	Failure           = domain.Failure
	ClassifiedFailure = domain.ClassifiedFailure
	ValidationFailure = domain.ValidationFailure
	SystemFailure     = domain.SystemFailure
	AsClassified      = domain.AsClassified
	NewEvent          = domain.NewEvent
	NewAudit          = domain.NewAudit
)

// Step contracts and adapters.
type (
	Step        = ports.Step
	CommandStep = ports.CommandStep
	TxManager   = ports.TxManager
	EventSink   = ports.EventSink
)

var (
	StepFunc        = ports.StepFunc
	CommandStepFunc = ports.CommandStepFunc
)

// Pipelines.
type (
	Query[In, Out any]         = pipeline.Query[In, Out]
	QueryConfig[In, Out any]   = pipeline.QueryConfig[In, Out]
	Command[In, Out any]       = pipeline.Command[In, Out]
	CommandConfig[In, Out any] = pipeline.CommandConfig[In, Out]
	Handler[In, Out any]       = pipeline.Handler[In, Out]
	Middleware[In, Out any]    = pipeline.Middleware[In, Out]
)

// NewQuery creates a read-only pipeline.
func NewQuery[In, Out any](cfg QueryConfig[In, Out]) (*Query[In, Out], error) {
	return pipeline.NewQuery(cfg)
}

// NewCommand creates a transactional write pipeline.
func NewCommand[In, Out any](cfg CommandConfig[In, Out]) (*Command[In, Out], error) {
	return pipeline.NewCommand(cfg)
}

// Chain applies middleware so that the first element is outermost.
func Chain[In, Out any](h Handler[In, Out], mws ...Middleware[In, Out]) Handler[In, Out] {
	return pipeline.Chain(h, mws...)
}
