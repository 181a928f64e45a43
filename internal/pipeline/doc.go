// Package pipeline provides the step-pipeline execution engine.
//
// A pipeline runs one request or command as an ordered sequence of steps
// sharing a per-invocation execution context. Query pipelines are read-only
// by convention; command pipelines wrap step execution and response assembly
// in a single transaction boundary and dispatch accumulated events only
// after a successful commit.
//
// # Control flow
//
// For each call the pipeline creates a fresh context seeded with the
// request, runs validation, resolves the ordered step list once (the list
// may depend on the request), executes steps sequentially with fail-fast
// semantics, and assembles the response from the context's accumulated
// state. The caller receives either the response or exactly one classified
// error, never both and never more than one.
//
// # Composition
//
// Pipelines are values built from injected functions (validate, steps,
// buildResponse) rather than subclassed; cross-cutting concerns such as
// timing and tracing are explicit middleware wrapping the Execute entry
// point, composable at construction time.
package pipeline
