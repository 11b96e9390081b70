package task

import "context"

// Executor is the bot manager contract supplied by the caller. Any type
// implementing both methods qualifies; satisfaction is checked where the
// gateway is composed, not through a type hierarchy.
//
// Run executes a utility task and returns its raw result. StreamRun obtains a
// producer of text chunks for an application task; the returned value may be
// any shape the stream package classifies (see stream.Normalizer). Both may
// fail at call time, and a StreamRun producer may additionally fail during
// iteration.
type Executor interface {
	Run(ctx context.Context, name Name, inputs []map[string]any) (any, error)
	StreamRun(ctx context.Context, name Name, inputs []map[string]any) (any, error)
}

// SchemaProvider is an optional capability an Executor may implement to
// publish JSON schemas for task inputs and outputs. The gateway detects it
// with a type assertion when routes are mounted and registers the schema
// introspection endpoints only if it is present.
//
// The boolean result distinguishes "no schema declared" (ok == false, served
// as an empty object) from a declared schema.
type SchemaProvider interface {
	InputSchema(name Name) (map[string]any, bool)
	OutputSchema(name Name) (map[string]any, bool)
}
