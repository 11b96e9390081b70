// Package gateway implements the HTTP execution gateway: the per-request
// control flow that turns a caller-supplied task.Executor into JSON and
// Server-Sent-Events endpoints.
//
// A Provider owns one executor plus the task catalog and mounts its routes on
// any gin router or group, so callers choose the path prefix:
//
//	provider := gateway.New(executor, catalog)
//	provider.Mount(engine.Group("/api"))
//
// Routes:
//
//   - POST /run/utility            one-shot execution, enveloped JSON result
//   - POST /run/application/stream chunked execution as an SSE stream
//   - GET  /enums/...              read-only catalog introspection
//   - GET  /protocol/schema/...    per-task schemas (when the executor
//     implements task.SchemaProvider)
//
// Failure mapping is asymmetric on purpose: anything that goes wrong before
// the stream starts (validation, executor call, producer classification) is
// an ordinary HTTP error response, while a failure after the response status
// is committed is delivered as a final in-band error event. See the sentinel
// constants in this package for the exact wire format.
package gateway
