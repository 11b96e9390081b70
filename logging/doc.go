// Package logging provides a minimal logging interface and adapters for BotGate.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the gateway and stream normalizer use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - GatewayLogger with request-scoped contextual helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	provider := gateway.New(executor, catalog, func(o *gateway.Options) {
//		o.Logger = logger
//	})
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
