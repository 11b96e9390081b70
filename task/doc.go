// Package task provides the foundational domain types and contracts used by
// BotGate. It defines the core abstractions for:
//
//   - Names (opaque task identifiers declared by the caller)
//   - Catalogs (the closed utility / application / target enumerations)
//   - Requests (the wire payload carrying a task name plus input records)
//   - Executors (the caller-implemented bot manager contract)
//   - Schema reflection helpers for optional per-task introspection
//
// The package intentionally keeps implementation concerns (HTTP transport,
// stream normalization, concrete executors) out of scope, exposing small
// interfaces so any caller type satisfying the method set qualifies without
// a declared hierarchy.
package task
