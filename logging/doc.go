// Package logging provides a minimal logging interface and adapters for testmesh.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that the bus, registries, orchestrator and recovery path use. Arguments
// after the message are slog style key/value pairs. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a *slog.Logger
//   - StructuredLogger with component / session context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mesh := testmesh.New(func(o *testmesh.Options) { o.Logger = logger })
package logging
