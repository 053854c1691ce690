// Package logging provides a minimal logging interface and adapters for travelmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that routers, agents and tools use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - MeshLogger, a slog based logger with component / session context and
//     optional mirroring to a log file
//   - SlogAdapter for plugging an existing *slog.Logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, File: "log/travel.log"})
//	exec, err := handoff.New(table, agents, func(o *handoff.Options) { o.Logger = logger })
//
// Log messages use dotted keys ("handoff.run.start") followed by key/value pairs.
package logging
