// Package logging provides structured logging for the eISCP tools.
//
// This package wraps a global zap logger with convenience functions. The
// receiver client takes a *zap.Logger through its options, usually
// GetLogger() or a Named child.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Raw packets, every inbound event, websocket traffic
//   - Info: Connections, bridge start/stop
//   - Warn: Dropped messages, failed commands
//   - Error: Transport failures
//
// # Configuration
//
// Logging is silent unless a level or a file is given:
//
//	if err := logging.Configure(logging.Options{Level: "debug", File: "/tmp/eiscp.log"}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// EISCP_LOG_LEVEL and EISCP_LOG_FILE are consulted when the options leave
// either empty.
//
// # Output Format
//
// Console output goes to stderr in zap's development format so it never
// mixes with command output on stdout. File output is JSON, rotated by size
// with lumberjack.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Configure is meant to
// be called once at startup.
package logging
