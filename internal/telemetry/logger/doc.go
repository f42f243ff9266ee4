// Package logger provides structured logging for botvault.
//
// This package wraps log/slog:
//
//   - logger.go: logger construction, global level, package-level helpers
//   - context.go: context-aware logging with run IDs
//   - redact.go: sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Runtime log level changes
//   - Redaction of account secrets and product keys
//   - Context propagation for maintenance runs
package logger
