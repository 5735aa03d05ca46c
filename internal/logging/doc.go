// Package logging provides structured logging utilities for the calagent
// application.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("listing events",
//	    logging.Status("success"))
//
// # Security Considerations
//
// OAuth tokens are never logged directly; use SanitizeToken when a token must
// be mentioned at all.
package logging
