// Package logging provides logging utilities for dsmr-provision.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("probing pct dialect", "candidate", candidate)
//	logging.Warn("container start failed", "ctid", ctid, "stderr", stderr)
//
// # User Output
//
// User-facing messages are formatted with colored status indicators:
//
//	logging.UserInfo("Downloading template %s...", name)
//	logging.UserSuccess("Container %d provisioned", ctid)
//	logging.UserWarning("Nesting disabled; container isolation may be weaker")
//	logging.UserError("Failed to start container: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
