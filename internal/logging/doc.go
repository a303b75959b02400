// Package logging provides structured logging for bewardctl.
//
// This package wraps a zap logger with convenience functions for the
// patterns used by the CGI transport, the device modules and the fleet
// runner.
//
// # Log Levels
//
//   - Debug: every CGI request and response, raw bodies
//   - Info: fleet sweep progress, per-host results
//   - Warn: skipped records (malformed keys), retried requests
//   - Error: failed hosts
//
// # Configuration
//
// Logging is silent unless a level is given with --log-level or the
// BEWARD_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Logs are written to stderr in console format so that command output on
// stdout stays machine readable.
//
// # Secrets
//
// LogRequest masks password-like query parameters before logging:
//
//	logging.LogRequest("10.0.0.5", "GET", "cgi-bin/pwdgrp_cgi", params)
package logging
