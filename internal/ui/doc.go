// Package ui renders bewardctl terminal output with Lipgloss.
//
// The components follow a "run once and exit" pattern: they render a
// command header, result boxes and fleet summaries for a batch command but
// never require interaction, except ConfirmDangerousOperation which asks
// for a typed confirmation before destructive device operations.
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, failure or warning box with ordered details
//   - ReportTable: per-host outcome table for fleet sweeps
//
// # Logging Integration
//
// Logging is controlled by --log-level or the BEWARD_LOG_LEVEL environment
// variable. When unset, zap logging is silent so the rendered output stays
// clean.
package ui
