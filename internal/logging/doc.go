// Package logging provides structured logging utilities for the
// invoice-collection pipeline.
//
// It centralizes attribute naming so that log entries produced by the Gmail,
// Drive, archive and pipeline packages stay consistent and greppable, using
// the standard library's slog package.
//
// Sender addresses are hashed before logging (UserHash) so that entries can be
// correlated without exposing PII.
package logging
