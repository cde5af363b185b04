// Package cmd implements the command-line interface for invoice-collection.
//
// This package provides the following commands:
//   - ingest: Collect and extract documents from matching Gmail threads
//   - report: Export stored extraction results to a spreadsheet
//   - auth: Run the OAuth flow and cache the Google API token
//   - version: Display version information
package cmd
