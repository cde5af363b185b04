// Package storage persists extraction results and the processed-thread
// ledger in a local SQLite database and reads them back for reporting.
package storage
