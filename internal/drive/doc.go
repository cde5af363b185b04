// Package drive provides a client for the slice of the Google Drive API
// the ingestion pipeline needs: file metadata, folder listing, content
// download and Drive link extraction from email bodies.
package drive
