// Package gmail provides a client for the slice of the Gmail API the
// ingestion pipeline needs.
//
// This package offers:
//   - Thread listing with pagination and full-thread fetch
//   - Recursive MIME part-tree traversal
//   - Attachment download with base64url decoding and a size cap
//   - Message body extraction (text/plain preferred, HTML stripped)
//
// Authentication uses the unified Google OAuth token from the google package;
// tokens are cached on the file system and bootstrapped by the auth command.
package gmail
