// Package pipeline implements the thread ingestion flow: selecting one
// message per thread under a time cutoff, collecting direct and
// Drive-linked attachments, expanding archives, enforcing the
// per-message file quota and extracting a normalized record from every
// document. External collaborators (mail, Drive, the extraction model,
// the storage sink) are consumed through small interfaces so the flow
// can be exercised without network access.
package pipeline
