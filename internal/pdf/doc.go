// Package pdf extracts content from PDF attachments. Documents with a
// text layer yield plain text; scanned documents are rasterized page by
// page and stacked into a single JPEG for image-based extraction.
package pdf
