// Package archive unpacks email attachment archives. It supports zip,
// rar, 7z, tar and gzip inputs, expands nested archives recursively and
// guards against expansion cycles and oversized entries.
package archive
