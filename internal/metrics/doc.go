// Package metrics defines the pipeline's Prometheus counters and a
// small HTTP server that exposes them for scraping.
package metrics
