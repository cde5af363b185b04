package pipeline

import "sync"

// Guard bounds the number of files processed for a single message. The
// pre-flight estimate rejects messages that look expensive before any
// download happens; the running counter cuts processing off once real
// file counts are known. A Guard is scoped to one message.
type Guard struct {
	maxFiles     int
	archiveLimit int
	directLimit  int

	mu    sync.Mutex
	count int
}

// NewGuard creates a Guard. Zero or negative limits fall back to the
// defaults (50 files, 5 archives, 20 direct attachments).
func NewGuard(maxFiles, archiveLimit, directLimit int) *Guard {
	if maxFiles <= 0 {
		maxFiles = 50
	}
	if archiveLimit <= 0 {
		archiveLimit = 5
	}
	if directLimit <= 0 {
		directLimit = 20
	}
	return &Guard{
		maxFiles:     maxFiles,
		archiveLimit: archiveLimit,
		directLimit:  directLimit,
	}
}

// LikelyExceeds is the cheap pre-flight estimate. Archives are the
// dangerous case, so any message carrying several of them is rejected
// outright; without archives the candidate count alone decides.
func (g *Guard) LikelyExceeds(directCount, archiveCount int) bool {
	if archiveCount == 0 {
		return directCount > g.maxFiles
	}
	return archiveCount > g.archiveLimit || directCount > g.directLimit
}

// Admit claims one unit of the file budget. Returns false once the
// budget is spent; the caller must then stop processing and mark the
// rest skipped.
func (g *Guard) Admit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count >= g.maxFiles {
		return false
	}
	g.count++
	return true
}

// Count returns the number of admitted files.
func (g *Guard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}
