package optimization

import (
	"sync"
	"time"
)

const defaultHistorySize = 288

// HistoryEntry records the outcome of a single run
type HistoryEntry struct {
	RunID      string    `json:"runId"`
	FinishedAt time.Time `json:"finishedAt"`
	Report     *Report   `json:"report,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the run produced a report
func (e HistoryEntry) Succeeded() bool {
	return e.Error == ""
}

// History keeps the most recent run outcomes
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	size    int
}

// NewHistory creates a history that keeps at most size entries
func NewHistory(size int) *History {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &History{
		entries: make([]HistoryEntry, 0, size),
		size:    size,
	}
}

// Add appends an entry, dropping the oldest when full
func (h *History) Add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

// Latest returns the most recent entry
func (h *History) Latest() (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// List returns up to limit entries, most recent first
func (h *History) List(limit int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}

	result := make([]HistoryEntry, limit)
	for i := 0; i < limit; i++ {
		result[i] = h.entries[len(h.entries)-1-i]
	}
	return result
}
