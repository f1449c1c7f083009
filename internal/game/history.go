package game

import (
	"sync"

	"github.com/twsarcade/lotto/internal/models"
)

// History keeps a bounded, most-recent-first log of settled rounds.
type History struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
	limit   int
}

// NewHistory creates a history retaining at most limit entries.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Append inserts an entry at the front, truncating beyond the limit.
func (h *History) Append(e models.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]models.HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Recent returns up to n most recent entries, newest first.
func (h *History) Recent(n int) []models.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]models.HistoryEntry, n)
	copy(out, h.entries[:n])
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
