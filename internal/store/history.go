package store

import (
	"time"

	"github.com/lewtec/revisor/internal/domain"
)

// Action identifies what an edit did.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// HistoryEntry is an immutable record of one edit.
type HistoryEntry struct {
	Timestamp time.Time          `json:"timestamp"`
	Action    Action             `json:"action"`
	ImageID   string             `json:"imageId"`
	SessionID string             `json:"sessionId"`
	Snapshot  *domain.Annotation `json:"snapshot"`
	Prior     *domain.Annotation `json:"priorSnapshot,omitempty"`
}

// history keeps the most recent edits up to a fixed cap, evicting the
// oldest entry first.
type history struct {
	limit   int
	entries []HistoryEntry
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) append(e HistoryEntry) {
	if h.limit <= 0 {
		return
	}
	if len(h.entries) >= h.limit {
		drop := len(h.entries) - h.limit + 1
		h.entries = append(h.entries[:0], h.entries[drop:]...)
	}
	h.entries = append(h.entries, e)
}

func (h *history) all() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
