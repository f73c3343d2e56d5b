package engine

import (
	"sync"
	"time"

	"github.com/hyprpal/hyprgrid/internal/grid"
)

type ChangeStatus string

const (
	ChangeStatusApplied ChangeStatus = "applied"
	ChangeStatusDryRun  ChangeStatus = "dry-run"
	ChangeStatusError   ChangeStatus = "error"

	inspectorHistoryLimit = 64
)

// ChangeRecord is one non-empty change set and what happened to its plan.
type ChangeRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    ChangeStatus   `json:"status"`
	Changes   grid.ChangeSet `json:"changes"`
	Error     string         `json:"error,omitempty"`
}

type changeLog struct {
	mu      sync.Mutex
	entries []ChangeRecord
	limit   int
}

func newChangeLog(limit int) *changeLog {
	if limit <= 0 {
		limit = inspectorHistoryLimit
	}
	return &changeLog{limit: limit}
}

func (l *changeLog) record(entry ChangeRecord) {
	if l == nil {
		return
	}
	entry.Changes = cloneChangeSet(entry.Changes)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit > 0 && len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.limit-1]
	}
	l.entries = append(l.entries, entry)
}

func (l *changeLog) snapshot() []ChangeRecord {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]ChangeRecord, len(l.entries))
	for i, entry := range l.entries {
		entry.Changes = cloneChangeSet(entry.Changes)
		out[i] = entry
	}
	return out
}

func cloneChangeSet(src grid.ChangeSet) grid.ChangeSet {
	return grid.ChangeSet{
		NewContentPositions:      append([]grid.Placement{}, src.NewContentPositions...),
		ModifiedContentPositions: append([]grid.Placement{}, src.ModifiedContentPositions...),
		RemovedContentIDs:        append([]string{}, src.RemovedContentIDs...),
	}
}
