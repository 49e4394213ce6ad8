package workflow

import "sync"

// DefaultHistoryLimit bounds the in-memory history when no limit is
// configured.
const DefaultHistoryLimit = 100

// ExecutionStore is the persistence seam for terminal execution
// snapshots. The engine ships only the in-memory bounded implementation;
// a durable store is an external collaborator behind this interface.
type ExecutionStore interface {
	// Save stores a terminal snapshot, evicting the oldest entry when full.
	Save(snapshot *ExecutionSnapshot)
	// Get returns the snapshot for an execution ID.
	Get(executionID string) (*ExecutionSnapshot, bool)
	// List returns snapshots most-recent-first, optionally filtered by
	// workflow name. limit <= 0 means no limit.
	List(workflowName string, limit int) []*ExecutionSnapshot
}

// MemoryHistory is a bounded in-process ExecutionStore. Oldest entries
// are evicted first.
type MemoryHistory struct {
	mu      sync.RWMutex
	limit   int
	entries []*ExecutionSnapshot
	byID    map[string]*ExecutionSnapshot
}

// NewMemoryHistory creates a bounded history. A non-positive limit falls
// back to DefaultHistoryLimit.
func NewMemoryHistory(limit int) *MemoryHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistory{
		limit: limit,
		byID:  make(map[string]*ExecutionSnapshot),
	}
}

// Save appends a snapshot, evicting the oldest when over the limit.
func (h *MemoryHistory) Save(snapshot *ExecutionSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, snapshot)
	h.byID[snapshot.ExecutionID] = snapshot
	for len(h.entries) > h.limit {
		evicted := h.entries[0]
		h.entries = h.entries[1:]
		delete(h.byID, evicted.ExecutionID)
	}
}

// Get returns the snapshot for an execution ID.
func (h *MemoryHistory) Get(executionID string) (*ExecutionSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snapshot, ok := h.byID[executionID]
	return snapshot, ok
}

// Contains reports whether an execution ID is present.
func (h *MemoryHistory) Contains(executionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byID[executionID]
	return ok
}

// List returns snapshots most-recent-first, optionally filtered by
// workflow name.
func (h *MemoryHistory) List(workflowName string, limit int) []*ExecutionSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*ExecutionSnapshot, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0; i-- {
		entry := h.entries[i]
		if workflowName != "" && entry.WorkflowID != workflowName {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// Len returns the number of stored snapshots.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
