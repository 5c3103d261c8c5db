package workflow

import (
	"sync"

	"github.com/winbeat/assist/model"
)

// History stores completed workflow executions in memory for the lifetime
// of the process. Oldest entries are dropped once the limit is reached.
type History struct {
	mu      sync.RWMutex
	entries []model.WorkflowExecution
	limit   int
}

// NewHistory creates a bounded in-memory history.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 100
	}
	return &History{limit: limit}
}

// Append records a finished execution, success or failure.
func (h *History) Append(exec model.WorkflowExecution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, exec)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// List returns the stored executions, newest first.
func (h *History) List() []model.WorkflowExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.WorkflowExecution, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Clear drops all stored executions.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// Len returns the number of stored executions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
