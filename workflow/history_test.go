package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFor(executionID, workflowID string) *ExecutionSnapshot {
	return &ExecutionSnapshot{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Status:      ExecutionStatusCompleted,
	}
}

func TestMemoryHistory_SaveAndGet(t *testing.T) {
	h := NewMemoryHistory(10)

	h.Save(snapshotFor("e1", "alpha"))
	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Contains("e1"))

	got, ok := h.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "alpha", got.WorkflowID)

	_, ok = h.Get("e2")
	assert.False(t, ok)
}

func TestMemoryHistory_EvictsOldestFirst(t *testing.T) {
	h := NewMemoryHistory(3)

	for i := 1; i <= 5; i++ {
		h.Save(snapshotFor(fmt.Sprintf("e%d", i), "alpha"))
	}

	assert.Equal(t, 3, h.Len())
	assert.False(t, h.Contains("e1"))
	assert.False(t, h.Contains("e2"))
	for _, id := range []string{"e3", "e4", "e5"} {
		assert.True(t, h.Contains(id), id)
	}
}

func TestMemoryHistory_ListOrderingAndFilter(t *testing.T) {
	h := NewMemoryHistory(10)
	h.Save(snapshotFor("e1", "alpha"))
	h.Save(snapshotFor("e2", "beta"))
	h.Save(snapshotFor("e3", "alpha"))

	all := h.List("", 0)
	require.Len(t, all, 3)
	assert.Equal(t, "e3", all[0].ExecutionID)
	assert.Equal(t, "e2", all[1].ExecutionID)
	assert.Equal(t, "e1", all[2].ExecutionID)

	alpha := h.List("alpha", 0)
	require.Len(t, alpha, 2)
	assert.Equal(t, "e3", alpha[0].ExecutionID)
	assert.Equal(t, "e1", alpha[1].ExecutionID)

	limited := h.List("", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "e3", limited[0].ExecutionID)

	assert.Empty(t, h.List("gamma", 0))
}

func TestMemoryHistory_NonPositiveLimitUsesDefault(t *testing.T) {
	h := NewMemoryHistory(0)
	for i := 0; i < DefaultHistoryLimit+5; i++ {
		h.Save(snapshotFor(fmt.Sprintf("e%d", i), "alpha"))
	}
	assert.Equal(t, DefaultHistoryLimit, h.Len())
}
