package service

import (
	"testing"

	"github.com/setforge/setforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRejectsStaleGeneration(t *testing.T) {
	s := NewResultStore()
	stale := s.MarkPending("q1")
	fresh := s.MarkPending("q1") // retry bumps the generation

	applied := s.Apply("q1", stale, domain.ProcessedItem{Status: domain.ProcessedDone, WorkoutTitle: "late"})
	assert.False(t, applied, "a late response must not clobber the newer attempt")

	applied = s.Apply("q1", fresh, domain.ProcessedItem{Status: domain.ProcessedDone, WorkoutTitle: "current"})
	assert.True(t, applied)

	item, ok := s.Get("q1")
	require.True(t, ok)
	assert.Equal(t, "current", item.WorkoutTitle)
}

func TestApplyRejectsRemovedEntry(t *testing.T) {
	s := NewResultStore()
	gen := s.MarkPending("q1")
	s.Remove("q1")

	assert.False(t, s.Apply("q1", gen, domain.ProcessedItem{Status: domain.ProcessedDone}))
	assert.Empty(t, s.Items())
}

func TestRemoveIfSkipsNewerGeneration(t *testing.T) {
	s := NewResultStore()
	old := s.MarkPending("q1")
	s.MarkPending("q1")

	s.RemoveIf("q1", old)

	_, ok := s.Get("q1")
	assert.True(t, ok, "cleanup of an old attempt must not discard the newer one")
}

func TestItemsKeepFirstSeenOrder(t *testing.T) {
	s := NewResultStore()
	g1 := s.MarkPending("a")
	g2 := s.MarkPending("b")
	g3 := s.MarkPending("c")

	// Completion order differs from arrival order.
	s.Apply("c", g3, domain.ProcessedItem{Status: domain.ProcessedDone})
	s.Apply("a", g1, domain.ProcessedItem{Status: domain.ProcessedDone})
	s.Apply("b", g2, domain.ProcessedItem{Status: domain.ProcessedFailed})

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].QueueID)
	assert.Equal(t, "b", items[1].QueueID)
	assert.Equal(t, "c", items[2].QueueID)
}

func TestReplaceDropsEverything(t *testing.T) {
	s := NewResultStore()
	s.MarkPending("old")

	s.Replace([]domain.ProcessedItem{
		{QueueID: "n1", Status: domain.ProcessedDone},
		{QueueID: "n2", Status: domain.ProcessedDone},
	})

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "n1", items[0].QueueID)
	_, ok := s.Get("old")
	assert.False(t, ok)
}
