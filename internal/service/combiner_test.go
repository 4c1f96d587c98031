package service

import (
	"testing"

	"github.com/setforge/setforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pickerItems() []domain.ProcessedItem {
	return []domain.ProcessedItem{
		{
			QueueID: "w0",
			Status:  domain.ProcessedDone,
			Workout: &domain.WorkoutDocument{
				Title: "Upper",
				Blocks: []*domain.Block{
					{Label: "Push", Exercises: []*domain.Exercise{{Name: "Bench"}}},
					{Label: "Pull", Exercises: []*domain.Exercise{{Name: "Row"}}},
				},
			},
		},
		{
			QueueID: "w1",
			Status:  domain.ProcessedDone,
			Workout: &domain.WorkoutDocument{
				Title:  "Lower",
				Blocks: []*domain.Block{{Label: "Legs", Exercises: []*domain.Exercise{{Name: "Squat"}}}},
			},
		},
	}
}

func TestToggleTwiceIsNoOp(t *testing.T) {
	c := NewBlockCombiner()
	sel := BlockSelection{WorkoutIndex: 0, BlockIndex: 1}

	c.Toggle(sel)
	c.Toggle(sel)

	assert.Empty(t, c.Selections())
}

func TestToggleNeverDuplicates(t *testing.T) {
	c := NewBlockCombiner()
	c.Toggle(BlockSelection{0, 0})
	c.Toggle(BlockSelection{1, 0})
	c.Toggle(BlockSelection{0, 0}) // deselect
	c.Toggle(BlockSelection{0, 0}) // select again

	sels := c.Selections()
	require.Len(t, sels, 2)
	assert.Equal(t, BlockSelection{1, 0}, sels[0])
	assert.Equal(t, BlockSelection{0, 0}, sels[1])
}

func TestCustomBlocksAlwaysAppend(t *testing.T) {
	c := NewBlockCombiner()
	c.AddCustomBlock()
	c.AddCustomBlock()

	require.Len(t, c.Selections(), 2, "custom placeholders are never deduplicated")
}

func TestMoveReorders(t *testing.T) {
	c := NewBlockCombiner()
	c.Toggle(BlockSelection{0, 0})
	c.Toggle(BlockSelection{0, 1})
	c.Toggle(BlockSelection{1, 0})

	c.Move(2, 0)

	sels := c.Selections()
	require.Len(t, sels, 3)
	assert.Equal(t, BlockSelection{1, 0}, sels[0])
	assert.Equal(t, BlockSelection{0, 0}, sels[1])
	assert.Equal(t, BlockSelection{0, 1}, sels[2])
}

func TestMoveOutOfRangeIsNoOp(t *testing.T) {
	c := NewBlockCombiner()
	c.Toggle(BlockSelection{0, 0})
	c.Move(0, 5)
	c.Move(-1, 0)
	assert.Equal(t, []BlockSelection{{0, 0}}, c.Selections())
}

func TestCombineBuildsBlocksInSelectionOrder(t *testing.T) {
	c := NewBlockCombiner()
	c.Toggle(BlockSelection{1, 0})
	c.AddCustomBlock()
	c.Toggle(BlockSelection{0, 1})

	items := pickerItems()
	doc, err := c.Combine(items, "Franken-WOD")
	require.NoError(t, err)

	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, "Franken-WOD", doc.Title)
	assert.Equal(t, "combined", doc.Source)
	assert.Equal(t, "Legs", doc.Blocks[0].Label)
	assert.Empty(t, doc.Blocks[1].Exercises, "custom selection yields an empty placeholder")
	assert.Equal(t, "Pull", doc.Blocks[2].Label)
	assert.True(t, domain.HasIDs(doc))

	// Combined blocks are clones of the sources, never shared.
	doc.Blocks[0].Exercises[0].Name = "Front Squat"
	assert.Equal(t, "Squat", items[1].Workout.Blocks[0].Exercises[0].Name)
}

func TestCombineDefaultsTitle(t *testing.T) {
	c := NewBlockCombiner()
	c.Toggle(BlockSelection{0, 0})

	doc, err := c.Combine(pickerItems(), "")
	require.NoError(t, err)
	assert.Equal(t, "Combined Workout", doc.Title)
}

func TestCombineRejectsEmptyAndDanglingSelections(t *testing.T) {
	c := NewBlockCombiner()
	_, err := c.Combine(pickerItems(), "x")
	assert.Error(t, err, "empty selection")

	c.Toggle(BlockSelection{WorkoutIndex: 7, BlockIndex: 0})
	_, err = c.Combine(pickerItems(), "x")
	assert.Error(t, err, "dangling workout index")
}
