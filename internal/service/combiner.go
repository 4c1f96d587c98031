package service

import (
	"fmt"
	"sync"

	"github.com/setforge/setforge/internal/domain"
)

// CustomBlockIndex is the sentinel used for a user-added placeholder block
// that has no source workout; the structure editor fills it in later.
const CustomBlockIndex = -1

// BlockSelection addresses one block of one processed item. WorkoutIndex and
// BlockIndex of CustomBlockIndex mark a custom placeholder block.
type BlockSelection struct {
	WorkoutIndex int `json:"workout_index"`
	BlockIndex   int `json:"block_index"`
}

// IsCustom reports whether the selection is a placeholder block.
func (s BlockSelection) IsCustom() bool {
	return s.WorkoutIndex == CustomBlockIndex && s.BlockIndex == CustomBlockIndex
}

// BlockCombiner accumulates an ordered, user-reorderable selection of blocks
// across processed items and merges them into one synthetic workout.
type BlockCombiner struct {
	mu         sync.Mutex
	selections []BlockSelection
}

// NewBlockCombiner creates an empty combiner.
func NewBlockCombiner() *BlockCombiner {
	return &BlockCombiner{}
}

// Toggle adds the selection, or removes it if it is already present. Selecting
// the same block twice never duplicates it.
func (c *BlockCombiner) Toggle(sel BlockSelection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.selections {
		if existing == sel && !sel.IsCustom() {
			c.selections = append(c.selections[:i], c.selections[i+1:]...)
			return
		}
	}
	c.selections = append(c.selections, sel)
}

// AddCustomBlock appends an empty placeholder block to the selection.
func (c *BlockCombiner) AddCustomBlock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selections = append(c.selections, BlockSelection{CustomBlockIndex, CustomBlockIndex})
}

// Move reorders the selection list, moving the entry at from to index to.
// Out-of-range indices are a no-op.
func (c *BlockCombiner) Move(from, to int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.selections)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	sel := c.selections[from]
	c.selections = append(c.selections[:from], c.selections[from+1:]...)
	rest := append([]BlockSelection{}, c.selections[to:]...)
	c.selections = append(append(c.selections[:to], sel), rest...)
}

// Selections returns a copy of the current selection in order.
func (c *BlockCombiner) Selections() []BlockSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BlockSelection, len(c.selections))
	copy(out, c.selections)
	return out
}

// Clear drops the selection.
func (c *BlockCombiner) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selections = nil
}

// Combine produces one synthetic workout whose blocks are exactly the
// selected blocks, cloned, in selection order. Custom selections become empty
// placeholder blocks. A selection pointing at a missing item or block fails
// the whole combination: the picker should never have offered it.
func (c *BlockCombiner) Combine(items []domain.ProcessedItem, title string) (*domain.WorkoutDocument, error) {
	selections := c.Selections()
	if len(selections) == 0 {
		return nil, fmt.Errorf("no blocks selected")
	}
	if title == "" {
		title = "Combined Workout"
	}

	doc := &domain.WorkoutDocument{
		Title:  title,
		Source: "combined",
		Blocks: make([]*domain.Block, 0, len(selections)),
	}
	for _, sel := range selections {
		if sel.IsCustom() {
			doc.Blocks = append(doc.Blocks, &domain.Block{
				Label:     fmt.Sprintf("Block %d", len(doc.Blocks)+1),
				Exercises: []*domain.Exercise{},
			})
			continue
		}
		if sel.WorkoutIndex < 0 || sel.WorkoutIndex >= len(items) {
			return nil, fmt.Errorf("selection refers to missing workout %d", sel.WorkoutIndex)
		}
		item := items[sel.WorkoutIndex]
		if item.Workout == nil || sel.BlockIndex < 0 || sel.BlockIndex >= len(item.Workout.Blocks) {
			return nil, fmt.Errorf("selection refers to missing block %d of workout %d", sel.BlockIndex, sel.WorkoutIndex)
		}
		doc.Blocks = append(doc.Blocks, domain.CloneBlock(item.Workout.Blocks[sel.BlockIndex]))
	}
	return domain.EnsureIDs(doc), nil
}
