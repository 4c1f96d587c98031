package service

import (
	"github.com/setforge/setforge/internal/domain"
)

// DragScope tags which nesting level a drag operation acts on.
type DragScope string

const (
	ScopeBlock            DragScope = "block"
	ScopeExercise         DragScope = "exercise"
	ScopeSupersetExercise DragScope = "superset-exercise"
)

// DragPayload is carried on the dragged item and identifies it within its
// scope. BlockID is required for the exercise scopes, SupersetID additionally
// for the superset-exercise scope.
type DragPayload struct {
	Scope      DragScope `json:"scope"`
	BlockID    string    `json:"block_id,omitempty"`
	SupersetID string    `json:"superset_id,omitempty"`
	ItemID     string    `json:"item_id"`
}

// Reorder performs one drag-and-drop move. The document is cloned in full and
// a single remove-then-insert is performed between the dragged item's index
// and the target's index within the scoped slice. When there is no valid
// target, the item is dropped on itself, or either id cannot be found in its
// scope, the input document is returned unchanged, same reference.
func Reorder(doc *domain.WorkoutDocument, drag DragPayload, targetID string) *domain.WorkoutDocument {
	if doc == nil || targetID == "" || targetID == drag.ItemID {
		return doc
	}

	clone := domain.CloneDocument(doc)

	switch drag.Scope {
	case ScopeBlock:
		if moveByID(blockIDs(clone.Blocks), drag.ItemID, targetID, func(from, to int) {
			moveBlock(&clone.Blocks, from, to)
		}) {
			return clone
		}
	case ScopeExercise:
		if b := findBlock(clone, drag.BlockID); b != nil {
			if moveByID(exerciseIDs(b.Exercises), drag.ItemID, targetID, func(from, to int) {
				moveExercise(&b.Exercises, from, to)
			}) {
				return clone
			}
		}
	case ScopeSupersetExercise:
		if b := findBlock(clone, drag.BlockID); b != nil {
			if ss := findSuperset(b, drag.SupersetID); ss != nil {
				if moveByID(exerciseIDs(ss.Exercises), drag.ItemID, targetID, func(from, to int) {
					moveExercise(&ss.Exercises, from, to)
				}) {
					return clone
				}
			}
		}
	}

	// Abandoned: no mutation happened, keep the original reference.
	return doc
}

func moveByID(ids []string, itemID, targetID string, move func(from, to int)) bool {
	from, to := -1, -1
	for i, id := range ids {
		if id == itemID {
			from = i
		}
		if id == targetID {
			to = i
		}
	}
	if from < 0 || to < 0 {
		return false
	}
	move(from, to)
	return true
}

func blockIDs(blocks []*domain.Block) []string {
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

func exerciseIDs(exs []*domain.Exercise) []string {
	ids := make([]string, len(exs))
	for i, ex := range exs {
		ids[i] = ex.ID
	}
	return ids
}

func moveBlock(blocks *[]*domain.Block, from, to int) {
	b := (*blocks)[from]
	*blocks = append((*blocks)[:from], (*blocks)[from+1:]...)
	rest := append([]*domain.Block{}, (*blocks)[to:]...)
	*blocks = append(append((*blocks)[:to], b), rest...)
}

func moveExercise(exs *[]*domain.Exercise, from, to int) {
	ex := (*exs)[from]
	*exs = append((*exs)[:from], (*exs)[from+1:]...)
	rest := append([]*domain.Exercise{}, (*exs)[to:]...)
	*exs = append(append((*exs)[:to], ex), rest...)
}

func findBlock(doc *domain.WorkoutDocument, id string) *domain.Block {
	for _, b := range doc.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func findSuperset(b *domain.Block, id string) *domain.Superset {
	for _, ss := range b.Supersets {
		if ss.ID == id {
			return ss
		}
	}
	return nil
}

// The mutation helpers below all follow the same discipline: clone the whole
// document, mutate only the clone, return the clone. A nil return means the
// target was not found and nothing changed.

// AddBlock appends an empty block.
func AddBlock(doc *domain.WorkoutDocument, label string) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	if label == "" {
		label = domain.DefaultBlockLabel
	}
	clone.Blocks = append(clone.Blocks, &domain.Block{
		ID:        domain.NewULID(),
		Label:     label,
		Exercises: []*domain.Exercise{},
	})
	return clone
}

// DeleteBlock splices out the block with the given id.
func DeleteBlock(doc *domain.WorkoutDocument, blockID string) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	for i, b := range clone.Blocks {
		if b.ID == blockID {
			clone.Blocks = append(clone.Blocks[:i], clone.Blocks[i+1:]...)
			return clone
		}
	}
	return nil
}

// UpdateBlock applies fn to the addressed block on a clone.
func UpdateBlock(doc *domain.WorkoutDocument, blockID string, fn func(*domain.Block)) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	fn(b)
	return clone
}

// AddExercise appends a new exercise to a block. When the block has supersets
// the exercise goes into the trailing slot, preserving the rendering contract:
// lead exercise first, then supersets, then trailing exercises.
func AddExercise(doc *domain.WorkoutDocument, blockID string, ex *domain.Exercise) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	if ex.ID == "" {
		ex.ID = domain.NewULID()
	}
	if len(b.Supersets) > 0 {
		b.TrailingExercises = append(b.TrailingExercises, ex)
	} else {
		b.Exercises = append(b.Exercises, ex)
	}
	return clone
}

// SetLeadExercise sets or clears the before-supersets exercise slot.
func SetLeadExercise(doc *domain.WorkoutDocument, blockID string, ex *domain.Exercise) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	if ex != nil && ex.ID == "" {
		ex.ID = domain.NewULID()
	}
	b.LeadExercise = ex
	return clone
}

// DeleteExercise removes an exercise from a block, wherever it lives: the
// flat list, the lead slot, the trailing list, or a superset.
func DeleteExercise(doc *domain.WorkoutDocument, blockID string, exerciseID string) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	if b.LeadExercise != nil && b.LeadExercise.ID == exerciseID {
		b.LeadExercise = nil
		return clone
	}
	if spliceExercise(&b.Exercises, exerciseID) || spliceExercise(&b.TrailingExercises, exerciseID) {
		return clone
	}
	for _, ss := range b.Supersets {
		if spliceExercise(&ss.Exercises, exerciseID) {
			return clone
		}
	}
	return nil
}

func spliceExercise(exs *[]*domain.Exercise, id string) bool {
	for i, ex := range *exs {
		if ex.ID == id {
			*exs = append((*exs)[:i], (*exs)[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateExercise applies fn to one exercise of a block, searching every slot.
func UpdateExercise(doc *domain.WorkoutDocument, blockID string, exerciseID string, fn func(*domain.Exercise)) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	if ex := findExercise(b, exerciseID); ex != nil {
		fn(ex)
		return clone
	}
	return nil
}

func findExercise(b *domain.Block, id string) *domain.Exercise {
	if b.LeadExercise != nil && b.LeadExercise.ID == id {
		return b.LeadExercise
	}
	for _, ex := range b.Exercises {
		if ex.ID == id {
			return ex
		}
	}
	for _, ex := range b.TrailingExercises {
		if ex.ID == id {
			return ex
		}
	}
	for _, ss := range b.Supersets {
		for _, ex := range ss.Exercises {
			if ex.ID == id {
				return ex
			}
		}
	}
	return nil
}

// AddSuperset appends an empty superset to a block. Flat exercises already in
// the block move to the trailing slot so content keeps a single home.
func AddSuperset(doc *domain.WorkoutDocument, blockID string) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	if len(b.Supersets) == 0 && len(b.Exercises) > 0 {
		b.TrailingExercises = append(b.TrailingExercises, b.Exercises...)
		b.Exercises = []*domain.Exercise{}
	}
	b.Supersets = append(b.Supersets, &domain.Superset{
		ID:        domain.NewULID(),
		Exercises: []*domain.Exercise{},
	})
	if b.Structure == "" {
		b.Structure = domain.StructureSuperset
	}
	return clone
}

// DeleteSuperset splices out one superset of a block.
func DeleteSuperset(doc *domain.WorkoutDocument, blockID string, supersetID string) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	for i, ss := range b.Supersets {
		if ss.ID == supersetID {
			b.Supersets = append(b.Supersets[:i], b.Supersets[i+1:]...)
			return clone
		}
	}
	return nil
}

// AddSupersetExercise appends an exercise to one superset of a block.
func AddSupersetExercise(doc *domain.WorkoutDocument, blockID string, supersetID string, ex *domain.Exercise) *domain.WorkoutDocument {
	clone := domain.CloneDocument(doc)
	b := findBlock(clone, blockID)
	if b == nil {
		return nil
	}
	ss := findSuperset(b, supersetID)
	if ss == nil {
		return nil
	}
	if ex.ID == "" {
		ex.ID = domain.NewULID()
	}
	ss.Exercises = append(ss.Exercises, ex)
	return clone
}
