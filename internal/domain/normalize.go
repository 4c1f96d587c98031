package domain

const (
	// DefaultWorkoutTitle is used when an imported document carries no title.
	DefaultWorkoutTitle = "Imported Workout"
	// DefaultWorkoutSource tags documents whose origin is unknown.
	DefaultWorkoutSource = "manual"
	// DefaultBlockLabel names the block synthesized for an empty document.
	DefaultBlockLabel = "Block 1"
)

// Normalize returns a normalized copy of the document:
//
//  1. Missing title/source fall back to fixed placeholders.
//  2. A document with no blocks gets one default empty block.
//  3. A block with non-empty supersets has its flat exercise list cleared
//     (content lives in exactly one place), and a nil structure is inferred
//     as "superset". Explicit structures are never overwritten.
//
// The input is not mutated. Normalize is idempotent by value.
func Normalize(doc *WorkoutDocument) *WorkoutDocument {
	out := CloneDocument(doc)
	if out == nil {
		out = &WorkoutDocument{}
	}
	if out.Title == "" {
		out.Title = DefaultWorkoutTitle
	}
	if out.Source == "" {
		out.Source = DefaultWorkoutSource
	}
	if len(out.Blocks) == 0 {
		out.Blocks = []*Block{{
			Label:     DefaultBlockLabel,
			Exercises: []*Exercise{},
		}}
	}
	for _, b := range out.Blocks {
		if len(b.Supersets) > 0 {
			// Even if the producer duplicated exercises into both places.
			b.Exercises = []*Exercise{}
			if b.Structure == "" {
				b.Structure = StructureSuperset
			}
		}
		if b.Exercises == nil {
			b.Exercises = []*Exercise{}
		}
	}
	return out
}
