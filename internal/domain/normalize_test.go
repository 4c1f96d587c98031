package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	out := Normalize(&WorkoutDocument{})

	if out.Title != DefaultWorkoutTitle {
		t.Errorf("Title = %q, want %q", out.Title, DefaultWorkoutTitle)
	}
	if out.Source != DefaultWorkoutSource {
		t.Errorf("Source = %q, want %q", out.Source, DefaultWorkoutSource)
	}
	if len(out.Blocks) != 1 {
		t.Fatalf("Blocks = %d, want 1 synthesized block", len(out.Blocks))
	}
	if out.Blocks[0].Label != DefaultBlockLabel {
		t.Errorf("block label = %q, want %q", out.Blocks[0].Label, DefaultBlockLabel)
	}
}

func TestNormalizeKeepsExplicitFields(t *testing.T) {
	out := Normalize(&WorkoutDocument{
		Title:  "Leg Day",
		Source: "url",
		Blocks: []*Block{{Label: "Squats", Structure: StructureSets}},
	})

	if out.Title != "Leg Day" || out.Source != "url" {
		t.Errorf("explicit title/source overwritten: %q %q", out.Title, out.Source)
	}
	if out.Blocks[0].Structure != StructureSets {
		t.Errorf("explicit structure overwritten: %q", out.Blocks[0].Structure)
	}
}

func TestNormalizeSupersetsClearFlatExercises(t *testing.T) {
	doc := &WorkoutDocument{
		Title: "Push",
		Blocks: []*Block{{
			Label: "A",
			// Producer duplicated the exercises into both places.
			Exercises: []*Exercise{{Name: "Bench Press"}},
			Supersets: []*Superset{{
				Exercises: []*Exercise{{Name: "Bench Press"}, {Name: "Row"}},
			}},
		}},
	}

	out := Normalize(doc)

	if len(out.Blocks[0].Exercises) != 0 {
		t.Errorf("flat exercises = %d, want 0 when supersets present", len(out.Blocks[0].Exercises))
	}
	if out.Blocks[0].Structure != StructureSuperset {
		t.Errorf("structure = %q, want inferred %q", out.Blocks[0].Structure, StructureSuperset)
	}
	// Input must be untouched.
	if len(doc.Blocks[0].Exercises) != 1 {
		t.Errorf("input document was mutated")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	doc := &WorkoutDocument{
		Blocks: []*Block{{
			Supersets: []*Superset{{Exercises: []*Exercise{{Name: "Dip"}}}},
		}},
	}

	once := Normalize(doc)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize is not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}
