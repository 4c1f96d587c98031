package domain

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Block structure types recognized by the editor and the detector.
const (
	StructureCircuit  = "circuit"
	StructureEMOM     = "emom"
	StructureAMRAP    = "amrap"
	StructureTabata   = "tabata"
	StructureForTime  = "for-time"
	StructureSets     = "sets"
	StructureSuperset = "superset"
	StructureRounds   = "rounds"
	StructureWarmup   = "warmup"
	StructureCooldown = "cooldown"
	StructureRegular  = "regular"
)

// IntRange expresses a min-max span for reps or distance.
type IntRange struct {
	Min int `json:"min" bson:"min"`
	Max int `json:"max" bson:"max"`
}

// Exercise is a single movement. Of the "how much" fields exactly one of
// Reps, RepsRange, DurationSec, DistanceM, DistanceRange is expected to be set.
type Exercise struct {
	ID            string    `json:"id,omitempty" bson:"id,omitempty"`
	Name          string    `json:"name" bson:"name"`
	Type          string    `json:"type,omitempty" bson:"type,omitempty"`
	Sets          int       `json:"sets,omitempty" bson:"sets,omitempty"`
	Reps          int       `json:"reps,omitempty" bson:"reps,omitempty"`
	RepsRange     *IntRange `json:"reps_range,omitempty" bson:"reps_range,omitempty"`
	DurationSec   int       `json:"duration_sec,omitempty" bson:"duration_sec,omitempty"`
	DistanceM     int       `json:"distance_m,omitempty" bson:"distance_m,omitempty"`
	DistanceRange *IntRange `json:"distance_range,omitempty" bson:"distance_range,omitempty"`
	RestSec       int       `json:"rest_sec,omitempty" bson:"rest_sec,omitempty"`
	Notes         string    `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Superset is a sub-group of exercises performed back-to-back with shared rest.
type Superset struct {
	ID             string      `json:"id,omitempty" bson:"id,omitempty"`
	Exercises      []*Exercise `json:"exercises" bson:"exercises"`
	RestBetweenSec int         `json:"rest_between_sec,omitempty" bson:"rest_between_sec,omitempty"`
	RestType       string      `json:"rest_type,omitempty" bson:"rest_type,omitempty"`
	Rounds         int         `json:"rounds,omitempty" bson:"rounds,omitempty"`
}

// Block is a named segment of a workout. Exercise content lives in exactly one
// place: the flat Exercises list, or Supersets. When Supersets is non-empty,
// LeadExercise renders before the supersets and TrailingExercises after them.
type Block struct {
	ID        string      `json:"id,omitempty" bson:"id,omitempty"`
	Label     string      `json:"label" bson:"label"`
	Structure string      `json:"structure,omitempty" bson:"structure,omitempty"`
	Exercises []*Exercise `json:"exercises" bson:"exercises"`
	Supersets []*Superset `json:"supersets,omitempty" bson:"supersets,omitempty"`

	LeadExercise      *Exercise   `json:"lead_exercise,omitempty" bson:"lead_exercise,omitempty"`
	TrailingExercises []*Exercise `json:"trailing_exercises,omitempty" bson:"trailing_exercises,omitempty"`

	// Per-structure numeric config.
	Rounds            int  `json:"rounds,omitempty" bson:"rounds,omitempty"`
	RestBetweenSec    int  `json:"rest_between_sec,omitempty" bson:"rest_between_sec,omitempty"`
	TimeCapSec        int  `json:"time_cap_sec,omitempty" bson:"time_cap_sec,omitempty"`
	IntervalSec       int  `json:"interval_sec,omitempty" bson:"interval_sec,omitempty"`
	WarmupDurationSec int  `json:"warmup_duration_sec,omitempty" bson:"warmup_duration_sec,omitempty"`
	RestOverride      *int `json:"rest_override,omitempty" bson:"rest_override,omitempty"`
}

// WorkoutDocument is the structured result of an import or an editor session.
type WorkoutDocument struct {
	Title    string                 `json:"title" bson:"title"`
	Source   string                 `json:"source" bson:"source"`
	Settings map[string]interface{} `json:"settings,omitempty" bson:"settings,omitempty"`
	Blocks   []*Block               `json:"blocks" bson:"blocks"`
}

// NewULID creates a new ULID string
func NewULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// CloneDocument rebuilds the document at every level. Mutations work on the
// clone only, so a reader holding the previous snapshot never observes a
// half-updated tree.
func CloneDocument(doc *WorkoutDocument) *WorkoutDocument {
	if doc == nil {
		return nil
	}
	out := &WorkoutDocument{
		Title:  doc.Title,
		Source: doc.Source,
		Blocks: make([]*Block, len(doc.Blocks)),
	}
	if doc.Settings != nil {
		out.Settings = make(map[string]interface{}, len(doc.Settings))
		for k, v := range doc.Settings {
			out.Settings[k] = v
		}
	}
	for i, b := range doc.Blocks {
		out.Blocks[i] = CloneBlock(b)
	}
	return out
}

// CloneBlock deep-copies a single block.
func CloneBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Exercises = cloneExercises(b.Exercises)
	out.TrailingExercises = cloneExercises(b.TrailingExercises)
	out.LeadExercise = cloneExercise(b.LeadExercise)
	if b.Supersets != nil {
		out.Supersets = make([]*Superset, len(b.Supersets))
		for i, ss := range b.Supersets {
			out.Supersets[i] = cloneSuperset(ss)
		}
	}
	if b.RestOverride != nil {
		v := *b.RestOverride
		out.RestOverride = &v
	}
	return &out
}

func cloneSuperset(ss *Superset) *Superset {
	if ss == nil {
		return nil
	}
	out := *ss
	out.Exercises = cloneExercises(ss.Exercises)
	return &out
}

func cloneExercises(exs []*Exercise) []*Exercise {
	if exs == nil {
		return nil
	}
	out := make([]*Exercise, len(exs))
	for i, ex := range exs {
		out[i] = cloneExercise(ex)
	}
	return out
}

func cloneExercise(ex *Exercise) *Exercise {
	if ex == nil {
		return nil
	}
	out := *ex
	if ex.RepsRange != nil {
		r := *ex.RepsRange
		out.RepsRange = &r
	}
	if ex.DistanceRange != nil {
		r := *ex.DistanceRange
		out.DistanceRange = &r
	}
	return &out
}

// HasIDs reports whether every block, exercise, and superset member of the
// document already carries an id.
func HasIDs(doc *WorkoutDocument) bool {
	for _, b := range doc.Blocks {
		if b.ID == "" {
			return false
		}
		if b.LeadExercise != nil && b.LeadExercise.ID == "" {
			return false
		}
		for _, ex := range b.Exercises {
			if ex.ID == "" {
				return false
			}
		}
		for _, ex := range b.TrailingExercises {
			if ex.ID == "" {
				return false
			}
		}
		for _, ss := range b.Supersets {
			if ss.ID == "" {
				return false
			}
			for _, ex := range ss.Exercises {
				if ex.ID == "" {
					return false
				}
			}
		}
	}
	return true
}

// EnsureIDs assigns ULIDs to every block, exercise, and superset member that
// lacks one. When the whole tree is already id'd the input is returned
// unchanged, same reference, so identity-based change detection downstream is
// not triggered spuriously. Otherwise a clone with ids filled in is returned.
func EnsureIDs(doc *WorkoutDocument) *WorkoutDocument {
	if doc == nil {
		return nil
	}
	if HasIDs(doc) {
		return doc
	}
	out := CloneDocument(doc)
	for _, b := range out.Blocks {
		if b.ID == "" {
			b.ID = NewULID()
		}
		if b.LeadExercise != nil && b.LeadExercise.ID == "" {
			b.LeadExercise.ID = NewULID()
		}
		ensureExerciseIDs(b.Exercises)
		ensureExerciseIDs(b.TrailingExercises)
		for _, ss := range b.Supersets {
			if ss.ID == "" {
				ss.ID = NewULID()
			}
			ensureExerciseIDs(ss.Exercises)
		}
	}
	return out
}

func ensureExerciseIDs(exs []*Exercise) {
	for _, ex := range exs {
		if ex.ID == "" {
			ex.ID = NewULID()
		}
	}
}

// CountExercises tallies every exercise in the document, including superset
// members and the lead/trailing slots.
func CountExercises(doc *WorkoutDocument) int {
	n := 0
	for _, b := range doc.Blocks {
		n += len(b.Exercises) + len(b.TrailingExercises)
		if b.LeadExercise != nil {
			n++
		}
		for _, ss := range b.Supersets {
			n += len(ss.Exercises)
		}
	}
	return n
}
