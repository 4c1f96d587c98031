package domain

import (
	"context"
	"time"
)

// Column target fields a spreadsheet column can be mapped onto.
const (
	FieldExerciseName = "name"
	FieldSets         = "sets"
	FieldReps         = "reps"
	FieldDurationSec  = "duration_sec"
	FieldDistanceM    = "distance_m"
	FieldRestSec      = "rest_sec"
	FieldNotes        = "notes"
	FieldBlock        = "block"
)

// ColumnMapping is one spreadsheet-column-to-workout-field assignment.
// Produced by the column detector, edited by the user, consumed exactly once
// by apply-mappings.
type ColumnMapping struct {
	SourceColumn      string   `json:"source_column"`
	SourceColumnIndex int      `json:"source_column_index"`
	TargetField       string   `json:"target_field"`
	Confidence        int      `json:"confidence"` // 0-100
	UserOverride      bool     `json:"user_override"`
	SampleValues      []string `json:"sample_values,omitempty"`
}

// ColumnDetection is the column detector's response for one file.
type ColumnDetection struct {
	JobID      string          `json:"job_id"`
	Columns    []ColumnMapping `json:"columns"`
	SampleRows [][]string      `json:"sample_rows,omitempty"`
}

// MappedWorkout pairs an applied-mapping result with the synthetic key of the
// file-derived item it belongs to.
type MappedWorkout struct {
	DetectedItemID string           `json:"detected_item_id"`
	Workout        *WorkoutDocument `json:"parsed_workout"`
}

// MappingJob is the server-side state of a pending column-mapping session:
// the parsed file contents waiting for the user's final column assignments.
type MappingJob struct {
	JobID     string     `json:"job_id"`
	Filename  string     `json:"filename"`
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	CreatedAt time.Time  `json:"created_at"`
}

// MappingJobStore persists mapping jobs between the detect-columns and
// apply-mappings calls. A miss returns (nil, nil).
type MappingJobStore interface {
	SetJob(ctx context.Context, job *MappingJob, ttl time.Duration) error
	GetJob(ctx context.Context, jobID string) (*MappingJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}
