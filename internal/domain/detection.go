package domain

import "context"

// DetectSourceKind selects which detection mode a batch uses.
type DetectSourceKind string

const (
	DetectURLs   DetectSourceKind = "urls"
	DetectImages DetectSourceKind = "images"
)

// DetectedItem is the detection outcome for one source. It is a discriminated
// result: a non-empty Errors list means failure, otherwise the parsed fields
// are populated. Loosely-typed provider payloads are converted into this shape
// at the collaborator boundary and never propagate further.
type DetectedItem struct {
	Errors              []string         `json:"errors,omitempty"`
	ParsedTitle         string           `json:"parsed_title,omitempty"`
	ParsedBlockCount    int              `json:"parsed_block_count,omitempty"`
	ParsedExerciseCount int              `json:"parsed_exercise_count,omitempty"`
	Workout             *WorkoutDocument `json:"raw_data,omitempty"`
	SourceIcon          string           `json:"source_icon,omitempty"`
}

// Failed reports whether the item carries an item-level error.
func (d *DetectedItem) Failed() bool {
	return len(d.Errors) > 0
}

// DetectionService extracts structured workouts from URLs or base64 images.
// The response slice matches the request order positionally.
type DetectionService interface {
	Detect(ctx context.Context, profileID string, kind DetectSourceKind, sources []string) ([]DetectedItem, error)
}

// FileDetectionService detects the column schema of a spreadsheet/CSV file.
type FileDetectionService interface {
	DetectColumns(ctx context.Context, profileID string, filename string, data []byte) (*ColumnDetection, error)
}

// MappingService applies user-confirmed column mappings to a previously
// detected file and returns the resulting workouts.
type MappingService interface {
	ApplyMappings(ctx context.Context, jobID string, profileID string, columns []ColumnMapping) ([]MappedWorkout, error)
}
