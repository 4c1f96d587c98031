package domain

// ProcessedStatus is the lifecycle state of one detection outcome.
type ProcessedStatus string

const (
	ProcessedPending ProcessedStatus = "pending"
	ProcessedDone    ProcessedStatus = "done"
	ProcessedFailed  ProcessedStatus = "failed"
	ProcessedError   ProcessedStatus = "error"
)

// ProcessedItem is the detection/parse outcome for one queue item, or one
// file-derived sub-item under a synthetic key. Exactly one ProcessedItem
// exists per logical source at any time; re-processing replaces the entry.
type ProcessedItem struct {
	QueueID string          `json:"queue_id"`
	Status  ProcessedStatus `json:"status"`

	// Populated when Status is done.
	WorkoutTitle  string           `json:"workout_title,omitempty"`
	BlockCount    int              `json:"block_count,omitempty"`
	ExerciseCount int              `json:"exercise_count,omitempty"`
	Workout       *WorkoutDocument `json:"workout,omitempty"`
	SourceIcon    string           `json:"source_icon,omitempty"`

	// Populated when Status is failed or error.
	ErrorMessage string `json:"error_message,omitempty"`
}
