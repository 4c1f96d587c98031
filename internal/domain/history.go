package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrWorkoutNotFound = errors.New("workout record not found")
)

// WorkoutRecord is a persisted workout in the user's history.
type WorkoutRecord struct {
	ID        string           `json:"id" bson:"_id,omitempty"`
	UserID    string           `json:"user_id" bson:"user_id"`
	DeviceTag string           `json:"device_tag" bson:"device_tag"`
	Workout   *WorkoutDocument `json:"workout" bson:"workout"`
	SavedAt   time.Time        `json:"saved_at" bson:"saved_at"`
	UpdatedAt time.Time        `json:"updated_at" bson:"updated_at"`
}

// HistoryRepository persists workout documents for a user.
type HistoryRepository interface {
	Create(ctx context.Context, record *WorkoutRecord) error
	GetByID(ctx context.Context, id string) (*WorkoutRecord, error)
	ListByUserID(ctx context.Context, userID string, limit int) ([]*WorkoutRecord, error)
	Update(ctx context.Context, record *WorkoutRecord) error
	Delete(ctx context.Context, id string) error
}
