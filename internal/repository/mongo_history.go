package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/setforge/setforge/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const historyCollection = "workout_history"

// MongoHistoryRepository implements domain.HistoryRepository using MongoDB
type MongoHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoHistoryRepository creates a new MongoDB repository
func NewMongoHistoryRepository(db *mongo.Database) *MongoHistoryRepository {
	collection := db.Collection(historyCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Index on user_id and saved_at for efficient history queries
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "saved_at", Value: -1},
		},
	}
	_, _ = collection.Indexes().CreateOne(ctx, indexModel)

	return &MongoHistoryRepository{collection: collection}
}

// Create saves a new workout record
func (r *MongoHistoryRepository) Create(ctx context.Context, record *domain.WorkoutRecord) error {
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now()
	}
	record.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to insert workout record: %w", err)
	}
	return nil
}

// GetByID retrieves one record
func (r *MongoHistoryRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutRecord, error) {
	var record domain.WorkoutRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("failed to get workout record: %w", err)
	}
	return &record, nil
}

// ListByUserID returns the user's history, newest first
func (r *MongoHistoryRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*domain.WorkoutRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workout records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.WorkoutRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode workout records: %w", err)
	}
	return records, nil
}

// Update replaces the workout payload of an existing record
func (r *MongoHistoryRepository) Update(ctx context.Context, record *domain.WorkoutRecord) error {
	record.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	if err != nil {
		return fmt.Errorf("failed to update workout record: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrWorkoutNotFound
	}
	return nil
}

// Delete removes one record
func (r *MongoHistoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete workout record: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrWorkoutNotFound
	}
	return nil
}
