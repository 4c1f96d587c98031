package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/setforge/setforge/internal/domain"
)

const mappingJobKeyPrefix = "import:mapping_job:"

// RedisJobStore implements domain.MappingJobStore using Redis. Jobs live only
// between the detect-columns and apply-mappings calls, so a TTL is enough
// cleanup.
type RedisJobStore struct {
	client *redis.Client
}

// NewRedisJobStore creates a new Redis job store
func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

// SetJob stores the parsed file contents under the job id with TTL
func (r *RedisJobStore) SetJob(ctx context.Context, job *domain.MappingJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping job: %w", err)
	}
	if err := r.client.Set(ctx, mappingJobKeyPrefix+job.JobID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store mapping job: %w", err)
	}
	return nil
}

// GetJob retrieves a job; a miss returns (nil, nil)
func (r *RedisJobStore) GetJob(ctx context.Context, jobID string) (*domain.MappingJob, error) {
	data, err := r.client.Get(ctx, mappingJobKeyPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mapping job: %w", err)
	}

	var job domain.MappingJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping job: %w", err)
	}
	return &job, nil
}

// DeleteJob removes a consumed job
func (r *RedisJobStore) DeleteJob(ctx context.Context, jobID string) error {
	if err := r.client.Del(ctx, mappingJobKeyPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to delete mapping job: %w", err)
	}
	return nil
}
