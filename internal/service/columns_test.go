package service

import (
	"context"
	"testing"
	"time"

	"github.com/setforge/setforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJobStore struct {
	jobs map[string]*domain.MappingJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*domain.MappingJob)}
}

func (s *memJobStore) SetJob(ctx context.Context, job *domain.MappingJob, ttl time.Duration) error {
	s.jobs[job.JobID] = job
	return nil
}

func (s *memJobStore) GetJob(ctx context.Context, jobID string) (*domain.MappingJob, error) {
	return s.jobs[jobID], nil
}

func (s *memJobStore) DeleteJob(ctx context.Context, jobID string) error {
	delete(s.jobs, jobID)
	return nil
}

const sampleCSV = `Exercise,Sets,Reps,Rest,Block
Squat,5,5,180,Strength
Bench,5,5,180,Strength
Burpee,3,15,60,Conditioning
KB Swing,3,20,60,Conditioning
`

func TestDetectColumnsScoresHeaders(t *testing.T) {
	svc := NewCSVColumnService(newMemJobStore(), 0)

	det, err := svc.DetectColumns(context.Background(), "p1", "plan.csv", []byte(sampleCSV))
	require.NoError(t, err)
	require.NotEmpty(t, det.JobID)
	require.Len(t, det.Columns, 5)

	byName := map[string]domain.ColumnMapping{}
	for _, col := range det.Columns {
		byName[col.SourceColumn] = col
	}
	assert.Equal(t, domain.FieldExerciseName, byName["Exercise"].TargetField)
	assert.Equal(t, 95, byName["Exercise"].Confidence)
	assert.Equal(t, domain.FieldSets, byName["Sets"].TargetField)
	assert.Equal(t, domain.FieldRestSec, byName["Rest"].TargetField)
	assert.Equal(t, domain.FieldBlock, byName["Block"].TargetField)

	assert.Equal(t, []string{"Squat", "Bench", "Burpee"}, byName["Exercise"].SampleValues)
	assert.Len(t, det.SampleRows, 4)
}

func TestScoreColumnAmbiguousHeaderIsDeterministic(t *testing.T) {
	// "Rest Time" contains both "rest" and "time"; the fallback scan order is
	// fixed, so repeated calls must agree.
	for i := 0; i < 50; i++ {
		target, confidence := scoreColumn("Rest Time")
		require.Equal(t, domain.FieldRestSec, target)
		require.Equal(t, 70, confidence)
	}
	target, _ := scoreColumn("Exercise Comments")
	assert.Equal(t, domain.FieldNotes, target, "longer synonym wins over its prefix")
}

func TestDetectColumnsUnknownHeaderGetsZeroConfidence(t *testing.T) {
	svc := NewCSVColumnService(newMemJobStore(), 0)

	det, err := svc.DetectColumns(context.Background(), "p1", "x.csv", []byte("Foo,Exercise Name\nbar,Squat\n"))
	require.NoError(t, err)

	assert.Equal(t, "", det.Columns[0].TargetField)
	assert.Equal(t, 0, det.Columns[0].Confidence)
	// Partial match through a contained synonym.
	assert.Equal(t, domain.FieldExerciseName, det.Columns[1].TargetField)
	assert.Equal(t, 70, det.Columns[1].Confidence)
}

func TestDetectColumnsRejectsEmptyFile(t *testing.T) {
	svc := NewCSVColumnService(newMemJobStore(), 0)
	_, err := svc.DetectColumns(context.Background(), "p1", "empty.csv", []byte(""))
	assert.Error(t, err)
}

func TestApplyMappingsGroupsConsecutiveBlocks(t *testing.T) {
	store := newMemJobStore()
	svc := NewCSVColumnService(store, 0)
	det, err := svc.DetectColumns(context.Background(), "p1", "plan.csv", []byte(sampleCSV))
	require.NoError(t, err)

	workouts, err := svc.ApplyMappings(context.Background(), det.JobID, "p1", det.Columns)
	require.NoError(t, err)
	require.Len(t, workouts, 1)

	assert.Equal(t, "file-"+det.JobID, workouts[0].DetectedItemID)
	doc := workouts[0].Workout
	assert.Equal(t, "plan", doc.Title)
	assert.Equal(t, "spreadsheet", doc.Source)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "Strength", doc.Blocks[0].Label)
	assert.Equal(t, "Conditioning", doc.Blocks[1].Label)
	require.Len(t, doc.Blocks[0].Exercises, 2)
	assert.Equal(t, "Squat", doc.Blocks[0].Exercises[0].Name)
	assert.Equal(t, 5, doc.Blocks[0].Exercises[0].Sets)
	assert.Equal(t, 180, doc.Blocks[0].Exercises[0].RestSec)

	// The job is consumed: a second apply must fail.
	_, err = svc.ApplyMappings(context.Background(), det.JobID, "p1", det.Columns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or expired")
}

func TestApplyMappingsWithoutBlockColumnYieldsOneBlock(t *testing.T) {
	store := newMemJobStore()
	svc := NewCSVColumnService(store, 0)
	det, err := svc.DetectColumns(context.Background(), "p1", "flat.csv", []byte("Exercise,Reps\nSquat,5\nBench,5\n"))
	require.NoError(t, err)

	workouts, err := svc.ApplyMappings(context.Background(), det.JobID, "p1", det.Columns)
	require.NoError(t, err)

	doc := workouts[0].Workout
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Block 1", doc.Blocks[0].Label)
	assert.Len(t, doc.Blocks[0].Exercises, 2)
}

func TestApplyMappingsRequiresNameField(t *testing.T) {
	store := newMemJobStore()
	svc := NewCSVColumnService(store, 0)
	det, err := svc.DetectColumns(context.Background(), "p1", "plan.csv", []byte(sampleCSV))
	require.NoError(t, err)

	// User cleared every mapping.
	cleared := make([]domain.ColumnMapping, len(det.Columns))
	copy(cleared, det.Columns)
	for i := range cleared {
		cleared[i].TargetField = ""
	}

	_, err = svc.ApplyMappings(context.Background(), det.JobID, "p1", cleared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exercise name")
}

func TestApplyMappingsUserOverrideWins(t *testing.T) {
	store := newMemJobStore()
	svc := NewCSVColumnService(store, 0)
	det, err := svc.DetectColumns(context.Background(), "p1", "odd.csv", []byte("Col A,Col B\nSquat,5\nBench,3\n"))
	require.NoError(t, err)

	// Nothing auto-detected; the user maps the columns by hand.
	mappings := []domain.ColumnMapping{
		{SourceColumn: "Col A", SourceColumnIndex: 0, TargetField: domain.FieldExerciseName, UserOverride: true},
		{SourceColumn: "Col B", SourceColumnIndex: 1, TargetField: domain.FieldReps, UserOverride: true},
	}

	workouts, err := svc.ApplyMappings(context.Background(), det.JobID, "p1", mappings)
	require.NoError(t, err)

	doc := workouts[0].Workout
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Squat", doc.Blocks[0].Exercises[0].Name)
	assert.Equal(t, 5, doc.Blocks[0].Exercises[0].Reps)
}
