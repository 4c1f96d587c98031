package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/setforge/setforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	calls  int
	detect func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error)
}

func (d *fakeDetector) Detect(ctx context.Context, profileID string, kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
	d.calls++
	return d.detect(kind, sources)
}

type fakeHistory struct {
	saved  []*domain.WorkoutRecord
	failOn map[string]bool // workout title -> fail
}

func (h *fakeHistory) Create(ctx context.Context, record *domain.WorkoutRecord) error {
	if h.failOn[record.Workout.Title] {
		return errors.New("mongo unavailable")
	}
	h.saved = append(h.saved, record)
	return nil
}
func (h *fakeHistory) GetByID(ctx context.Context, id string) (*domain.WorkoutRecord, error) {
	return nil, domain.ErrWorkoutNotFound
}
func (h *fakeHistory) ListByUserID(ctx context.Context, userID string, limit int) ([]*domain.WorkoutRecord, error) {
	return h.saved, nil
}
func (h *fakeHistory) Update(ctx context.Context, record *domain.WorkoutRecord) error { return nil }
func (h *fakeHistory) Delete(ctx context.Context, id string) error                    { return nil }

func doneItem(title string) domain.DetectedItem {
	return domain.DetectedItem{
		ParsedTitle: title,
		Workout: &domain.WorkoutDocument{
			Title:  title,
			Blocks: []*domain.Block{{Label: "A", Exercises: []*domain.Exercise{{Name: "Squat"}}}},
		},
	}
}

func newTestFlow(detector domain.DetectionService, history domain.HistoryRepository) *ImportFlow {
	return NewImportFlow(ImportFlowConfig{
		ProfileID: "p1",
		UserID:    "u1",
		DeviceTag: "test",
		Detector:  detector,
		History:   history,
	})
}

func TestHandleImportHappyPath(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		items := make([]domain.DetectedItem, len(sources))
		for i, s := range sources {
			items[i] = doneItem("from " + s)
		}
		return items, nil
	}}
	f := newTestFlow(det, &fakeHistory{})
	added := f.Queue().AddURLs("https://a.example\nhttps://b.example")

	require.NoError(t, f.HandleImport(context.Background()))

	assert.Equal(t, PhaseResults, f.Phase())
	results := f.Results()
	require.Len(t, results, 2)
	assert.Equal(t, added[0].ID, results[0].QueueID)
	assert.Equal(t, added[1].ID, results[1].QueueID)
	assert.Equal(t, domain.ProcessedDone, results[0].Status)
	assert.Equal(t, "from https://a.example", results[0].WorkoutTitle)
	require.NotNil(t, results[0].Workout)
	assert.True(t, domain.HasIDs(results[0].Workout))
}

func TestHandleImportFailureRevertsToInput(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		return nil, errors.New("provider down")
	}}
	f := newTestFlow(det, &fakeHistory{})
	f.Queue().AddURLs("https://a.example")

	err := f.HandleImport(context.Background())

	require.Error(t, err)
	assert.Equal(t, PhaseInput, f.Phase())
	assert.Empty(t, f.Results(), "no outcome from the failed attempt may survive")
}

func TestHandleImportRequiresInputPhase(t *testing.T) {
	f := newTestFlow(&fakeDetector{}, &fakeHistory{})
	f.setPhase(PhaseResults)

	err := f.HandleImport(context.Background())
	assert.ErrorIs(t, err, domain.ErrBadPhase)
}

func TestHandleImportItemLevelFailureIsRecorded(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		return []domain.DetectedItem{
			doneItem("good"),
			{Errors: []string{"could not read page"}},
		}, nil
	}}
	f := newTestFlow(det, &fakeHistory{})
	f.Queue().AddURLs("https://a.example\nhttps://b.example")

	require.NoError(t, f.HandleImport(context.Background()))

	results := f.Results()
	require.Len(t, results, 2)
	assert.Equal(t, domain.ProcessedDone, results[0].Status)
	assert.Equal(t, domain.ProcessedFailed, results[1].Status)
	assert.Equal(t, "could not read page", results[1].ErrorMessage)
}

func TestHandleSaveAllAggregatesFailures(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		return []domain.DetectedItem{doneItem("keeps"), doneItem("breaks")}, nil
	}}
	history := &fakeHistory{failOn: map[string]bool{"breaks": true}}
	completed := false
	f := newTestFlow(det, history)
	f.cfg.OnComplete = func() { completed = true }
	f.Queue().AddURLs("https://a.example\nhttps://b.example")
	require.NoError(t, f.HandleImport(context.Background()))

	err := f.HandleSaveAll(context.Background())

	require.EqualError(t, err, "failed to save 1 of 2 workouts")
	assert.False(t, completed, "completion callback must not fire on partial failure")
	// The save that succeeded is not rolled back.
	require.Len(t, history.saved, 1)
	assert.Equal(t, "keeps", history.saved[0].Workout.Title)
	assert.Equal(t, "u1", history.saved[0].UserID)
	assert.Equal(t, "test", history.saved[0].DeviceTag)
}

func TestHandleSaveAllSuccessFiresOnComplete(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		return []domain.DetectedItem{doneItem("one")}, nil
	}}
	history := &fakeHistory{}
	completed := false
	f := newTestFlow(det, history)
	f.cfg.OnComplete = func() { completed = true }
	f.Queue().AddURLs("https://a.example")
	require.NoError(t, f.HandleImport(context.Background()))

	require.NoError(t, f.HandleSaveAll(context.Background()))
	assert.True(t, completed)
	assert.Len(t, history.saved, 1)
}

func TestHandleRetryReplacesEntryInPlace(t *testing.T) {
	attempt := 0
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		attempt++
		if attempt == 1 {
			return []domain.DetectedItem{{Errors: []string{"transient"}}, doneItem("second")}, nil
		}
		return []domain.DetectedItem{doneItem("recovered")}, nil
	}}
	f := newTestFlow(det, &fakeHistory{})
	added := f.Queue().AddURLs("https://a.example\nhttps://b.example")
	require.NoError(t, f.HandleImport(context.Background()))
	require.Equal(t, domain.ProcessedFailed, f.Results()[0].Status)

	require.NoError(t, f.HandleRetry(context.Background(), added[0].ID))

	results := f.Results()
	require.Len(t, results, 2, "retry must replace, not append")
	assert.Equal(t, added[0].ID, results[0].QueueID, "ordering preserved")
	assert.Equal(t, domain.ProcessedDone, results[0].Status)
	assert.Equal(t, "recovered", results[0].WorkoutTitle)
}

func TestHandleRetryRemoteFailureBecomesErrorStatus(t *testing.T) {
	attempt := 0
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		attempt++
		if attempt == 1 {
			return []domain.DetectedItem{doneItem("first")}, nil
		}
		return nil, errors.New("still down")
	}}
	f := newTestFlow(det, &fakeHistory{})
	added := f.Queue().AddURLs("https://a.example")
	require.NoError(t, f.HandleImport(context.Background()))

	// The retry call itself does not fail; the outcome does.
	require.NoError(t, f.HandleRetry(context.Background(), added[0].ID))

	results := f.Results()
	require.Len(t, results, 1)
	assert.Equal(t, domain.ProcessedError, results[0].Status)
	assert.Equal(t, "still down", results[0].ErrorMessage)
}

func TestHandleRetryUnknownQueueID(t *testing.T) {
	f := newTestFlow(&fakeDetector{}, &fakeHistory{})
	err := f.HandleRetry(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown queue item")
}

func TestHandleRetryFileWithoutBase64FailsFast(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		t.Fatal("detector must not be called")
		return nil, nil
	}}
	f := newTestFlow(det, &fakeHistory{})
	added := f.Queue().AddFiles([]domain.FileSource{
		fakeFile{name: "wod.png", contentType: "image/png", data: []byte("img")},
	})

	err := f.HandleRetry(context.Background(), added[0].ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "never converted to base64")
}

func TestBlockPickerPhaseToggles(t *testing.T) {
	f := newTestFlow(&fakeDetector{}, &fakeHistory{})

	assert.ErrorIs(t, f.GoToBlockPicker(), domain.ErrBadPhase)

	f.setPhase(PhaseResults)
	require.NoError(t, f.GoToBlockPicker())
	assert.Equal(t, PhaseBlockPicker, f.Phase())

	require.NoError(t, f.CancelBlockPicker())
	assert.Equal(t, PhaseResults, f.Phase())
	assert.ErrorIs(t, f.CancelBlockPicker(), domain.ErrBadPhase)
}

func TestCombineBlocksAndAddCombinedResult(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		return []domain.DetectedItem{doneItem("a"), doneItem("b")}, nil
	}}
	f := newTestFlow(det, &fakeHistory{})
	f.Queue().AddURLs("https://a.example\nhttps://b.example")
	require.NoError(t, f.HandleImport(context.Background()))
	require.NoError(t, f.GoToBlockPicker())

	f.Combiner().Toggle(BlockSelection{WorkoutIndex: 1, BlockIndex: 0})
	f.Combiner().Toggle(BlockSelection{WorkoutIndex: 0, BlockIndex: 0})

	doc, err := f.CombineBlocks("Mixed")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "Mixed", doc.Title)

	id := f.AddCombinedResult(doc)
	require.NoError(t, f.CancelBlockPicker())

	results := f.Results()
	require.Len(t, results, 3)
	last := results[2]
	assert.Equal(t, id, last.QueueID)
	assert.Equal(t, domain.ProcessedDone, last.Status)
	assert.Equal(t, 2, last.BlockCount)
}

type fakeFileDetector struct {
	det   *domain.ColumnDetection
	err   error
	names []string
}

func (d *fakeFileDetector) DetectColumns(ctx context.Context, profileID string, filename string, data []byte) (*domain.ColumnDetection, error) {
	d.names = append(d.names, filename)
	return d.det, d.err
}

type fakeFiles struct {
	uploads []string
}

func (r *fakeFiles) Upload(ctx context.Context, file []byte, filename string, contentType string) (string, error) {
	r.uploads = append(r.uploads, filename)
	return "http://files.local/" + filename, nil
}

type fakeMapper struct {
	workouts []domain.MappedWorkout
	err      error
}

func (m *fakeMapper) ApplyMappings(ctx context.Context, jobID string, profileID string, columns []domain.ColumnMapping) ([]domain.MappedWorkout, error) {
	return m.workouts, m.err
}

func TestHandleImportArchivesMediaSources(t *testing.T) {
	det := &fakeDetector{detect: func(kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
		items := make([]domain.DetectedItem, len(sources))
		for i := range sources {
			items[i] = doneItem("parsed")
		}
		return items, nil
	}}
	files := &fakeFiles{}
	f := NewImportFlow(ImportFlowConfig{
		ProfileID: "p1",
		UserID:    "u1",
		Detector:  det,
		Files:     files,
	})
	f.Queue().AddURLs("https://a.example")
	f.Queue().AddFiles([]domain.FileSource{
		fakeFile{name: "wod.png", contentType: "image/png", data: []byte("img")},
	})

	require.NoError(t, f.HandleImport(context.Background()))

	require.Len(t, files.uploads, 1, "image sources are archived, url sources are not")
	assert.Contains(t, files.uploads[0], "wod.png")
	assert.Contains(t, files.uploads[0], "u1/")
}

func TestHandleFilesDetectedQueuesAndArchivesEveryFile(t *testing.T) {
	detector := &fakeFileDetector{det: &domain.ColumnDetection{JobID: "job-1"}}
	files := &fakeFiles{}
	f := NewImportFlow(ImportFlowConfig{
		ProfileID:    "p1",
		UserID:       "u1",
		FileDetector: detector,
		Files:        files,
	})

	err := f.HandleFilesDetected(context.Background(), []domain.FileSource{
		fakeFile{name: "plan.csv", contentType: "text/csv", data: []byte("Exercise\nSquat\n")},
		fakeFile{name: "scans.pdf", contentType: "application/pdf", data: []byte("pdf")},
	})

	require.NoError(t, err)
	require.Len(t, files.uploads, 2, "every file is archived, not just the first")
	assert.Contains(t, files.uploads[0], "plan.csv")
	assert.Contains(t, files.uploads[1], "scans.pdf")
	assert.Equal(t, []string{"plan.csv"}, detector.names, "column detection uses the first file only")

	queued := f.Queue().Items()
	require.Len(t, queued, 1, "pdf passes the queue's type filter, csv does not")
	assert.Equal(t, "scans.pdf", queued[0].Label)
}

func TestHandleFilesDetectedEntersColumnMapping(t *testing.T) {
	f := NewImportFlow(ImportFlowConfig{
		ProfileID: "p1",
		FileDetector: &fakeFileDetector{det: &domain.ColumnDetection{
			JobID:   "job-1",
			Columns: []domain.ColumnMapping{{SourceColumn: "Exercise", TargetField: domain.FieldExerciseName, Confidence: 95}},
		}},
	})

	err := f.HandleFilesDetected(context.Background(), []domain.FileSource{
		fakeFile{name: "plan.csv", contentType: "text/csv", data: []byte("Exercise\nSquat\n")},
	})

	require.NoError(t, err)
	assert.Equal(t, PhaseColumnMapping, f.Phase())
	require.NotNil(t, f.Mapping())
	assert.Equal(t, "job-1", f.Mapping().JobID)
}

func TestHandleFilesDetectedDegradesOnFailure(t *testing.T) {
	f := NewImportFlow(ImportFlowConfig{
		ProfileID:    "p1",
		FileDetector: &fakeFileDetector{err: fmt.Errorf("not a csv")},
	})

	err := f.HandleFilesDetected(context.Background(), []domain.FileSource{
		fakeFile{name: "plan.csv", contentType: "text/csv", data: []byte("garbage")},
	})

	require.NoError(t, err, "detection failure degrades, it does not propagate")
	assert.Equal(t, PhaseColumnMapping, f.Phase())
	require.NotNil(t, f.Mapping())
	assert.Empty(t, f.Mapping().JobID)
}

func TestHandleColumnMappingCompleteReplacesResults(t *testing.T) {
	mapped := &domain.WorkoutDocument{
		Title:  "plan",
		Blocks: []*domain.Block{{Label: "Day 1", Exercises: []*domain.Exercise{{Name: "Squat"}, {Name: "Bench"}}}},
	}
	f := NewImportFlow(ImportFlowConfig{
		ProfileID:    "p1",
		FileDetector: &fakeFileDetector{det: &domain.ColumnDetection{JobID: "job-1"}},
		Mapper:       &fakeMapper{workouts: []domain.MappedWorkout{{DetectedItemID: "file-job-1", Workout: mapped}}},
	})
	require.NoError(t, f.HandleFilesDetected(context.Background(), []domain.FileSource{
		fakeFile{name: "plan.csv", contentType: "text/csv", data: []byte("x")},
	}))

	require.NoError(t, f.HandleColumnMappingComplete(context.Background(), nil))

	assert.Equal(t, PhaseResults, f.Phase())
	assert.Nil(t, f.Mapping(), "mapping session is consumed")
	results := f.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "file-job-1", results[0].QueueID)
	assert.Equal(t, 2, results[0].ExerciseCount)
}

func TestHandleColumnMappingCompleteDegradesOnMapperFailure(t *testing.T) {
	f := NewImportFlow(ImportFlowConfig{
		ProfileID:    "p1",
		FileDetector: &fakeFileDetector{det: &domain.ColumnDetection{JobID: "job-1"}},
		Mapper:       &fakeMapper{err: errors.New("job expired")},
	})
	require.NoError(t, f.HandleFilesDetected(context.Background(), []domain.FileSource{
		fakeFile{name: "plan.csv", contentType: "text/csv", data: []byte("x")},
	}))

	require.NoError(t, f.HandleColumnMappingComplete(context.Background(), nil))
	assert.Equal(t, PhaseResults, f.Phase())
	assert.Empty(t, f.Results())
}
