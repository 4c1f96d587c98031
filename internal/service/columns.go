package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/setforge/setforge/internal/domain"
)

const (
	defaultJobTTL  = time.Hour
	maxSampleRows  = 5
	maxSampleCells = 3
)

// columnSynonyms maps lowercased header spellings to workout fields.
var columnSynonyms = map[string]string{
	"exercise":  domain.FieldExerciseName,
	"movement":  domain.FieldExerciseName,
	"lift":      domain.FieldExerciseName,
	"name":      domain.FieldExerciseName,
	"sets":      domain.FieldSets,
	"set":       domain.FieldSets,
	"reps":      domain.FieldReps,
	"rep":       domain.FieldReps,
	"duration":  domain.FieldDurationSec,
	"time":      domain.FieldDurationSec,
	"seconds":   domain.FieldDurationSec,
	"distance":  domain.FieldDistanceM,
	"meters":    domain.FieldDistanceM,
	"rest":      domain.FieldRestSec,
	"notes":     domain.FieldNotes,
	"comment":   domain.FieldNotes,
	"comments":  domain.FieldNotes,
	"block":     domain.FieldBlock,
	"section":   domain.FieldBlock,
	"day":       domain.FieldBlock,
	"circuit":   domain.FieldBlock,
	"superset":  domain.FieldBlock,
	"bodypart":  domain.FieldBlock,
	"body part": domain.FieldBlock,
}

// synonymOrder fixes the contains-fallback scan order: longer synonyms first
// so "comments" wins over "comment", ties broken lexically. Map iteration
// order would make ambiguous headers map nondeterministically.
var synonymOrder = sortedSynonyms()

func sortedSynonyms() []string {
	keys := make([]string, 0, len(columnSynonyms))
	for s := range columnSynonyms {
		keys = append(keys, s)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// CSVColumnService implements FileDetectionService and MappingService for
// spreadsheet/CSV sources. Column detection parses the file, scores each
// header against the workout fields, and parks the parsed contents in the job
// store; apply-mappings consumes the job exactly once.
type CSVColumnService struct {
	jobs   domain.MappingJobStore
	jobTTL time.Duration
}

// NewCSVColumnService creates the service. A zero ttl means one hour.
func NewCSVColumnService(jobs domain.MappingJobStore, jobTTL time.Duration) *CSVColumnService {
	if jobTTL <= 0 {
		jobTTL = defaultJobTTL
	}
	return &CSVColumnService{jobs: jobs, jobTTL: jobTTL}
}

// DetectColumns parses the CSV and proposes a column-to-field mapping with
// 0-100 confidence per column.
func (s *CSVColumnService) DetectColumns(ctx context.Context, profileID string, filename string, data []byte) (*domain.ColumnDetection, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s contains no rows", filename)
	}

	header, rows := records[0], records[1:]
	columns := make([]domain.ColumnMapping, len(header))
	for i, h := range header {
		target, confidence := scoreColumn(h)
		columns[i] = domain.ColumnMapping{
			SourceColumn:      h,
			SourceColumnIndex: i,
			TargetField:       target,
			Confidence:        confidence,
			SampleValues:      sampleColumn(rows, i),
		}
	}

	job := &domain.MappingJob{
		JobID:     domain.NewULID(),
		Filename:  filename,
		Header:    header,
		Rows:      rows,
		CreatedAt: time.Now(),
	}
	if err := s.jobs.SetJob(ctx, job, s.jobTTL); err != nil {
		return nil, fmt.Errorf("failed to store mapping job: %w", err)
	}

	samples := rows
	if len(samples) > maxSampleRows {
		samples = samples[:maxSampleRows]
	}
	return &domain.ColumnDetection{
		JobID:      job.JobID,
		Columns:    columns,
		SampleRows: samples,
	}, nil
}

// ApplyMappings loads the parked job, applies the user-confirmed columns, and
// emits the resulting workout. The job is deleted afterwards: a mapping
// session is consumed exactly once.
func (s *CSVColumnService) ApplyMappings(ctx context.Context, jobID string, profileID string, columns []domain.ColumnMapping) ([]domain.MappedWorkout, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("mapping job %s not found or expired", jobID)
	}

	fieldIdx := make(map[string]int)
	for _, col := range columns {
		if col.TargetField == "" || col.SourceColumnIndex < 0 || col.SourceColumnIndex >= len(job.Header) {
			continue
		}
		if _, taken := fieldIdx[col.TargetField]; taken {
			continue
		}
		fieldIdx[col.TargetField] = col.SourceColumnIndex
	}
	if _, ok := fieldIdx[domain.FieldExerciseName]; !ok {
		return nil, fmt.Errorf("no column mapped to the exercise name field")
	}

	doc := buildWorkoutFromRows(job, fieldIdx)

	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("failed to discard mapping job: %w", err)
	}
	return []domain.MappedWorkout{{
		DetectedItemID: "file-" + jobID,
		Workout:        doc,
	}}, nil
}

// buildWorkoutFromRows turns mapped rows into blocks: consecutive rows with
// the same block-column value share a block; without a block column the whole
// file is one block.
func buildWorkoutFromRows(job *domain.MappingJob, fieldIdx map[string]int) *domain.WorkoutDocument {
	title := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))
	doc := &domain.WorkoutDocument{
		Title:  title,
		Source: "spreadsheet",
	}

	cell := func(row []string, field string) string {
		idx, ok := fieldIdx[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var current *domain.Block
	for _, row := range job.Rows {
		name := cell(row, domain.FieldExerciseName)
		if name == "" {
			continue
		}

		label := cell(row, domain.FieldBlock)
		if current == nil || (label != "" && label != current.Label) {
			current = &domain.Block{
				Label:     label,
				Exercises: []*domain.Exercise{},
			}
			if current.Label == "" {
				current.Label = fmt.Sprintf("Block %d", len(doc.Blocks)+1)
			}
			doc.Blocks = append(doc.Blocks, current)
		}

		ex := &domain.Exercise{
			Name:        name,
			Sets:        atoiOrZero(cell(row, domain.FieldSets)),
			Reps:        atoiOrZero(cell(row, domain.FieldReps)),
			DurationSec: atoiOrZero(cell(row, domain.FieldDurationSec)),
			DistanceM:   atoiOrZero(cell(row, domain.FieldDistanceM)),
			RestSec:     atoiOrZero(cell(row, domain.FieldRestSec)),
			Notes:       cell(row, domain.FieldNotes),
		}
		current.Exercises = append(current.Exercises, ex)
	}
	return doc
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// scoreColumn matches a header against the known fields and synonyms.
func scoreColumn(header string) (string, int) {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return "", 0
	}
	if target, ok := columnSynonyms[h]; ok {
		return target, 95
	}
	for _, synonym := range synonymOrder {
		if strings.Contains(h, synonym) {
			return columnSynonyms[synonym], 70
		}
	}
	return "", 0
}

func sampleColumn(rows [][]string, idx int) []string {
	var out []string
	for _, row := range rows {
		if len(out) == maxSampleCells {
			break
		}
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			out = append(out, strings.TrimSpace(row[idx]))
		}
	}
	return out
}
