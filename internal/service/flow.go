package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/setforge/setforge/internal/domain"
)

// Phase is one state of the import flow's state machine.
type Phase string

const (
	PhaseInput         Phase = "input"
	PhaseProcessing    Phase = "processing"
	PhaseColumnMapping Phase = "column-mapping"
	PhaseResults       Phase = "results"
	PhaseBlockPicker   Phase = "block-picker"
)

// MappingSession is the transient state between column detection and the
// apply-mappings call. It is consumed exactly once.
type MappingSession struct {
	JobID      string                 `json:"job_id"`
	Columns    []domain.ColumnMapping `json:"columns"`
	SampleRows [][]string             `json:"sample_rows,omitempty"`
}

// ImportFlowConfig carries the collaborators and identity of one flow.
type ImportFlowConfig struct {
	ProfileID string
	UserID    string
	DeviceTag string

	Detector     domain.DetectionService
	FileDetector domain.FileDetectionService
	Mapper       domain.MappingService
	History      domain.HistoryRepository
	Files        domain.FileRepository // optional source archive

	// OnComplete fires after HandleSaveAll persists every item successfully.
	OnComplete func()
}

// ImportFlow drives the bulk import pipeline:
//
//	input → processing → results
//
// with two side branches: input → column-mapping → results for file sources,
// and results ⇄ block-picker. Remote calls run outside the state lock;
// outcomes are applied by queue id and generation, so a late response for a
// removed or retried item is dropped rather than applied.
type ImportFlow struct {
	cfg      ImportFlowConfig
	queue    *ImportQueue
	results  *ResultStore
	combiner *BlockCombiner

	mu      sync.Mutex
	phase   Phase
	mapping *MappingSession
}

// NewImportFlow creates a flow in the input phase with an empty queue.
func NewImportFlow(cfg ImportFlowConfig) *ImportFlow {
	return &ImportFlow{
		cfg:      cfg,
		queue:    NewImportQueue(nil),
		results:  NewResultStore(),
		combiner: NewBlockCombiner(),
		phase:    PhaseInput,
	}
}

// Queue exposes the flow's import queue.
func (f *ImportFlow) Queue() *ImportQueue { return f.queue }

// Results returns the current processed items in first-seen order.
func (f *ImportFlow) Results() []domain.ProcessedItem { return f.results.Items() }

// Combiner exposes the flow's block-picker selection state.
func (f *ImportFlow) Combiner() *BlockCombiner { return f.combiner }

// Phase returns the current phase.
func (f *ImportFlow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Mapping returns the pending column-mapping session, if any.
func (f *ImportFlow) Mapping() *MappingSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mapping
}

func (f *ImportFlow) setPhase(p Phase) {
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
}

func (f *ImportFlow) requirePhase(want Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != want {
		return fmt.Errorf("%w: in %q, want %q", domain.ErrBadPhase, f.phase, want)
	}
	return nil
}

// HandleImport converts the queue into a detection payload, runs detection for
// the url and image partitions, and records one outcome per queue item. On
// success the flow lands in results. On any failure the flow reverts to input
// and no outcome from the failed attempt is kept.
func (f *ImportFlow) HandleImport(ctx context.Context) error {
	if err := f.requirePhase(PhaseInput); err != nil {
		return err
	}
	f.setPhase(PhaseProcessing)

	payload, err := f.queue.ToDetectPayload(ctx)
	if err != nil {
		f.setPhase(PhaseInput)
		return fmt.Errorf("failed to prepare detection payload: %w", err)
	}
	f.archiveMedia(ctx, payload)

	gens := make(map[string]uint64, len(payload.URLQueueIDs)+len(payload.Base64QueueIDs))
	for _, id := range payload.URLQueueIDs {
		gens[id] = f.results.MarkPending(id)
	}
	for _, id := range payload.Base64QueueIDs {
		gens[id] = f.results.MarkPending(id)
	}

	abort := func(cause error) error {
		for id, gen := range gens {
			f.results.RemoveIf(id, gen)
		}
		f.setPhase(PhaseInput)
		return fmt.Errorf("detection failed: %w", cause)
	}

	if len(payload.URLs) > 0 {
		items, err := f.cfg.Detector.Detect(ctx, f.cfg.ProfileID, domain.DetectURLs, payload.URLs)
		if err != nil {
			return abort(err)
		}
		f.applyDetected(payload.URLQueueIDs, gens, items)
	}
	if len(payload.Base64Items) > 0 {
		sources := make([]string, len(payload.Base64Items))
		for i, b := range payload.Base64Items {
			sources[i] = b.Base64
		}
		items, err := f.cfg.Detector.Detect(ctx, f.cfg.ProfileID, domain.DetectImages, sources)
		if err != nil {
			return abort(err)
		}
		f.applyDetected(payload.Base64QueueIDs, gens, items)
	}

	f.setPhase(PhaseResults)
	return nil
}

// applyDetected pairs response items with queue ids positionally, but applies
// each outcome keyed by id and generation.
func (f *ImportFlow) applyDetected(queueIDs []string, gens map[string]uint64, items []domain.DetectedItem) {
	for i, id := range queueIDs {
		var out domain.ProcessedItem
		if i < len(items) {
			out = processedFromDetected(id, items[i])
		} else {
			out = domain.ProcessedItem{
				QueueID:      id,
				Status:       domain.ProcessedError,
				ErrorMessage: "no result returned for this source",
			}
		}
		f.results.Apply(id, gens[id], out)
	}
}

// HandleFilesDetected adds the files to the queue, archives each one, runs
// column detection against the first file only (multi-file batches use the
// first file's column schema), and enters column-mapping. Detection failure
// degrades to an empty mapping session; this method never fails outward.
func (f *ImportFlow) HandleFilesDetected(ctx context.Context, files []domain.FileSource) error {
	if err := f.requirePhase(PhaseInput); err != nil {
		return err
	}
	f.queue.AddFiles(files)

	session := &MappingSession{}
	for i, file := range files {
		data, err := file.Bytes(ctx)
		if err != nil {
			log.Printf("Warning: failed to read %s: %v", file.Name(), err)
			continue
		}
		f.archiveSource(ctx, file.Name(), file.ContentType(), data)
		if i > 0 || f.cfg.FileDetector == nil {
			continue
		}
		det, derr := f.cfg.FileDetector.DetectColumns(ctx, f.cfg.ProfileID, file.Name(), data)
		if derr != nil {
			log.Printf("Warning: column detection failed for %s: %v", file.Name(), derr)
		} else if det != nil {
			session = &MappingSession{
				JobID:      det.JobID,
				Columns:    det.Columns,
				SampleRows: det.SampleRows,
			}
		}
	}

	f.mu.Lock()
	f.mapping = session
	f.phase = PhaseColumnMapping
	f.mu.Unlock()
	return nil
}

// archiveMedia uploads every image/pdf source in the payload. The bytes are
// recovered from the base64 that ToDetectPayload already computed, so each file is
// read exactly once. Best effort.
func (f *ImportFlow) archiveMedia(ctx context.Context, payload *domain.DetectPayload) {
	if f.cfg.Files == nil {
		return
	}
	for i, id := range payload.Base64QueueIDs {
		item := f.queue.Get(id)
		if item == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(payload.Base64Items[i].Base64)
		if err != nil {
			log.Printf("Warning: cannot decode %s for archiving: %v", item.Label, err)
			continue
		}
		f.archiveSource(ctx, item.Label, item.MIMEType, data)
	}
}

// archiveSource uploads the original file for later reference. Best effort.
func (f *ImportFlow) archiveSource(ctx context.Context, name, contentType string, data []byte) {
	if f.cfg.Files == nil {
		return
	}
	key := fmt.Sprintf("%s/%d-%s", f.cfg.UserID, time.Now().UnixNano(), name)
	if _, err := f.cfg.Files.Upload(ctx, data, key, contentType); err != nil {
		log.Printf("Warning: failed to archive source %s: %v", name, err)
	}
}

// HandleColumnMappingComplete applies the user-edited column mappings and
// replaces the entire processed-item set with the outcome. Failure degrades to
// an empty result set; either way the flow enters results and the mapping
// session is discarded.
func (f *ImportFlow) HandleColumnMappingComplete(ctx context.Context, columns []domain.ColumnMapping) error {
	f.mu.Lock()
	if f.phase != PhaseColumnMapping {
		f.mu.Unlock()
		return fmt.Errorf("%w: in %q, want %q", domain.ErrBadPhase, f.phase, PhaseColumnMapping)
	}
	session := f.mapping
	f.mapping = nil
	f.mu.Unlock()

	var items []domain.ProcessedItem
	if session != nil && session.JobID != "" && f.cfg.Mapper != nil {
		workouts, err := f.cfg.Mapper.ApplyMappings(ctx, session.JobID, f.cfg.ProfileID, columns)
		if err != nil {
			log.Printf("Warning: apply mappings failed for job %s: %v", session.JobID, err)
		} else {
			for _, mw := range workouts {
				workout := domain.EnsureIDs(domain.Normalize(mw.Workout))
				items = append(items, domain.ProcessedItem{
					QueueID:       mw.DetectedItemID,
					Status:        domain.ProcessedDone,
					WorkoutTitle:  workout.Title,
					BlockCount:    len(workout.Blocks),
					ExerciseCount: domain.CountExercises(workout),
					Workout:       workout,
				})
			}
		}
	}

	f.results.Replace(items)
	f.setPhase(PhaseResults)
	return nil
}

// HandleSaveAll persists every done item that carries a workout. All saves are
// attempted sequentially; failures are collected, not fast-failed, so the
// aggregate error reports complete counts. The completion callback fires only
// when every save succeeded. Already-saved items are not rolled back.
func (f *ImportFlow) HandleSaveAll(ctx context.Context) error {
	if err := f.requirePhase(PhaseResults); err != nil {
		return err
	}

	attempted, failed := 0, 0
	for _, item := range f.results.Items() {
		if item.Status != domain.ProcessedDone || item.Workout == nil {
			continue
		}
		attempted++
		record := &domain.WorkoutRecord{
			UserID:    f.cfg.UserID,
			DeviceTag: f.cfg.DeviceTag,
			Workout:   item.Workout,
			SavedAt:   time.Now(),
		}
		if err := f.cfg.History.Create(ctx, record); err != nil {
			log.Printf("Warning: failed to save %q: %v", item.WorkoutTitle, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to save %d of %d workouts", failed, attempted)
	}
	if f.cfg.OnComplete != nil {
		f.cfg.OnComplete()
	}
	return nil
}

// HandleRetry re-issues detection for exactly one queue item. The entry is
// marked pending before the remote call and replaced, never duplicated, by the
// new outcome. A file-origin item must already hold its base64 payload:
// converting binary content is ToDetectPayload's job, and retry fails fast
// rather than read files from here.
func (f *ImportFlow) HandleRetry(ctx context.Context, queueID string) error {
	item := f.queue.Get(queueID)
	if item == nil {
		return fmt.Errorf("unknown queue item %q", queueID)
	}

	var kind domain.DetectSourceKind
	var source string
	switch item.Kind {
	case domain.SourceURL:
		kind, source = domain.DetectURLs, item.URL
	default:
		if item.Base64 == "" {
			return fmt.Errorf("cannot retry %q: file content was never converted to base64; run the import again instead", item.Label)
		}
		kind, source = domain.DetectImages, item.Base64
	}

	gen := f.results.MarkPending(queueID)
	items, err := f.cfg.Detector.Detect(ctx, f.cfg.ProfileID, kind, []string{source})
	if err != nil {
		f.results.Apply(queueID, gen, domain.ProcessedItem{
			QueueID:      queueID,
			Status:       domain.ProcessedError,
			ErrorMessage: err.Error(),
		})
		return nil
	}
	if len(items) == 0 {
		f.results.Apply(queueID, gen, domain.ProcessedItem{
			QueueID:      queueID,
			Status:       domain.ProcessedError,
			ErrorMessage: "no result returned for this source",
		})
		return nil
	}
	f.results.Apply(queueID, gen, processedFromDetected(queueID, items[0]))
	return nil
}

// HandleRemoveResult deletes one processed item. The queue is untouched.
func (f *ImportFlow) HandleRemoveResult(queueID string) {
	f.results.Remove(queueID)
}

// GoToBlockPicker transitions results → block-picker. Pure phase toggle.
func (f *ImportFlow) GoToBlockPicker() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseResults {
		return fmt.Errorf("%w: in %q, want %q", domain.ErrBadPhase, f.phase, PhaseResults)
	}
	f.phase = PhaseBlockPicker
	return nil
}

// CancelBlockPicker transitions block-picker → results. Pure phase toggle.
func (f *ImportFlow) CancelBlockPicker() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseBlockPicker {
		return fmt.Errorf("%w: in %q, want %q", domain.ErrBadPhase, f.phase, PhaseBlockPicker)
	}
	f.phase = PhaseResults
	return nil
}

// CombineBlocks builds one synthetic workout from the combiner's current
// selection over the processed items. Valid only while the block picker is
// open; the caller closes the picker afterwards.
func (f *ImportFlow) CombineBlocks(title string) (*domain.WorkoutDocument, error) {
	if err := f.requirePhase(PhaseBlockPicker); err != nil {
		return nil, err
	}
	return f.combiner.Combine(f.results.Items(), title)
}

// AddCombinedResult installs a combined workout as a new processed item under
// a synthetic key, so the user can keep editing or save it alongside the rest.
func (f *ImportFlow) AddCombinedResult(doc *domain.WorkoutDocument) string {
	id := "combined-" + domain.NewULID()
	gen := f.results.MarkPending(id)
	f.results.Apply(id, gen, domain.ProcessedItem{
		QueueID:       id,
		Status:        domain.ProcessedDone,
		WorkoutTitle:  doc.Title,
		BlockCount:    len(doc.Blocks),
		ExerciseCount: domain.CountExercises(doc),
		Workout:       doc,
	})
	return id
}

// processedFromDetected converts one boundary-validated detection result into
// the store's typed shape.
func processedFromDetected(queueID string, d domain.DetectedItem) domain.ProcessedItem {
	if d.Failed() {
		return domain.ProcessedItem{
			QueueID:      queueID,
			Status:       domain.ProcessedFailed,
			ErrorMessage: strings.Join(d.Errors, "; "),
		}
	}
	if d.Workout == nil {
		return domain.ProcessedItem{
			QueueID:      queueID,
			Status:       domain.ProcessedError,
			ErrorMessage: "detector returned no workout payload",
		}
	}

	workout := domain.EnsureIDs(domain.Normalize(d.Workout))
	title := d.ParsedTitle
	if title == "" {
		title = workout.Title
	}
	blockCount := d.ParsedBlockCount
	if blockCount == 0 {
		blockCount = len(workout.Blocks)
	}
	exerciseCount := d.ParsedExerciseCount
	if exerciseCount == 0 {
		exerciseCount = domain.CountExercises(workout)
	}
	return domain.ProcessedItem{
		QueueID:       queueID,
		Status:        domain.ProcessedDone,
		WorkoutTitle:  title,
		BlockCount:    blockCount,
		ExerciseCount: exerciseCount,
		Workout:       workout,
		SourceIcon:    d.SourceIcon,
	}
}
