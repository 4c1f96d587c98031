package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/setforge/setforge/internal/domain"
	"github.com/setforge/setforge/internal/middleware"
	"github.com/setforge/setforge/internal/service"
)

// WorkoutHandler serves the saved-workout history and the structure editor.
type WorkoutHandler struct {
	history   domain.HistoryRepository
	deviceTag string
}

// NewWorkoutHandler creates a new workout handler
func NewWorkoutHandler(history domain.HistoryRepository, deviceTag string) *WorkoutHandler {
	return &WorkoutHandler{history: history, deviceTag: deviceTag}
}

// List handles GET /v1/workouts
func (h *WorkoutHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	limit := c.QueryInt("limit", 50)
	records, err := h.history.ListByUserID(c.Context(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"workouts": records})
}

// Get handles GET /v1/workouts/:id
func (h *WorkoutHandler) Get(c *fiber.Ctx) error {
	record, err := h.ownedRecord(c)
	if record == nil {
		return err
	}
	return c.JSON(record)
}

// Save handles POST /v1/workouts. The document is normalized and fully
// id'd before it is persisted, same as the import pipeline does.
func (h *WorkoutHandler) Save(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	var doc domain.WorkoutDocument
	if err := c.BodyParser(&doc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	now := time.Now()
	record := &domain.WorkoutRecord{
		UserID:    userID,
		DeviceTag: h.deviceTag,
		Workout:   domain.EnsureIDs(domain.Normalize(&doc)),
		SavedAt:   now,
		UpdatedAt: now,
	}
	if err := h.history.Create(c.Context(), record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// Update handles PUT /v1/workouts/:id. It replaces the stored document.
func (h *WorkoutHandler) Update(c *fiber.Ctx) error {
	record, err := h.ownedRecord(c)
	if record == nil {
		return err
	}
	var doc domain.WorkoutDocument
	if err := c.BodyParser(&doc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	return h.persist(c, record, domain.EnsureIDs(domain.Normalize(&doc)))
}

// Delete handles DELETE /v1/workouts/:id
func (h *WorkoutHandler) Delete(c *fiber.Ctx) error {
	record, err := h.ownedRecord(c)
	if record == nil {
		return err
	}
	if err := h.history.Delete(c.Context(), record.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "deleted"})
}

// Reorder handles POST /v1/workouts/:id/reorder, drag-and-drop moves of
// blocks, exercises, and superset members.
func (h *WorkoutHandler) Reorder(c *fiber.Ctx) error {
	record, err := h.ownedRecord(c)
	if record == nil {
		return err
	}
	var req struct {
		Drag     service.DragPayload `json:"drag"`
		TargetID string              `json:"target_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	next := service.Reorder(record.Workout, req.Drag, req.TargetID)
	if next == record.Workout {
		// No-op move, nothing to persist.
		return c.JSON(record)
	}
	return h.persist(c, record, next)
}

// editRequest is the payload for all structure edit operations.
type editRequest struct {
	Op         string           `json:"op"`
	BlockID    string           `json:"block_id"`
	SupersetID string           `json:"superset_id"`
	ExerciseID string           `json:"exercise_id"`
	Label      string           `json:"label"`
	Exercise   *domain.Exercise `json:"exercise"`
	Block      *domain.Block    `json:"block"`
}

// Edit handles POST /v1/workouts/:id/edit
func (h *WorkoutHandler) Edit(c *fiber.Ctx) error {
	record, err := h.ownedRecord(c)
	if record == nil {
		return err
	}
	var req editRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	next, opErr := applyEdit(record.Workout, req)
	if opErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": opErr.Error()})
	}
	if next == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "target not found in workout"})
	}
	return h.persist(c, record, domain.EnsureIDs(next))
}

func applyEdit(doc *domain.WorkoutDocument, req editRequest) (*domain.WorkoutDocument, error) {
	switch req.Op {
	case "add_block":
		return service.AddBlock(doc, req.Label), nil
	case "delete_block":
		return service.DeleteBlock(doc, req.BlockID), nil
	case "update_block":
		if req.Block == nil {
			return nil, errors.New("update_block requires a block payload")
		}
		return service.UpdateBlock(doc, req.BlockID, func(b *domain.Block) {
			patchBlock(b, req.Block)
		}), nil
	case "add_exercise":
		if req.Exercise == nil {
			return nil, errors.New("add_exercise requires an exercise payload")
		}
		return service.AddExercise(doc, req.BlockID, req.Exercise), nil
	case "set_lead_exercise":
		if req.Exercise == nil {
			return nil, errors.New("set_lead_exercise requires an exercise payload")
		}
		return service.SetLeadExercise(doc, req.BlockID, req.Exercise), nil
	case "delete_exercise":
		return service.DeleteExercise(doc, req.BlockID, req.ExerciseID), nil
	case "update_exercise":
		if req.Exercise == nil {
			return nil, errors.New("update_exercise requires an exercise payload")
		}
		return service.UpdateExercise(doc, req.BlockID, req.ExerciseID, func(ex *domain.Exercise) {
			patchExercise(ex, req.Exercise)
		}), nil
	case "add_superset":
		return service.AddSuperset(doc, req.BlockID), nil
	case "delete_superset":
		return service.DeleteSuperset(doc, req.BlockID, req.SupersetID), nil
	case "add_superset_exercise":
		if req.Exercise == nil {
			return nil, errors.New("add_superset_exercise requires an exercise payload")
		}
		return service.AddSupersetExercise(doc, req.BlockID, req.SupersetID, req.Exercise), nil
	default:
		return nil, errors.New("unknown edit op: " + req.Op)
	}
}

// patchBlock copies the editable block fields, leaving id and content alone.
func patchBlock(dst, src *domain.Block) {
	if src.Label != "" {
		dst.Label = src.Label
	}
	if src.Structure != "" {
		dst.Structure = src.Structure
	}
	dst.Rounds = src.Rounds
	dst.RestBetweenSec = src.RestBetweenSec
	dst.TimeCapSec = src.TimeCapSec
	dst.IntervalSec = src.IntervalSec
	dst.WarmupDurationSec = src.WarmupDurationSec
	dst.RestOverride = src.RestOverride
}

// patchExercise replaces every editable field. The mutually exclusive
// quantity fields are taken as a group so switching reps to duration clears
// the old value.
func patchExercise(dst, src *domain.Exercise) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	dst.Type = src.Type
	dst.Sets = src.Sets
	dst.Reps = src.Reps
	dst.RepsRange = src.RepsRange
	dst.DurationSec = src.DurationSec
	dst.DistanceM = src.DistanceM
	dst.DistanceRange = src.DistanceRange
	dst.RestSec = src.RestSec
	dst.Notes = src.Notes
}

// ownedRecord loads :id and verifies it belongs to the caller. On failure it
// writes the response and returns a nil record.
func (h *WorkoutHandler) ownedRecord(c *fiber.Ctx) (*domain.WorkoutRecord, error) {
	userID := middleware.GetUserID(c)
	record, err := h.history.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workout not found"})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if record.UserID != userID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "workout belongs to another user"})
	}
	return record, nil
}

func (h *WorkoutHandler) persist(c *fiber.Ctx, record *domain.WorkoutRecord, next *domain.WorkoutDocument) error {
	record.Workout = next
	record.UpdatedAt = time.Now()
	if err := h.history.Update(c.Context(), record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(record)
}
