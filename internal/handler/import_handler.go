package handler

import (
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/setforge/setforge/internal/domain"
	"github.com/setforge/setforge/internal/middleware"
	"github.com/setforge/setforge/internal/service"
)

// ImportHandler exposes the bulk import pipeline over HTTP. Every endpoint
// operates on the caller's own flow, keyed by the authenticated user id.
type ImportHandler struct {
	flows       *service.FlowManager
	scenarios   *service.ScenarioConfig
	maxUploadMB int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(flows *service.FlowManager, scenarios *service.ScenarioConfig, maxUploadMB int64) *ImportHandler {
	return &ImportHandler{
		flows:       flows,
		scenarios:   scenarios,
		maxUploadMB: maxUploadMB,
	}
}

func (h *ImportHandler) flow(c *fiber.Ctx) (*service.ImportFlow, error) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "user not authenticated",
		})
	}
	return h.flows.Get(userID), nil
}

// state is the response shape for every endpoint that changes flow state.
func state(c *fiber.Ctx, f *service.ImportFlow) error {
	return c.JSON(fiber.Map{
		"phase":      f.Phase(),
		"queue":      f.Queue().Items(),
		"results":    f.Results(),
		"mapping":    f.Mapping(),
		"selections": f.Combiner().Selections(),
	})
}

// GetState handles GET /v1/import
func (h *ImportHandler) GetState(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	return state(c, f)
}

// AddURLs handles POST /v1/import/urls
func (h *ImportHandler) AddURLs(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	var req struct {
		URLs string `json:"urls"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	f.Queue().AddURLs(req.URLs)
	return state(c, f)
}

// AddMedia handles POST /v1/import/media, image/pdf sources for the queue.
func (h *ImportHandler) AddMedia(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	files, ferr := h.formFiles(c)
	if ferr != nil {
		return ferr
	}
	f.Queue().AddFiles(files)
	return state(c, f)
}

// AddSpreadsheets handles POST /v1/import/spreadsheets, files that go
// through column mapping instead of direct detection.
func (h *ImportHandler) AddSpreadsheets(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	files, ferr := h.formFiles(c)
	if ferr != nil {
		return ferr
	}
	if err := f.HandleFilesDetected(c.Context(), files); err != nil {
		return badPhase(c, err)
	}
	return state(c, f)
}

func (h *ImportHandler) formFiles(c *fiber.Ctx) ([]domain.FileSource, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid multipart form: " + err.Error(),
		})
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing 'files' field in form data",
		})
	}

	maxBytes := h.maxUploadMB * 1024 * 1024
	sources := make([]domain.FileSource, 0, len(headers))
	for _, header := range headers {
		if header.Size > maxBytes {
			return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("file %s exceeds maximum of %dMB", header.Filename, h.maxUploadMB),
			})
		}
		sources = append(sources, newSource(header))
	}
	return sources, nil
}

func newSource(header *multipart.FileHeader) domain.FileSource {
	return &multipartSource{header: header}
}

// RemoveQueueItem handles DELETE /v1/import/queue/:id
func (h *ImportHandler) RemoveQueueItem(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	f.Queue().RemoveItem(c.Params("id"))
	return state(c, f)
}

// ClearQueue handles DELETE /v1/import/queue
func (h *ImportHandler) ClearQueue(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	f.Queue().Clear()
	return state(c, f)
}

// Detect handles POST /v1/import/detect
func (h *ImportHandler) Detect(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	if err := f.HandleImport(c.Context()); err != nil {
		return badPhase(c, err)
	}
	return state(c, f)
}

// CompleteMapping handles POST /v1/import/mappings
func (h *ImportHandler) CompleteMapping(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	var req struct {
		Columns []domain.ColumnMapping `json:"columns"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if err := f.HandleColumnMappingComplete(c.Context(), req.Columns); err != nil {
		return badPhase(c, err)
	}
	return state(c, f)
}

// Retry handles POST /v1/import/retry/:queueId
func (h *ImportHandler) Retry(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	if err := f.HandleRetry(c.Context(), c.Params("queueId")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return state(c, f)
}

// RemoveResult handles DELETE /v1/import/results/:queueId
func (h *ImportHandler) RemoveResult(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	f.HandleRemoveResult(c.Params("queueId"))
	return state(c, f)
}

// OpenBlockPicker handles POST /v1/import/block-picker
func (h *ImportHandler) OpenBlockPicker(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	if err := f.GoToBlockPicker(); err != nil {
		return badPhase(c, err)
	}
	return state(c, f)
}

// CloseBlockPicker handles DELETE /v1/import/block-picker
func (h *ImportHandler) CloseBlockPicker(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	if err := f.CancelBlockPicker(); err != nil {
		return badPhase(c, err)
	}
	return state(c, f)
}

// ToggleBlock handles POST /v1/import/block-picker/toggle
func (h *ImportHandler) ToggleBlock(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	var sel service.BlockSelection
	if err := c.BodyParser(&sel); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	f.Combiner().Toggle(sel)
	return state(c, f)
}

// AddCustomBlock handles POST /v1/import/block-picker/custom
func (h *ImportHandler) AddCustomBlock(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	f.Combiner().AddCustomBlock()
	return state(c, f)
}

// MoveSelection handles POST /v1/import/block-picker/move
func (h *ImportHandler) MoveSelection(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	f.Combiner().Move(req.From, req.To)
	return state(c, f)
}

// Combine handles POST /v1/import/combine
func (h *ImportHandler) Combine(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	var req struct {
		Title string `json:"title"`
	}
	_ = c.BodyParser(&req)

	doc, cerr := f.CombineBlocks(req.Title)
	if cerr != nil {
		return badPhase(c, cerr)
	}
	f.AddCombinedResult(doc)
	f.Combiner().Clear()
	if err := f.CancelBlockPicker(); err != nil {
		return badPhase(c, err)
	}
	return state(c, f)
}

// SaveAll handles POST /v1/import/save
func (h *ImportHandler) SaveAll(c *fiber.Ctx) error {
	f, err := h.flow(c)
	if f == nil {
		return err
	}
	if err := f.HandleSaveAll(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "saved"})
}

// Reset handles POST /v1/import/reset
func (h *ImportHandler) Reset(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "user not authenticated",
		})
	}
	h.flows.Reset(userID)
	return c.JSON(fiber.Map{"message": "reset"})
}

// GetScenario handles GET /v1/import/scenario
func (h *ImportHandler) GetScenario(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"scenario": h.scenarios.Get()})
}

// SetScenario handles PUT /v1/import/scenario
func (h *ImportHandler) SetScenario(c *fiber.Ctx) error {
	var req struct {
		Scenario string `json:"scenario"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	h.scenarios.Set(req.Scenario)
	return c.JSON(fiber.Map{"scenario": h.scenarios.Get()})
}

func badPhase(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
}
