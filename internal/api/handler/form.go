package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/editor"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/wizard"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// maxUploadBytes bounds a single attached image.
const maxUploadBytes = 10 << 20

// uploadTypes are the image formats both rasterizers can decode.
var uploadTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp"}

// FormHandler handles the report wizard endpoints. Every route addresses
// one form by the :form path parameter.
type FormHandler struct {
	service *wizard.Service
	jobs    *export.Jobs
}

// NewFormHandler creates a new form handler. jobs may be nil when exports
// are not served.
func NewFormHandler(s *wizard.Service, jobs *export.Jobs) *FormHandler {
	return &FormHandler{service: s, jobs: jobs}
}

// FormResponse is the state of a form plus its export status.
type FormResponse struct {
	wizard.State
	Export *export.JobStatus `json:"export,omitempty"`
}

// AddSectionRequest represents the request body for adding a section
type AddSectionRequest struct {
	Title   string        `json:"title"`
	Variant model.Variant `json:"variant" binding:"required"`
}

// MoveSectionRequest represents the request body for moving a section
type MoveSectionRequest struct {
	To *int `json:"to" binding:"required"`
}

// EditSectionRequest carries editor operations applied in order.
type EditSectionRequest struct {
	Ops []editor.Op `json:"ops" binding:"required,min=1,dive"`
}

// assembler resolves the :form parameter. A draft that failed to restore
// still yields a usable fresh form; only invalid ids are rejected.
func (h *FormHandler) assembler(c *gin.Context) (*wizard.Assembler, bool) {
	formID := c.Param("form")
	a, err := h.service.Get(c.Request.Context(), formID)
	if a == nil {
		respondError(c, err)
		return nil, false
	}
	if err != nil {
		logger.WithForm(formID).Warn("Continuing with a fresh document after restore failure", zap.Error(err))
	}
	return a, true
}

func (h *FormHandler) respondState(c *gin.Context, status int, a *wizard.Assembler) {
	resp := FormResponse{State: a.State()}
	if h.jobs != nil {
		st := h.jobs.Status(a.FormID())
		resp.Export = &st
	}
	c.JSON(status, resp)
}

// CreateForm handles POST /api/v1/forms
func (h *FormHandler) CreateForm(c *gin.Context) {
	a, err := h.service.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusCreated, a)
}

// GetForm handles GET /api/v1/forms/:form
func (h *FormHandler) GetForm(c *gin.Context) {
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	h.respondState(c, http.StatusOK, a)
}

// DeleteForm handles DELETE /api/v1/forms/:form
func (h *FormHandler) DeleteForm(c *gin.Context) {
	formID := c.Param("form")
	if h.jobs != nil && h.jobs.Running(formID) {
		respondError(c, errors.New(errors.ErrCodeExportRunning, "an export is running for this form"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), formID); err != nil {
		respondError(c, err)
		return
	}
	if h.jobs != nil {
		h.jobs.Forget(formID)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Form reset",
		"form_id": formID,
	})
}

// UpdateHeader handles PUT /api/v1/forms/:form/header
func (h *FormHandler) UpdateHeader(c *gin.Context) {
	var header model.Header
	if err := c.ShouldBindJSON(&header); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	if err := a.SetHeader(header); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, a)
}

// Next handles POST /api/v1/forms/:form/next
func (h *FormHandler) Next(c *gin.Context) {
	h.transition(c, (*wizard.Assembler).Next)
}

// Back handles POST /api/v1/forms/:form/back
func (h *FormHandler) Back(c *gin.Context) {
	h.transition(c, (*wizard.Assembler).Back)
}

// HistoryBack handles POST /api/v1/forms/:form/history/back
func (h *FormHandler) HistoryBack(c *gin.Context) {
	h.transition(c, (*wizard.Assembler).HistoryBack)
}

// HistoryForward handles POST /api/v1/forms/:form/history/forward
func (h *FormHandler) HistoryForward(c *gin.Context) {
	h.transition(c, (*wizard.Assembler).HistoryForward)
}

func (h *FormHandler) transition(c *gin.Context, step func(*wizard.Assembler) error) {
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	if err := step(a); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, a)
}

// AddSection handles POST /api/v1/forms/:form/sections
func (h *FormHandler) AddSection(c *gin.Context) {
	var req AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	v, err := model.ParseVariant(string(req.Variant))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	section, err := a.AddSection(req.Title, v)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"section": section,
		"state":   a.State(),
	})
}

// DeleteSection handles DELETE /api/v1/forms/:form/sections/:id
func (h *FormHandler) DeleteSection(c *gin.Context) {
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	if err := a.RemoveSection(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, a)
}

// MoveSection handles POST /api/v1/forms/:form/sections/:id/move
func (h *FormHandler) MoveSection(c *gin.Context) {
	var req MoveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	if err := a.MoveSection(c.Param("id"), *req.To); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, a)
}

// EditSection handles PATCH /api/v1/forms/:form/sections/:id
func (h *FormHandler) EditSection(c *gin.Context) {
	var req EditSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	if err := a.ApplyOps(c.Param("id"), req.Ops...); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, a)
}

// UploadImage handles POST /api/v1/forms/:form/sections/:id/images/:index
// The multipart "file" part is sniffed, inlined as a data URI and stored
// in the image slot.
func (h *FormHandler) UploadImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "Invalid image index")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Missing file part: "+err.Error())
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Image exceeds the upload limit",
		})
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, errors.ErrInternal("failed to open upload", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		respondError(c, errors.ErrInternal("failed to read upload", err))
		return
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), uploadTypes...) {
		badRequest(c, "Unsupported image type: "+mt.String())
		return
	}

	a, ok := h.assembler(c)
	if !ok {
		return
	}
	sectionID := c.Param("id")
	src := export.ToDataURI(data, mt.String())
	err = a.EditSection(sectionID, func(e *editor.Editor) error {
		return e.SetImageAt(index, src)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithForm(a.FormID()).Info("Image attached",
		zap.String("section_id", sectionID),
		zap.Int("slot", index),
		zap.String("file", truncateContent(file.Filename, 64)),
		zap.String("mime", mt.String()),
		zap.Int("bytes", len(data)),
	)
	h.respondState(c, http.StatusOK, a)
}

// Finalize handles POST /api/v1/forms/:form/finalize
func (h *FormHandler) Finalize(c *gin.Context) {
	a, ok := h.assembler(c)
	if !ok {
		return
	}
	doc, err := a.Finalize()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"form_id":  a.FormID(),
		"step":     model.StepFinalized,
		"document": doc,
	})
}
