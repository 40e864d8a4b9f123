package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/internal/wizard"
	"github.com/verustcode/reportdesk/pkg/errors"
)

// PreviewHandler serves the laid-out pages of a form. It reads the live
// document on every request and keeps nothing between requests.
type PreviewHandler struct {
	forms    *FormHandler
	layouter *render.Layouter
	// basePath prefixes the section edit URLs embedded in the markup
	basePath string
}

// NewPreviewHandler creates a new preview handler. basePath is the API
// prefix the form routes are mounted under, e.g. "/api/v1".
func NewPreviewHandler(forms *FormHandler, l *render.Layouter, basePath string) *PreviewHandler {
	return &PreviewHandler{forms: forms, layouter: l, basePath: basePath}
}

// PagesResponse is the layout JSON of a preview.
type PagesResponse struct {
	FormID string        `json:"form_id"`
	Pages  []render.Page `json:"pages"`
	Total  int           `json:"total"`
}

func (h *PreviewHandler) preview(a *wizard.Assembler) *render.Preview {
	return render.NewPreview(a, h.layouter)
}

func (h *PreviewHandler) editEndpoint(formID string) func(string) string {
	return func(sectionID string) string {
		return h.basePath + "/forms/" + formID + "/sections/" + sectionID
	}
}

// GetPreview handles GET /api/v1/forms/:form/preview
func (h *PreviewHandler) GetPreview(c *gin.Context) {
	a, ok := h.forms.assembler(c)
	if !ok {
		return
	}
	html, err := h.preview(a).HTML(render.HTMLOptions{
		Title:        consts.ProjectName + " preview",
		Interactive:  true,
		EditEndpoint: h.editEndpoint(a.FormID()),
	})
	if err != nil {
		respondError(c, errors.ErrInternal("failed to render preview", err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// GetPages handles GET /api/v1/forms/:form/preview/pages
// The response carries an ETag so pollers can skip unchanged layouts.
func (h *PreviewHandler) GetPages(c *gin.Context) {
	a, ok := h.forms.assembler(c)
	if !ok {
		return
	}
	pages := h.preview(a).Pages()
	body, err := json.Marshal(PagesResponse{
		FormID: a.FormID(),
		Pages:  pages,
		Total:  len(pages),
	})
	if err != nil {
		respondError(c, errors.ErrInternal("failed to encode pages", err))
		return
	}

	etag := `"` + computeContentHash(body) + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
