package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/render"
)

func TestPreviewHandler_HTMLHasEditAffordances(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	sid := addSection(t, r, id, "Scope", model.VariantParameterTable)

	w := do(t, r, http.MethodGet, "/api/v1/forms/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), "/api/v1/forms/"+id+"/sections/"+sid)
	assert.Contains(t, w.Body.String(), "Audit")
}

func TestPreviewHandler_EmptyDocumentHasThreePages(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := createForm(t, r)

	w := do(t, r, http.MethodGet, "/api/v1/forms/"+id+"/preview/pages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp PagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.FormID)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Pages, 3)
	assert.Equal(t, render.PageCover, resp.Pages[0].Kind)
}

func TestPreviewHandler_PagesETag(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	url := "/api/v1/forms/" + id + "/preview/pages"

	w := do(t, r, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := CreateTestRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())

	// the layout changes with the document
	addSection(t, r, id, "Scope", model.VariantNarrative)
	req = CreateTestRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
}
