package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/wizard"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

var auditHeader = model.Header{
	Title:           "Audit",
	Subtitle:        "Q1",
	PreparedForName: "Acme",
	PreparedByName:  "Co",
	IssueDate:       "2026-01-01",
}

func do(t *testing.T, r *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, CreateTestRequest(method, url, body))
	return w
}

func decodeForm(t *testing.T, w *httptest.ResponseRecorder) FormResponse {
	t.Helper()
	var resp FormResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// createForm creates a form and returns its id.
func createForm(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/forms", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeForm(t, w).FormID
}

// editingForm creates a form with a complete header in EditingSections.
func editingForm(t *testing.T, r *gin.Engine) string {
	t.Helper()
	id := createForm(t, r)
	w := do(t, r, http.MethodPut, "/api/v1/forms/"+id+"/header", auditHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

// addSection adds a section and returns its id.
func addSection(t *testing.T, r *gin.Engine, formID, title string, v model.Variant) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/forms/"+formID+"/sections", AddSectionRequest{Title: title, Variant: v})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Section struct {
			ID string `json:"id"`
		} `json:"section"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Section.ID)
	return resp.Section.ID
}

func scopeOps() map[string]interface{} {
	return map[string]interface{}{
		"ops": []map[string]interface{}{
			{"op": "add_row"},
			{"op": "update_cell", "row": 0, "column": 0, "value": "Region"},
			{"op": "update_cell", "row": 0, "column": 1, "value": "APAC"},
		},
	}
}

func TestFormHandler_CreateAndGet(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()

	id := createForm(t, r)

	w := do(t, r, http.MethodGet, "/api/v1/forms/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeForm(t, w)
	assert.Equal(t, id, resp.FormID)
	assert.Equal(t, model.StepCapturingHeader, resp.Step)
	assert.Len(t, resp.MissingHeader, 5)
	require.NotNil(t, resp.Export)
	assert.Equal(t, "idle", string(resp.Export.State))
}

func TestFormHandler_InvalidFormID(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()

	w := do(t, r, http.MethodGet, "/api/v1/forms/not-an-id", nil)
	AssertErrorResponse(t, w, http.StatusBadRequest)
	AssertErrorCode(t, w, "E1001")
}

func TestFormHandler_NextRequiresCompleteHeader(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := createForm(t, r)

	partial := auditHeader
	partial.Title = "   "
	w := do(t, r, http.MethodPut, "/api/v1/forms/"+id+"/header", partial)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/next", nil)
	AssertErrorResponse(t, w, http.StatusUnprocessableEntity)
	AssertErrorCode(t, w, "E2001")

	var body struct {
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{model.FieldTitle}, body.Details)

	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id, nil)
	assert.Equal(t, model.StepCapturingHeader, decodeForm(t, w).Step)
}

func TestFormHandler_ScenarioA(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)

	sid := addSection(t, r, id, "Scope", model.VariantParameterTable)
	w := do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/"+sid, scopeOps())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeForm(t, w)
	assert.Equal(t, []string{"Scope"}, resp.Document.TableOfContents)
	require.Len(t, resp.Document.Sections, 1)
	table, ok := resp.Document.Sections[0].Content.(*model.ParameterTable)
	require.True(t, ok)
	assert.Equal(t, "APAC", table.Rows[0][model.DetailsColumn])

	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id+"/preview/pages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pages PagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pages))
	assert.Equal(t, 4, pages.Total)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Report_2026-03-14.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, w.Body.String(), "/Count 4")
}

func TestFormHandler_EditErrors(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	sid := addSection(t, r, id, "Notes", model.VariantNarrative)

	// table op against a narrative
	w := do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/"+sid, map[string]interface{}{
		"ops": []map[string]interface{}{{"op": "add_row"}},
	})
	AssertErrorResponse(t, w, http.StatusBadRequest)
	AssertErrorCode(t, w, "E2004")

	w = do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/missing", scopeOps())
	AssertErrorResponse(t, w, http.StatusNotFound)

	w = do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/"+sid, map[string]interface{}{"ops": []interface{}{}})
	AssertErrorResponse(t, w, http.StatusBadRequest)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/sections", map[string]string{"title": "x", "variant": "chart"})
	AssertErrorResponse(t, w, http.StatusBadRequest)
}

func TestFormHandler_MoveAndDeleteSections(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	first := addSection(t, r, id, "First", model.VariantNarrative)
	addSection(t, r, id, "Second", model.VariantCustomTable)

	w := do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/sections/"+first+"/move", map[string]int{"to": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Second", "First"}, decodeForm(t, w).Document.TableOfContents)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/sections/"+first+"/move", map[string]int{"to": 5})
	AssertErrorCode(t, w, "E2005")

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/sections/"+first+"/move", map[string]string{})
	AssertErrorResponse(t, w, http.StatusBadRequest)

	w = do(t, r, http.MethodDelete, "/api/v1/forms/"+id+"/sections/"+first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Second"}, decodeForm(t, w).Document.TableOfContents)
}

func TestFormHandler_History(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)

	w := do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/history/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeForm(t, w)
	assert.Equal(t, model.StepCapturingHeader, resp.Step)
	assert.True(t, resp.CanGoForward)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/history/forward", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StepEditingSections, decodeForm(t, w).Step)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StepCapturingHeader, decodeForm(t, w).Step)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/back", nil)
	AssertErrorCode(t, w, "E2006")
}

func TestFormHandler_FinalizeNeedsSection(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)

	w := do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/finalize", nil)
	AssertErrorResponse(t, w, http.StatusUnprocessableEntity)
	AssertErrorCode(t, w, "E2002")
}

func TestFormHandler_RestoresFromStorage(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	addSection(t, r, id, "Scope", model.VariantParameterTable)

	// a second process over the same storage
	service := wizard.NewService(env.Storage, wizard.ServiceConfig{})
	forms := NewFormHandler(service, nil)
	r2 := SetupTestRouter()
	r2.GET("/api/v1/forms/:form", forms.GetForm)

	w := do(t, r2, http.MethodGet, "/api/v1/forms/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeForm(t, w)
	assert.Equal(t, model.StepEditingSections, resp.Step)
	assert.Equal(t, "Audit", resp.Document.Header.Title)
	assert.Equal(t, []string{"Scope"}, resp.Document.TableOfContents)
	assert.Nil(t, resp.Export)
}

func TestFormHandler_DeleteResets(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)

	w := do(t, r, http.MethodDelete, "/api/v1/forms/"+id, nil)
	AssertJSONResponse(t, w, http.StatusOK, map[string]string{"form_id": id})
	assert.Empty(t, env.Storage.Keys(id))

	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id, nil)
	resp := decodeForm(t, w)
	assert.Equal(t, model.StepCapturingHeader, resp.Step)
	assert.Empty(t, resp.Document.Header.Title)
}

func uploadRequest(t *testing.T, url string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.bin")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFormHandler_UploadImage(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	sid := addSection(t, r, id, "Photos", model.VariantNarrative)

	w := do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/"+sid, map[string]interface{}{
		"ops": []map[string]interface{}{{"op": "reserve_slots", "count": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	base := "/api/v1/forms/" + id + "/sections/" + sid + "/images/"

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, base+"1", smallPNG(t)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	images := decodeForm(t, w).Document.Sections[0].Images
	require.Len(t, images, 2)
	assert.Equal(t, model.EmptyImageSlot, images[0])
	assert.True(t, strings.HasPrefix(images[1], "data:image/png;base64,"))

	// not an image
	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, base+"0", []byte("plain text, not pixels")))
	AssertErrorResponse(t, w, http.StatusBadRequest)

	// slot out of range
	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, base+"7", smallPNG(t)))
	AssertErrorCode(t, w, "E2005")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, base+"x", smallPNG(t)))
	AssertErrorResponse(t, w, http.StatusBadRequest)
}
