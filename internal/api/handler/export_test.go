package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/notification"
)

// finalizedForm builds the Scope report and finalizes it.
func finalizedForm(t *testing.T, r *gin.Engine) string {
	t.Helper()
	id := editingForm(t, r)
	sid := addSection(t, r, id, "Scope", model.VariantParameterTable)
	w := do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/"+sid, scopeOps())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func TestExportHandler_RequiresFinalized(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)

	w := do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/export", nil)
	AssertErrorResponse(t, w, http.StatusUnprocessableEntity)
	AssertErrorCode(t, w, "E2006")
}

func TestExportHandler_StatusAfterExport(t *testing.T) {
	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := finalizedForm(t, r)

	w := do(t, r, http.MethodGet, "/api/v1/forms/"+id+"/export/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st export.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, export.JobIdle, st.State)

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id+"/export/status", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, export.JobCompleted, st.State)
	assert.Equal(t, 4, st.Page)
	assert.Equal(t, 4, st.Pages)
	assert.Equal(t, "Report_2026-03-14.pdf", st.Filename)

	// the finalized draft stays when clearing is off
	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id, nil)
	assert.Equal(t, model.StepFinalized, decodeForm(t, w).Step)
}

func TestExportHandler_ClearOnSuccessWritesCopy(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "exports")
	env := NewTestEnv(t, config.ExportConfig{ClearOnSuccess: true, OutputDir: outDir}, testNow)
	r := env.Router()
	id := finalizedForm(t, r)

	w := do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	written, err := os.ReadFile(filepath.Join(outDir, "Report_2026-03-14.pdf"))
	require.NoError(t, err)
	assert.Equal(t, w.Body.Bytes(), written)

	assert.Empty(t, env.Storage.Keys(id))
	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id, nil)
	resp := decodeForm(t, w)
	assert.Equal(t, model.StepCapturingHeader, resp.Step)
	assert.Empty(t, resp.Document.Sections)
}

type webhookSink struct {
	mu     sync.Mutex
	bodies []notification.WebhookPayload
}

func (s *webhookSink) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var p notification.WebhookPayload
	_ = json.Unmarshal(body, &p)
	s.mu.Lock()
	s.bodies = append(s.bodies, p)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *webhookSink) payloads() []notification.WebhookPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.WebhookPayload(nil), s.bodies...)
}

func TestExportHandler_FailureNotifies(t *testing.T) {
	sink := &webhookSink{}
	hook := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer hook.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	notification.Init(config.NotificationConfig{
		Channel: config.NotificationChannelWebhook,
		Events:  []config.NotificationEvent{config.NotificationEventExportFailed},
		Webhook: config.WebhookConfig{URL: hook.URL},
	})
	defer notification.ResetForTesting()

	env := NewTestEnv(t, config.ExportConfig{}, testNow)
	r := env.Router()
	id := editingForm(t, r)
	sid := addSection(t, r, id, "Photos", model.VariantNarrative)
	w := do(t, r, http.MethodPatch, "/api/v1/forms/"+id+"/sections/"+sid, map[string]interface{}{
		"ops": []map[string]interface{}{
			{"op": "reserve_slots", "count": 1},
			{"op": "set_image", "index": 0, "value": missing.URL + "/site.png"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/forms/"+id+"/export", nil)
	AssertErrorResponse(t, w, http.StatusBadGateway)
	AssertErrorCode(t, w, "E4003")

	payloads := sink.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "export_failed", payloads[0].EventType)
	assert.Equal(t, id, payloads[0].FormID)
	assert.Equal(t, "Audit", payloads[0].Title)
	assert.Equal(t, "E4003", payloads[0].ErrorCode)
	assert.Equal(t, "native", payloads[0].Extra["rasterizer"])

	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id+"/export/status", nil)
	var st export.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, export.JobFailed, st.State)
	assert.Equal(t, "E4003", st.ErrorCode)

	// a failed export leaves the draft in place
	w = do(t, r, http.MethodGet, "/api/v1/forms/"+id, nil)
	assert.Equal(t, model.StepFinalized, decodeForm(t, w).Step)
}
