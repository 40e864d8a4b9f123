// Package handler provides test utilities for HTTP handler testing.
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/persist"
	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/internal/wizard"
)

// SetupTestRouter creates a Gin router for testing.
// It sets Gin to test mode and applies basic middleware.
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// CreateTestContext creates a test Gin context with a recorder.
// Returns the context and recorder for assertions.
func CreateTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

// CreateTestRequest creates an HTTP request for testing.
func CreateTestRequest(method, url string, body interface{}) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	return req
}

// AssertJSONResponse asserts that the response has the expected JSON structure.
func AssertJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	t.Helper()

	if recorder.Code != expectedStatus {
		t.Errorf("Status code mismatch: got %d, want %d", recorder.Code, expectedStatus)
	}

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "" && contentType != "application/json" && contentType != "application/json; charset=utf-8" {
		t.Errorf("Content-Type should be application/json, got %s", contentType)
	}

	if expectedBody != nil {
		var actual map[string]interface{}
		if err := json.Unmarshal(recorder.Body.Bytes(), &actual); err != nil {
			t.Fatalf("Response should be valid JSON: %v", err)
		}

		expectedJSON, err := json.Marshal(expectedBody)
		if err != nil {
			t.Fatalf("Failed to marshal expected body: %v", err)
		}

		var expected map[string]interface{}
		if err := json.Unmarshal(expectedJSON, &expected); err != nil {
			t.Fatalf("Failed to unmarshal expected JSON: %v", err)
		}

		// Compare JSON structures (allowing for additional fields in actual)
		for key, expectedValue := range expected {
			actualValue, exists := actual[key]
			if !exists {
				t.Errorf("Response should contain key: %s", key)
				continue
			}
			if actualValue != expectedValue {
				t.Errorf("Value mismatch for key %s: got %v, want %v", key, actualValue, expectedValue)
			}
		}
	}
}

// AssertErrorResponse asserts that the response is an error response.
// The API uses a standard error format with 'code' and 'message' fields.
func AssertErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if recorder.Code != expectedStatus {
		t.Errorf("Status code mismatch: got %d, want %d", recorder.Code, expectedStatus)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response should be valid JSON: %v", err)
	}

	_, hasCode := response["code"]
	_, hasMessage := response["message"]
	if !hasCode || !hasMessage {
		t.Error("Error response should contain 'code' and 'message' fields")
	}
}

// AssertErrorCode asserts the error response carries code.
func AssertErrorCode(t *testing.T, recorder *httptest.ResponseRecorder, code string) {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response should be valid JSON: %v", err)
	}
	if response["code"] != code {
		t.Errorf("Error code mismatch: got %v, want %s (message %v)", response["code"], code, response["message"])
	}
}

// TestEnv wires the form, preview and export handlers over in-memory
// storage and the native rasterizer.
type TestEnv struct {
	Storage  *persist.MemoryStorage
	Service  *wizard.Service
	Pipeline *export.Pipeline
	Forms    *FormHandler
	Preview  *PreviewHandler
	Export   *ExportHandler
}

// NewTestEnv creates a TestEnv. The pipeline clock is fixed at now.
func NewTestEnv(t *testing.T, cfg config.ExportConfig, now time.Time) *TestEnv {
	t.Helper()

	fonts, err := render.DefaultFonts()
	if err != nil {
		t.Fatalf("Failed to load fonts: %v", err)
	}
	layouter := render.NewLayouter(fonts)

	storage := persist.NewMemoryStorage()
	service := wizard.NewService(storage, wizard.ServiceConfig{})
	images := export.NewImageLoader(export.ImageLoaderOptions{})
	pipeline := export.NewPipeline(export.NewNativeRasterizer(images),
		export.WithScale(0.5),
		export.WithClock(func() time.Time { return now }),
	)

	forms := NewFormHandler(service, pipeline.Jobs())
	exp := NewExportHandler(forms, pipeline, layouter, cfg)
	exp.notify = func(fn func()) { fn() }

	return &TestEnv{
		Storage:  storage,
		Service:  service,
		Pipeline: pipeline,
		Forms:    forms,
		Preview:  NewPreviewHandler(forms, layouter, "/api/v1"),
		Export:   exp,
	}
}

// Router mounts the env's handlers the way the API router does, without
// auth.
func (e *TestEnv) Router() *gin.Engine {
	r := SetupTestRouter()
	forms := r.Group("/api/v1/forms")
	forms.POST("", e.Forms.CreateForm)
	forms.GET("/:form", e.Forms.GetForm)
	forms.DELETE("/:form", e.Forms.DeleteForm)
	forms.PUT("/:form/header", e.Forms.UpdateHeader)
	forms.POST("/:form/next", e.Forms.Next)
	forms.POST("/:form/back", e.Forms.Back)
	forms.POST("/:form/history/back", e.Forms.HistoryBack)
	forms.POST("/:form/history/forward", e.Forms.HistoryForward)
	forms.POST("/:form/sections", e.Forms.AddSection)
	forms.DELETE("/:form/sections/:id", e.Forms.DeleteSection)
	forms.PATCH("/:form/sections/:id", e.Forms.EditSection)
	forms.POST("/:form/sections/:id/move", e.Forms.MoveSection)
	forms.POST("/:form/sections/:id/images/:index", e.Forms.UploadImage)
	forms.POST("/:form/finalize", e.Forms.Finalize)
	forms.GET("/:form/preview", e.Preview.GetPreview)
	forms.GET("/:form/preview/pages", e.Preview.GetPages)
	forms.POST("/:form/export", e.Export.ExportForm)
	forms.GET("/:form/export/status", e.Export.GetExportStatus)
	return r
}
