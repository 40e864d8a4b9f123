package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// TestNew tests creating a new AppError
func TestNew(t *testing.T) {
	err := New(ErrCodeValidation, "validation failed")

	if err == nil {
		t.Fatal("New() returned nil")
	}
	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeValidation)
	}
	if err.Message != "validation failed" {
		t.Errorf("Message = %s, want 'validation failed'", err.Message)
	}
	if err.Err != nil {
		t.Error("Err should be nil for New()")
	}
}

// TestWrap tests wrapping an existing error
func TestWrap(t *testing.T) {
	originalErr := errors.New("disk full")
	err := Wrap(ErrCodeStorageWrite, "failed to write draft", originalErr)

	if err.Code != ErrCodeStorageWrite {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeStorageWrite)
	}
	if !errors.Is(err, originalErr) {
		t.Error("errors.Is should find the original error")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Error() = %s, should contain underlying message", err.Error())
	}
}

// TestAppError_Error tests the Error method formatting
func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeHeaderIncomplete, "header is incomplete")
	if got := err.Error(); got != "[E2001] header is incomplete" {
		t.Errorf("Error() = %q", got)
	}
}

// TestAppError_HTTPStatus tests the code to status mapping
func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeSectionNotFound, http.StatusNotFound},
		{ErrCodeDraftNotFound, http.StatusNotFound},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeIndexOutOfRange, http.StatusBadRequest},
		{ErrCodeVariantMismatch, http.StatusBadRequest},
		{ErrCodeHeaderIncomplete, http.StatusUnprocessableEntity},
		{ErrCodeNoSections, http.StatusUnprocessableEntity},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeExportRunning, http.StatusConflict},
		{ErrCodeFinalized, http.StatusConflict},
		{ErrCodeImageFetch, http.StatusBadGateway},
		{ErrCodeBrowserStartup, http.StatusServiceUnavailable},
		{ErrCodeRasterize, http.StatusInternalServerError},
		{ErrCodeDBQuery, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestWithDetails tests attaching details
func TestWithDetails(t *testing.T) {
	err := ErrValidation("bad header").WithDetails([]string{"title"})
	details, ok := err.Details.([]string)
	if !ok || len(details) != 1 || details[0] != "title" {
		t.Errorf("Details = %v", err.Details)
	}
}

// TestAsAppError tests conversion through wrap chains
func TestAsAppError(t *testing.T) {
	inner := ErrIndex("row", 4, 2)
	wrapped := fmt.Errorf("editing section: %w", inner)

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("AsAppError should unwrap fmt.Errorf chains")
	}
	if appErr.Code != ErrCodeIndexOutOfRange {
		t.Errorf("Code = %s", appErr.Code)
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError should be true")
	}
	if !HasCode(wrapped, ErrCodeIndexOutOfRange) {
		t.Error("HasCode should be true")
	}
	if HasCode(errors.New("plain"), ErrCodeIndexOutOfRange) {
		t.Error("HasCode should be false for plain errors")
	}
	if _, ok := AsAppError(errors.New("plain")); ok {
		t.Error("AsAppError should fail for plain errors")
	}
}

// TestConstructors tests the convenience constructors
func TestConstructors(t *testing.T) {
	if ErrNotFound("section").Message != "section not found" {
		t.Error("ErrNotFound message mismatch")
	}
	if ErrUnauthorized("no token").Code != ErrCodeUnauthorized {
		t.Error("ErrUnauthorized code mismatch")
	}
	if ErrForbidden("nope").Code != ErrCodeForbidden {
		t.Error("ErrForbidden code mismatch")
	}
	if ErrInternal("boom", errors.New("x")).Code != ErrCodeInternal {
		t.Error("ErrInternal code mismatch")
	}
	if !strings.Contains(ErrIndex("column", 3, 1).Message, "[0,1)") {
		t.Error("ErrIndex should describe the valid range")
	}
}
