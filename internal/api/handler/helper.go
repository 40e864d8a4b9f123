package handler

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// respondError writes err in the standard {code, message, details} shape.
// Errors that are not AppErrors become E1000 with a generic message.
func respondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		logger.Error("Unhandled handler error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Internal server error",
		})
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr),
		)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

// badRequest writes a validation error for a malformed request.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    errors.ErrCodeValidation,
		"message": message,
	})
}

// validateFilename validates a filename to prevent path traversal attacks
// Returns true if the filename is safe, false otherwise
func validateFilename(name string) bool {
	if name == "" {
		return false
	}

	// Check for path traversal patterns
	if strings.Contains(name, "..") {
		return false
	}

	// Check for directory separators (both Unix and Windows)
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return false
	}

	// Check for null bytes (can be used to bypass checks)
	if strings.Contains(name, "\x00") {
		return false
	}

	cleaned := filepath.Clean(name)
	if cleaned != name || cleaned == "." || cleaned == ".." {
		return false
	}

	return true
}

// safeJoinPath safely joins a base directory with a filename and validates
// that the result is within the base directory
func safeJoinPath(baseDir, name string) (string, bool) {
	if !validateFilename(name) {
		return "", false
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", false
	}

	cleanPath := filepath.Clean(filepath.Join(absBase, name))
	if !strings.HasPrefix(cleanPath, absBase+string(filepath.Separator)) && cleanPath != absBase {
		return "", false
	}

	return cleanPath, true
}

// computeContentHash calculates SHA256 hash of content
func computeContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return fmt.Sprintf("%x", h)
}

// truncateContent truncates content for logging purposes
// Uses rune-based truncation to avoid breaking multi-byte UTF-8 characters
func truncateContent(content string, maxLen int) string {
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}
