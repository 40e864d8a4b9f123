package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/store"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/idgen"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// FormLogHandler handles form log related HTTP requests
type FormLogHandler struct {
	store store.FormLogStore
}

// NewFormLogHandler creates a new form log handler
func NewFormLogHandler(s store.FormLogStore) *FormLogHandler {
	return &FormLogHandler{store: s}
}

// formLogPagination configuration
const (
	defaultLogPage     = 1
	defaultLogPageSize = 50
	minLogPageSize     = 1
	maxLogPageSize     = 500
)

// GetFormLogs handles GET /api/v1/forms/:form/logs
// Supports page, page_size and level (minimum level) query parameters.
func (h *FormLogHandler) GetFormLogs(c *gin.Context) {
	formID := c.Param("form")
	if !idgen.IsValidID(formID) {
		badRequest(c, "Invalid form ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultLogPage)))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultLogPageSize)))
	level := c.Query("level")

	if page < 1 {
		page = defaultLogPage
	}
	if pageSize < minLogPageSize || pageSize > maxLogPageSize {
		pageSize = defaultLogPageSize
	}

	switch level {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		badRequest(c, "Invalid log level, must be one of: debug, info, warn, error, fatal")
		return
	}

	var (
		logs  []model.FormLog
		total int64
		err   error
	)
	ctx := c.Request.Context()
	if level != "" {
		logs, total, err = h.store.GetByFormIDAndLevel(ctx, formID, level, page, pageSize)
	} else {
		logs, total, err = h.store.GetByFormID(ctx, formID, page, pageSize)
	}
	if err != nil {
		logger.Error("Failed to fetch form logs",
			zap.String(logger.FieldFormID, formID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeDBQuery,
			"message": "Failed to fetch logs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"form_id":   formID,
	})
}
