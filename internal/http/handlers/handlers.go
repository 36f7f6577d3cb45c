package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/models"
	"github.com/simhastha_samwad/backend/internal/service"
	"github.com/simhastha_samwad/backend/internal/tools"
)

// Store is the read and admin side of the record store used by the API.
type Store interface {
	Ping(ctx context.Context) error
	ListMessages(ctx context.Context, limit, offset int) ([]models.Message, error)
	ListMessagesByPhone(ctx context.Context, phone string, limit int) ([]models.Message, error)
	ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
	GetFeedback(ctx context.Context, id int64) (models.Feedback, error)
	ListAssignments(ctx context.Context, feedbackID int64, limit, offset int) ([]models.FeedbackAssignment, error)
	ListApprovals(ctx context.Context, status string, limit, offset int) ([]models.Approval, error)
	ListZoneConfigs(ctx context.Context) ([]models.ZoneConfig, error)
	UpsertZoneConfig(ctx context.Context, z models.ZoneConfig) (models.ZoneConfig, error)
	Metrics(ctx context.Context, sinceHours int) (models.Metrics, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	GetTemplate(ctx context.Context, id int64) (models.Template, error)
	CreateTemplate(ctx context.Context, key, text string) (models.Template, error)
	UpdateTemplate(ctx context.Context, id int64, key, text string) (models.Template, error)
	DeleteTemplate(ctx context.Context, id int64) error
}

type Inbound interface {
	HandleInbound(ctx context.Context, in models.InboundMessage) (models.Message, error)
}

type Messenger interface {
	SendText(ctx context.Context, phone, body string) (models.Message, error)
	GenerateReply(ctx context.Context, text string) (string, error)
}

type ToolRunner interface {
	Execute(ctx context.Context, name string, raw json.RawMessage) (any, error)
}

type ApprovalGate interface {
	Invoke(ctx context.Context, name string, args json.RawMessage, dryRun bool) (tools.InvokeResult, error)
	Decide(ctx context.Context, id int64, approve bool, actor string) (models.Approval, error)
}

type Handler struct {
	Store     Store
	Inbound   Inbound
	Messenger Messenger
	Tools     ToolRunner
	Gate      ApprovalGate
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// writeServiceError maps the sentinel errors of the service layer onto the
// API's error envelope.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		writeError(c, http.StatusBadRequest, "UNKNOWN_TOOL", "unknown_tool", err.Error())
	case errors.Is(err, service.ErrInvalidArgs):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid_args", err.Error())
	case errors.Is(err, service.ErrNoRecipients):
		writeError(c, http.StatusBadRequest, "NO_RECIPIENTS", "no_numbers_provided", nil)
	case errors.Is(err, service.ErrMediaFetch):
		writeError(c, http.StatusBadRequest, "MEDIA_FETCH_FAILED", "image_fetch_failed", err.Error())
	case errors.Is(err, tools.ErrFeedbackNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "feedback_not_found", nil)
	case errors.Is(err, db.ErrAlreadyDecided):
		writeError(c, http.StatusBadRequest, "ALREADY_DECIDED", "already_decided", nil)
	case errors.Is(err, db.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "not_found", nil)
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Request failed", err.Error())
	}
}

// page reads limit/offset query parameters. The store clamps them.
func page(c *gin.Context, defLimit int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defLimit)))
	if err != nil {
		limit = defLimit
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+name, c.Param(name))
		return 0, false
	}
	return id, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}
