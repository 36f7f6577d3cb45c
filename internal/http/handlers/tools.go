package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/models"
)

const maxToolBody = 1 << 20

// @Summary Call a tool directly
// @Description Staff entry point; runs the named tool without the approval gate
// @Tags tools
// @Accept json
// @Produce json
// @Param name path string true "Tool name"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/tools/{name} [post]
func (h *Handler) ToolCall(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxToolBody))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if len(raw) > 0 && !json.Valid(raw) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", "body is not valid JSON")
		return
	}
	out, err := h.Tools.Execute(c.Request.Context(), c.Param("name"), raw)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ResolveContext(c *gin.Context) {
	phone := c.Query("phone_number")
	if phone == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "phone_number is required", nil)
		return
	}
	args, _ := json.Marshal(map[string]string{"phone_number": phone})
	out, err := h.Tools.Execute(c.Request.Context(), "resolve_context", args)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary List tickets
// @Tags tools
// @Produce json
// @Param category query string false "Category"
// @Param status query string false "Status"
// @Param zone query string false "Zone"
// @Success 200 {object} map[string]any
// @Router /api/tools/feedback/list [get]
func (h *Handler) FeedbackList(c *gin.Context) {
	limit, offset := page(c, 50)
	items, err := h.Store.ListFeedback(c.Request.Context(), models.FeedbackFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Zone:     c.Query("zone"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list feedback", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) FeedbackGet(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	fb, err := h.Store.GetFeedback(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "feedback_not_found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get feedback", err.Error())
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *Handler) AssignmentsList(c *gin.Context) {
	var feedbackID int64
	if raw := c.Query("feedback_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid feedback_id", raw)
			return
		}
		feedbackID = id
	}
	limit, offset := page(c, 50)
	items, err := h.Store.ListAssignments(c.Request.Context(), feedbackID, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list assignments", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}
