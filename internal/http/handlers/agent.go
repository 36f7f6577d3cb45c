package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/tools"
)

// @Summary Tool catalog
// @Tags agent
// @Produce json
// @Success 200 {array} tools.Tool
// @Router /api/agent/tools [get]
func (h *Handler) AgentTools(c *gin.Context) {
	c.JSON(http.StatusOK, tools.List())
}

func (h *Handler) IntentMap(c *gin.Context) {
	c.JSON(http.StatusOK, tools.IntentToolMap)
}

type InvokeRequest struct {
	Tool   string          `json:"tool" validate:"required"`
	Args   json.RawMessage `json:"args"`
	DryRun bool            `json:"dry_run"`
}

// @Summary Invoke a tool through the approval gate
// @Tags agent
// @Accept json
// @Produce json
// @Param request body InvokeRequest true "Invocation"
// @Success 200 {object} tools.InvokeResult
// @Failure 400 {object} map[string]any
// @Router /api/agent/tools/invoke [post]
func (h *Handler) AgentInvoke(c *gin.Context) {
	var req InvokeRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Gate.Invoke(c.Request.Context(), req.Tool, req.Args, req.DryRun)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary List approvals
// @Tags admin
// @Produce json
// @Param status query string false "pending|approved|denied"
// @Success 200 {array} models.Approval
// @Router /api/admin/approvals [get]
func (h *Handler) ApprovalsList(c *gin.Context) {
	limit, offset := page(c, 50)
	items, err := h.Store.ListApprovals(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list approvals", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

type DecisionRequest struct {
	Approve bool   `json:"approve"`
	Actor   string `json:"actor"`
}

// @Summary Approve or deny a pending tool call
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Approval ID"
// @Param request body DecisionRequest true "Decision"
// @Success 200 {object} models.Approval
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/admin/approvals/{id}/decision [post]
func (h *Handler) ApprovalDecision(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.bind(c, &req) {
		return
	}
	rec, err := h.Gate.Decide(c.Request.Context(), id, req.Approve, req.Actor)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "approval_not_found", nil)
			return
		}
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
