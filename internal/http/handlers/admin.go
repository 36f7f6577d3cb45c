package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/models"
)

type ZoneConfigRequest struct {
	Zone                 string `json:"zone" validate:"required"`
	SanitationETAMinutes *int   `json:"sanitation_eta_minutes" validate:"omitempty,gte=0,lte=1440"`
	MedicalETAMinutes    *int   `json:"medical_eta_minutes" validate:"omitempty,gte=0,lte=1440"`
}

func (h *Handler) ZoneConfigList(c *gin.Context) {
	items, err := h.Store.ListZoneConfigs(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list zone configs", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary Upsert per-zone response targets
// @Tags admin
// @Accept json
// @Produce json
// @Param request body ZoneConfigRequest true "Zone config"
// @Success 200 {object} models.ZoneConfig
// @Router /api/admin/zone_config [post]
func (h *Handler) ZoneConfigUpsert(c *gin.Context) {
	var req ZoneConfigRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.Store.UpsertZoneConfig(c.Request.Context(), models.ZoneConfig{
		Zone:                 req.Zone,
		SanitationETAMinutes: req.SanitationETAMinutes,
		MedicalETAMinutes:    req.MedicalETAMinutes,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save zone config", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Ticket metrics
// @Tags admin
// @Produce json
// @Param since_hours query int false "Window for the hourly series"
// @Success 200 {object} models.Metrics
// @Router /api/admin/metrics [get]
func (h *Handler) Metrics(c *gin.Context) {
	since, err := strconv.Atoi(c.DefaultQuery("since_hours", "24"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid since_hours", c.Query("since_hours"))
		return
	}
	out, err := h.Store.Metrics(c.Request.Context(), since)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to compute metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

type TemplateRequest struct {
	Key  string `json:"key" validate:"required,max=100"`
	Text string `json:"text" validate:"required"`
}

func (h *Handler) TemplatesList(c *gin.Context) {
	items, err := h.Store.ListTemplates(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list templates", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) TemplateCreate(c *gin.Context) {
	var req TemplateRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.Store.CreateTemplate(c.Request.Context(), req.Key, req.Text)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create template", err.Error())
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) TemplateUpdate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req TemplateRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.Store.UpdateTemplate(c.Request.Context(), id, req.Key, req.Text)
	if err != nil {
		h.templateError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) TemplateDelete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.templateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) templateError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "template_not_found", nil)
		return
	}
	writeError(c, http.StatusInternalServerError, "DB_ERROR", "Template update failed", err.Error())
}
