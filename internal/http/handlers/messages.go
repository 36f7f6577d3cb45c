package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simhastha_samwad/backend/internal/webhook"
)

// @Summary Inbound chat webhook
// @Description Accepts JSON or form payloads from the messaging gateway
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} models.Message
// @Failure 400 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /whatsapp/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	raw, err := webhook.DecodeBody(c.Request)
	if err != nil {
		h.Logger.Warn().Err(err).
			Str("ip", c.ClientIP()).
			Str("ua", c.Request.UserAgent()).
			Msg("webhook parse error")
		writeError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid payload", nil)
		return
	}

	in, err := webhook.Normalize(raw)
	if err != nil {
		var nerr *webhook.NormalizationError
		if errors.As(err, &nerr) {
			h.Logger.Warn().Strs("received_keys", nerr.ReceivedKeys).Msg("webhook missing fields")
			writeError(c, http.StatusUnprocessableEntity, "MISSING_FIELDS", "missing_fields", nerr)
			return
		}
		writeError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid payload", err.Error())
		return
	}
	h.Logger.Info().Str("phone", in.Sender).Str("ip", c.ClientIP()).Msg("received webhook")

	msg, err := h.Inbound.HandleInbound(c.Request.Context(), in)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store message", err.Error())
		return
	}
	c.JSON(http.StatusOK, msg)
}

// WebhookVerify answers the gateway's subscription handshake.
func (h *Handler) WebhookVerify(c *gin.Context) {
	challenge := c.Query("hub.challenge")
	if c.Query("hub.mode") == "subscribe" && challenge != "" {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusOK, "ok")
}

// @Summary List messages
// @Tags messages
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]any
// @Router /api/messages [get]
func (h *Handler) MessagesList(c *gin.Context) {
	limit, offset := page(c, 50)
	items, err := h.Store.ListMessages(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list messages", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": items, "limit": limit, "offset": offset})
}

func (h *Handler) MessagesByPhone(c *gin.Context) {
	limit, _ := page(c, 200)
	items, err := h.Store.ListMessagesByPhone(c.Request.Context(), c.Param("phone"), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list messages", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": items})
}

type ReplyRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

// @Summary Send a staff reply
// @Tags messages
// @Accept json
// @Produce json
// @Param request body ReplyRequest true "Reply"
// @Success 200 {object} models.Message
// @Router /api/reply [post]
func (h *Handler) Reply(c *gin.Context) {
	var req ReplyRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.Messenger.SendText(c.Request.Context(), req.PhoneNumber, req.Body)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

type AIReplyRequest struct {
	Text string `json:"text" validate:"required"`
}

// @Summary Draft an assistant reply
// @Tags ai
// @Accept json
// @Produce json
// @Param request body AIReplyRequest true "Text"
// @Success 200 {object} map[string]any
// @Router /api/ai/reply [post]
func (h *Handler) AIReply(c *gin.Context) {
	var req AIReplyRequest
	if !h.bind(c, &req) {
		return
	}
	reply, err := h.Messenger.GenerateReply(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, http.StatusBadGateway, "AI_UNAVAILABLE", "Reply generation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
