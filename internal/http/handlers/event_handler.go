// README: Webhook event handlers for inbound text and location messages.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/notify"
)

// ConversationService is the piece of the conversation module the webhook
// needs.
type ConversationService interface {
	HandleText(ctx context.Context, ev notify.TextEvent) error
	HandleLocation(ctx context.Context, ev notify.LocationEvent) error
}

type EventHandler struct {
	conversation ConversationService
}

func NewEventHandler(svc ConversationService) *EventHandler {
	return &EventHandler{conversation: svc}
}

func (h *EventHandler) Text(c *gin.Context) {
	var ev notify.TextEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if ev.RequesterID == "" || ev.Text == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	if err := h.conversation.HandleText(c.Request.Context(), ev); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusAccepted, map[string]any{"status": "ok"})
}

func (h *EventHandler) Location(c *gin.Context) {
	var ev notify.LocationEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if ev.RequesterID == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	if err := h.conversation.HandleLocation(c.Request.Context(), ev); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusAccepted, map[string]any{"status": "ok"})
}
