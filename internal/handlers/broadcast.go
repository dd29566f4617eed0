package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/delivery"
)

// Broadcaster sends one message to many contacts.
type Broadcaster interface {
	Broadcast(ctx context.Context, contactIDs []string, text string) (delivery.BroadcastResult, error)
}

type BroadcastHandler struct {
	broadcaster Broadcaster
}

func NewBroadcastHandler(broadcaster Broadcaster) *BroadcastHandler {
	return &BroadcastHandler{broadcaster: broadcaster}
}

func (h *BroadcastHandler) Register(e *echo.Echo) {
	e.POST("/api/broadcast", h.Broadcast)
}

type broadcastRequest struct {
	ContactIDs []string `json:"contact_ids"`
	Message    string   `json:"message"`
}

func (h *BroadcastHandler) Broadcast(c echo.Context) error {
	var req broadcastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.ContactIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "contact_ids is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	result, err := h.broadcaster.Broadcast(c.Request().Context(), req.ContactIDs, req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}
