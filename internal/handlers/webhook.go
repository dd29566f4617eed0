package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/gateway"
)

// InboundProcessor handles a parsed webhook event.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, event gateway.InboundEvent) error
}

// WebhookHandler receives gateway callbacks. It always acknowledges with 200
// so the gateway does not retransmit; processing failures are logged.
type WebhookHandler struct {
	processor InboundProcessor
	logger    *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, processor InboundProcessor) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook/whatsapp", h.Inbound)
	e.POST("/webhook/message-status", h.MessageStatus)
}

// Inbound parses the gateway's form payload and hands it to the pipeline.
func (h *WebhookHandler) Inbound(c echo.Context) error {
	event := gateway.InboundEvent{
		From:        c.FormValue("From"),
		Body:        c.FormValue("Body"),
		MessageID:   c.FormValue("MessageSid"),
		ProfileName: c.FormValue("ProfileName"),
	}
	if event.From == "" || event.Body == "" {
		h.logger.Warn("webhook missing From or Body")
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	if err := h.processor.HandleInbound(c.Request().Context(), event); err != nil {
		h.logger.Error("inbound processing failed",
			slog.String("from", event.From), slog.Any("error", err))
		return c.JSON(http.StatusOK, map[string]string{"status": "error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// MessageStatus acknowledges delivery-status callbacks without acting on them.
func (h *WebhookHandler) MessageStatus(c echo.Context) error {
	h.logger.Debug("message status callback",
		slog.String("message_sid", c.FormValue("MessageSid")),
		slog.String("status", c.FormValue("MessageStatus")))
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
