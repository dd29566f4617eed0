package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/messages"
)

// ManualSender delivers an operator-written message immediately.
type ManualSender interface {
	Deliver(ctx context.Context, contact contacts.Contact, text string, delayMin, delayMax int) (messages.Message, error)
}

type MessagesHandler struct {
	service  *messages.Service
	contacts *contacts.Service
	sender   ManualSender
}

func NewMessagesHandler(service *messages.Service, contactService *contacts.Service, sender ManualSender) *MessagesHandler {
	return &MessagesHandler{
		service:  service,
		contacts: contactService,
		sender:   sender,
	}
}

func (h *MessagesHandler) Register(e *echo.Echo) {
	e.GET("/api/contacts/:id/messages", h.History)
	e.POST("/api/contacts/:id/messages", h.Send)
}

// History returns the contact's conversation log, oldest first.
func (h *MessagesHandler) History(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	items, err := h.service.History(c.Request().Context(), id, intQueryParam(c, "limit", 50))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

type sendRequest struct {
	Content string `json:"content"`
}

// Send delivers an operator-written message to the contact without delay.
func (h *MessagesHandler) Send(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	contact, err := h.contacts.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	msg, err := h.sender.Deliver(c.Request().Context(), contact, req.Content, 0, 0)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}
