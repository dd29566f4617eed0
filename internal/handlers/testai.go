package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/responder"
)

// ReplyPreviewer generates a reply without delivering it.
type ReplyPreviewer interface {
	Generate(ctx context.Context, contact contacts.Contact, messageContent string, history []messages.Message) responder.Result
}

// TestAIHandler lets operators preview a generated reply for an ad-hoc
// message. Nothing is sent or persisted.
type TestAIHandler struct {
	previewer ReplyPreviewer
	contacts  *contacts.Service
	history   *messages.Service
}

func NewTestAIHandler(previewer ReplyPreviewer, contactService *contacts.Service, messageService *messages.Service) *TestAIHandler {
	return &TestAIHandler{
		previewer: previewer,
		contacts:  contactService,
		history:   messageService,
	}
}

func (h *TestAIHandler) Register(e *echo.Echo) {
	e.POST("/api/test-ai-response", h.Preview)
}

type previewRequest struct {
	ContactID string `json:"contact_id"`
	Message   string `json:"message"`
}

func (h *TestAIHandler) Preview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	var (
		contact contacts.Contact
		window  []messages.Message
	)
	if req.ContactID != "" {
		var err error
		contact, err = h.contacts.GetByID(c.Request().Context(), req.ContactID)
		if err != nil {
			return httpError(err)
		}
		window, err = h.history.History(c.Request().Context(), contact.ID, 20)
		if err != nil {
			return httpError(err)
		}
	}

	result := h.previewer.Generate(c.Request().Context(), contact, req.Message, window)
	return c.JSON(http.StatusOK, map[string]any{
		"response": result.Text,
		"fallback": result.Source == responder.SourceFallback,
	})
}
