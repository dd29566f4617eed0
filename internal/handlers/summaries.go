package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/summaries"
)

type SummariesHandler struct {
	service *summaries.Service
}

func NewSummariesHandler(service *summaries.Service) *SummariesHandler {
	return &SummariesHandler{service: service}
}

func (h *SummariesHandler) Register(e *echo.Echo) {
	e.GET("/api/contacts/:id/summaries", h.ListByContact)
}

func (h *SummariesHandler) ListByContact(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	items, err := h.service.ListByContact(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
