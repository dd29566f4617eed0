package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/analytics"
)

type AnalyticsHandler struct {
	service *analytics.Service
}

func NewAnalyticsHandler(service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) Register(e *echo.Echo) {
	e.GET("/api/analytics", h.Overview)
}

func (h *AnalyticsHandler) Overview(c echo.Context) error {
	overview, err := h.service.Overview(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, overview)
}
