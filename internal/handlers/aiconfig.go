package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/aiconfig"
)

type AIConfigHandler struct {
	service *aiconfig.Service
}

func NewAIConfigHandler(service *aiconfig.Service) *AIConfigHandler {
	return &AIConfigHandler{service: service}
}

func (h *AIConfigHandler) Register(e *echo.Echo) {
	e.GET("/api/ai-config", h.GetGlobal)
	e.POST("/api/ai-config", h.Create)
	e.PUT("/api/ai-config/:id", h.Update)
	e.GET("/api/contacts/:id/ai-config", h.GetForContact)
}

// GetGlobal returns the global config, or the configured defaults when none
// has been created yet.
func (h *AIConfigHandler) GetGlobal(c echo.Context) error {
	cfg, err := h.service.GetGlobal(c.Request().Context())
	if err != nil {
		if errors.Is(err, aiconfig.ErrNotFound) {
			return c.JSON(http.StatusOK, h.service.Defaults())
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *AIConfigHandler) GetForContact(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	cfg, err := h.service.GetForContact(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *AIConfigHandler) Create(c echo.Context) error {
	var req aiconfig.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cfg, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cfg)
}

func (h *AIConfigHandler) Update(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "config id is required")
	}
	var req aiconfig.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cfg, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}
