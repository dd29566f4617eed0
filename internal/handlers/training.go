package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/responder"
	"github.com/coachbotai/coachbot/internal/training"
)

// ContentAnalyzer extracts style and knowledge notes from a training text.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, content string) responder.Analysis
}

type TrainingHandler struct {
	service  *training.Service
	analyzer ContentAnalyzer
}

func NewTrainingHandler(service *training.Service, analyzer ContentAnalyzer) *TrainingHandler {
	return &TrainingHandler{service: service, analyzer: analyzer}
}

func (h *TrainingHandler) Register(e *echo.Echo) {
	group := e.Group("/api/training-data")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.DELETE("/:id", h.Delete)
}

func (h *TrainingHandler) List(c echo.Context) error {
	items, err := h.service.ListActive(c.Request().Context(),
		intQueryParam(c, "skip", 0), intQueryParam(c, "limit", 100))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Create stores a training item and returns it together with the best-effort
// content analysis.
func (h *TrainingHandler) Create(c echo.Context) error {
	var req training.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	analysis := h.analyzer.Analyze(c.Request().Context(), item.Content)
	return c.JSON(http.StatusCreated, map[string]any{
		"item":     item,
		"analysis": analysis,
	})
}

func (h *TrainingHandler) Delete(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "training datum id is required")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
