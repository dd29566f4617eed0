package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachbotai/coachbot/internal/aiconfig"
	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/training"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps service sentinels to HTTP statuses; anything unrecognized
// surfaces as a 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, contacts.ErrNotFound),
		errors.Is(err, messages.ErrNotFound),
		errors.Is(err, aiconfig.ErrNotFound),
		errors.Is(err, training.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, contacts.ErrDuplicatePhone):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, contacts.ErrInvalidPhone):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
