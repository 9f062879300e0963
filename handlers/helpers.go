package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/config"
	"saldo_insoluto_app_go/models"
)

// respondData wraps a successful payload in the standard envelope
func respondData(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondError maps service errors to HTTP status codes
func respondError(c echo.Context, err error) error {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
		stateErr      *models.StateError
		dependencyErr *models.DependencyError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, map[string]string{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, map[string]string{"error": conflictErr.Error()})
	case errors.As(err, &stateErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": stateErr.Error()})
	case errors.As(err, &dependencyErr):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": dependencyErr.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error interno del servidor"})
	}
}

// paramUint parses a numeric path parameter
func paramUint(c echo.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, models.NewValidationError("parámetro '%s' inválido", name)
	}
	return uint(value), nil
}

// getConfig retrieves the application config injected by main
func getConfig(c echo.Context) *config.Config {
	cfg, ok := c.Get("config").(*config.Config)
	if !ok {
		return nil
	}
	return cfg
}
