package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
)

// HealthHandler reports service and database health
func HealthHandler(c echo.Context) error {
	status := "ok"
	dbStatus := "ok"

	sqlDB, err := db.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{
		"status":   status,
		"database": dbStatus,
	})
}
