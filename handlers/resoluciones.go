package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/services"
)

// resolucionTemplate is the HTML template rendered into the final PDF
var resolucionTemplate = filepath.Join("templates", "resolucion.html")

// GenerarResolucionHandler renders the resolution PDF for an approved
// expediente and streams it back
func GenerarResolucionHandler(c echo.Context) error {
	jefatura := middleware.GetCurrentFuncionario(c)
	if jefatura == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	expedienteID, err := paramUint(c, "expedienteID")
	if err != nil {
		return respondError(c, err)
	}

	pdf, filename, err := services.GenerarResolucion(db.DB, expedienteID, jefatura.ID, resolucionTemplate)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
