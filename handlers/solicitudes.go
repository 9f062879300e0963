package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/services"
)

// CrearSolicitudHandler receives the full intake payload and creates the
// claim group in one transaction
func CrearSolicitudHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	var input services.CreateSolicitudInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}
	if input.Sucursal == "" {
		input.Sucursal = funcionario.Sucursal
	}

	result, err := services.CreateSolicitud(db.DB, input, funcionario.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, result)
}

// SolicitudesPendientesHandler lists the supervisor worklist. Accepts
// estado and sucursal query filters.
func SolicitudesPendientesHandler(c echo.Context) error {
	rows, err := services.SolicitudesPendientes(db.DB, c.QueryParam("estado"), c.QueryParam("sucursal"))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, rows)
}

// SolicitudesRechazadasHandler lists the funcionario's own solicitudes
// sent back for correction
func SolicitudesRechazadasHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	rows, err := services.SolicitudesRechazadas(db.DB, funcionario.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, rows)
}

// EnviarSolicitudHandler moves a rechazado solicitud into the correction
// window
func EnviarSolicitudHandler(c echo.Context) error {
	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}
	if err := services.SendToReview(db.DB, solicitudID); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"solicitud_id": solicitudID,
		"estado":       "rechazado/enRevision",
	})
}

// ReenviarSolicitudHandler resubmits a corrected solicitud for review,
// resetting the rejected verdicts
func ReenviarSolicitudHandler(c echo.Context) error {
	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}
	reset, err := services.ResubmitSolicitud(db.DB, solicitudID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"solicitud_id":      solicitudID,
		"estado":            "pendiente",
		"items_reiniciados": reset,
	})
}
