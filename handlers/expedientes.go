package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

// ExpedienteHandler returns the expediente with all its children
func ExpedienteHandler(c echo.Context) error {
	expedienteID, err := paramUint(c, "expedienteID")
	if err != nil {
		return respondError(c, err)
	}
	completo, err := services.GetExpedienteCompleto(db.DB, expedienteID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, completo)
}

// RevisionExpedienteHandler loads everything the supervisor review
// screen needs: the expediente group, the verdict per category and the
// active cálculo with detalles
func RevisionExpedienteHandler(c echo.Context) error {
	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}

	var solicitud models.Solicitud
	if err := db.DB.First(&solicitud, solicitudID).Error; err != nil {
		return respondError(c, models.NewNotFoundError("solicitud %d no encontrada", solicitudID))
	}

	completo, err := services.GetExpedienteCompleto(db.DB, solicitud.ExpedienteID)
	if err != nil {
		return respondError(c, err)
	}
	items, err := services.GetItems(db.DB, solicitudID)
	if err != nil {
		return respondError(c, err)
	}
	firmas, err := services.GetFirmasBeneficiarios(db.DB, solicitud.ExpedienteID)
	if err != nil {
		return respondError(c, err)
	}

	var calculo *services.CalculoCompleto
	if completo.Calculo != nil {
		if cc, err := services.GetCalculoCompleto(db.DB, solicitud.ExpedienteID); err == nil {
			calculo = cc
		}
	}

	return respondData(c, http.StatusOK, map[string]interface{}{
		"solicitud":        solicitud,
		"expediente":       completo,
		"aprobacion_items": items,
		"firmas":           firmas,
		"calculo":          calculo,
	})
}

// BuscarSaldoInsolutoHandler searches expedientes by the causante's RUT
func BuscarSaldoInsolutoHandler(c echo.Context) error {
	rut := c.QueryParam("rut")
	if rut == "" {
		return respondError(c, models.NewValidationError("parámetro 'rut' es requerido"))
	}
	resultados, err := services.BuscarPorRUTCausante(db.DB, rut)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, resultados)
}
