package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

// AprobacionItemsHandler returns the solicitud's verdicts keyed by
// category
func AprobacionItemsHandler(c echo.Context) error {
	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}
	items, err := services.GetItems(db.DB, solicitudID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, items)
}

// SetAprobacionItemHandler records one supervisory verdict. Rejections
// notify the owning funcionario by email.
func SetAprobacionItemHandler(c echo.Context) error {
	aprobador := middleware.GetCurrentFuncionario(c)
	if aprobador == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}

	var input services.SetItemVerdictInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}

	item, err := services.SetItemVerdict(db.DB, solicitudID, aprobador.ID, input)
	if err != nil {
		return respondError(c, err)
	}

	if item.Estado == models.ItemEstadoRechazado {
		if cfg := getConfig(c); cfg != nil {
			if owner, solicitud, ok := solicitudOwner(solicitudID); ok {
				email := services.BuildItemRechazadoEmail(
					owner.Email, owner.NombreCompleto(), solicitud.Folio,
					item.ItemTipo, input.Observacion)
				services.SendEmailAsync(cfg, email)
			}
		}
	}

	return respondData(c, http.StatusOK, item)
}

// AprobarSolicitudHandler completes the solicitud when every required
// category is aprobado, and notifies the owning funcionario
func AprobarSolicitudHandler(c echo.Context) error {
	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}

	result, err := services.ApproveSolicitud(db.DB, solicitudID)
	if err != nil {
		if len(result.ItemsFaltantes) > 0 {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":           err.Error(),
				"items_faltantes": result.ItemsFaltantes,
			})
		}
		return respondError(c, err)
	}

	if cfg := getConfig(c); cfg != nil {
		if owner, solicitud, ok := solicitudOwner(solicitudID); ok {
			email := services.BuildSolicitudCompletadaEmail(owner.Email, owner.NombreCompleto(), solicitud.Folio)
			services.SendEmailAsync(cfg, email)
		}
	}

	return respondData(c, http.StatusOK, result)
}

// solicitudOwner resolves the funcionario who opened the solicitud's
// expediente, for notifications
func solicitudOwner(solicitudID uint) (*models.Funcionario, *models.Solicitud, bool) {
	var solicitud models.Solicitud
	if err := db.DB.First(&solicitud, solicitudID).Error; err != nil {
		return nil, nil, false
	}
	var expediente models.Expediente
	if err := db.DB.First(&expediente, solicitud.ExpedienteID).Error; err != nil {
		return nil, nil, false
	}
	var funcionario models.Funcionario
	if err := db.DB.First(&funcionario, expediente.FuncionarioID).Error; err != nil {
		return nil, nil, false
	}
	if funcionario.Email == "" {
		return nil, nil, false
	}
	return &funcionario, &solicitud, true
}
