package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

type firmaHMACRequest struct {
	SolicitudID uint                   `json:"solicitud_id"`
	Payload     map[string]interface{} `json:"payload"`
	Clave       string                 `json:"clave"`
	Salt        string                 `json:"salt"`
}

func (r firmaHMACRequest) validate() error {
	if r.SolicitudID == 0 {
		return models.NewValidationError("solicitud_id es requerido")
	}
	if len(r.Payload) == 0 {
		return models.NewValidationError("payload es requerido")
	}
	if r.Clave == "" {
		return models.NewValidationError("clave es requerida")
	}
	return nil
}

// FirmarRepresentanteHandler stores the representative's HMAC firma on
// the solicitud's validación row
func FirmarRepresentanteHandler(c echo.Context) error {
	var req firmaHMACRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}
	if err := req.validate(); err != nil {
		return respondError(c, err)
	}

	if err := services.FirmarRepresentante(db.DB, req.SolicitudID, req.Payload, req.Clave, req.Salt); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"solicitud_id": req.SolicitudID,
		"firmado":      true,
	})
}

// FirmarFuncionarioHandler stores the funcionario's HMAC firma without
// touching the solicitud state. Kept for the external signing flow.
func FirmarFuncionarioHandler(c echo.Context) error {
	var req firmaHMACRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}
	if err := req.validate(); err != nil {
		return respondError(c, err)
	}

	if err := services.FirmarFuncionarioLegacy(db.DB, req.SolicitudID, req.Payload, req.Clave, req.Salt); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"solicitud_id": req.SolicitudID,
		"firmado":      true,
	})
}

type firmaSolicitudRequest struct {
	FirmaData map[string]interface{} `json:"firma_data"`
}

// FirmarSolicitudFuncionarioHandler records the session funcionario's
// signature on the solicitud and moves it to firmado_funcionario
func FirmarSolicitudFuncionarioHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}

	var req firmaSolicitudRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}
	if req.FirmaData == nil {
		req.FirmaData = map[string]interface{}{}
	}

	solicitud, err := services.FirmarSolicitudFuncionario(db.DB, solicitudID, funcionario.ID, req.FirmaData)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"solicitud_id": solicitud.ID,
		"estado":       solicitud.Estado,
		"fecha_firma":  solicitud.FechaFirmaFuncionario,
	})
}

// FirmarSolicitudFuncionarioDirectoHandler flips the signature flag and
// re-runs the readiness check without forcing the state
func FirmarSolicitudFuncionarioDirectoHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}

	readiness, err := services.FirmarSolicitudFuncionarioDirecto(db.DB, solicitudID, funcionario.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, readiness)
}

type firmaBeneficiarioRequest struct {
	BeneficiarioID uint `json:"beneficiario_id"`
	ExpedienteID   uint `json:"expediente_id"`
}

// FirmarBeneficiarioHandler handles the in-app beneficiary signing
// request and re-runs the readiness check
func FirmarBeneficiarioHandler(c echo.Context) error {
	var req firmaBeneficiarioRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}
	if req.BeneficiarioID == 0 || req.ExpedienteID == 0 {
		return respondError(c, models.NewValidationError("beneficiario_id y expediente_id son requeridos"))
	}

	beneficiario, readiness, err := services.FirmarBeneficiario(db.DB, req.BeneficiarioID, req.ExpedienteID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"beneficiario": beneficiario,
		"readiness":    readiness,
	})
}

// FirmasBeneficiariosHandler reports the signature progress of an
// expediente
func FirmasBeneficiariosHandler(c echo.Context) error {
	expedienteID, err := paramUint(c, "expedienteID")
	if err != nil {
		return respondError(c, err)
	}
	result, err := services.GetFirmasBeneficiarios(db.DB, expedienteID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, result)
}
