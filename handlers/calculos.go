package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/services"
)

// CalcularSaldoInsolutoHandler stores or replaces the expediente's
// benefit calculation
func CalcularSaldoInsolutoHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	var input services.GuardarCalculoInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}

	result, err := services.GuardarCalculo(db.DB, input, funcionario.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, result)
}

// CalculoExistenteHandler returns whether the expediente already has an
// active cálculo, and which
func CalculoExistenteHandler(c echo.Context) error {
	expedienteID, err := paramUint(c, "expedienteID")
	if err != nil {
		return respondError(c, err)
	}

	calculo, err := services.GetCalculoActivo(db.DB, expedienteID)
	if err != nil {
		return respondError(c, err)
	}
	if calculo == nil {
		return respondData(c, http.StatusOK, map[string]interface{}{"existe": false})
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"existe":  true,
		"calculo": calculo,
	})
}

// CalculoCompletoHandler returns the active cálculo with its detalle
// lines
func CalculoCompletoHandler(c echo.Context) error {
	expedienteID, err := paramUint(c, "expedienteID")
	if err != nil {
		return respondError(c, err)
	}

	completo, err := services.GetCalculoCompleto(db.DB, expedienteID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, completo)
}
