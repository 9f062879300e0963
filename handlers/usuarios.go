package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/services"
)

// CrearUsuarioHandler creates a platform account
func CrearUsuarioHandler(c echo.Context) error {
	var input services.CrearFuncionarioInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}

	funcionario, err := services.CrearFuncionario(db.DB, input)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusCreated, map[string]interface{}{
		"id":       funcionario.ID,
		"rut":      funcionario.RUT,
		"nombre":   funcionario.NombreCompleto(),
		"email":    funcionario.Email,
		"rol":      funcionario.Rol,
		"sucursal": funcionario.Sucursal,
	})
}

type validarClaveRequest struct {
	Password string `json:"password"`
}

// ValidarClaveFuncionarioHandler re-checks the session owner's password
// before the signing flow accepts a functionary signature
func ValidarClaveFuncionarioHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}

	var req validarClaveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}

	validado, err := services.ValidarClaveFuncionario(db.DB, funcionario.ID, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusOK, map[string]interface{}{
		"valido":         true,
		"funcionario_id": validado.ID,
		"nombre":         validado.NombreCompleto(),
	})
}
