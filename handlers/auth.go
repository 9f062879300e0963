package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/services"
)

type loginRequest struct {
	RUT      string `json:"rut"`
	Password string `json:"password"`
}

// LoginHandler authenticates a funcionario and opens a session
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Solicitud inválida"})
	}

	funcionario, err := services.Login(db.DB, req.RUT, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	session, err := services.CreateSession(db.DB, funcionario.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return respondError(c, err)
	}

	middleware.SetSessionCookie(c, session)
	services.LogSecurityEvent("LOGIN_SUCCESS", funcionario.RUT, c.RealIP())

	return respondData(c, http.StatusOK, map[string]interface{}{
		"funcionario": map[string]interface{}{
			"id":       funcionario.ID,
			"rut":      funcionario.RUT,
			"nombre":   funcionario.NombreCompleto(),
			"email":    funcionario.Email,
			"rol":      funcionario.Rol,
			"sucursal": funcionario.Sucursal,
		},
	})
}

// LogoutHandler closes the current session
func LogoutHandler(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil {
		if err := services.DeleteSession(db.DB, cookie.Value); err != nil {
			return respondError(c, err)
		}
	}
	middleware.ClearSessionCookie(c)
	return respondData(c, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
}

// CheckSessionHandler reports the authenticated funcionario
func CheckSessionHandler(c echo.Context) error {
	funcionario := middleware.GetCurrentFuncionario(c)
	if funcionario == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"id":       funcionario.ID,
		"rut":      funcionario.RUT,
		"nombre":   funcionario.NombreCompleto(),
		"email":    funcionario.Email,
		"rol":      funcionario.Rol,
		"sucursal": funcionario.Sucursal,
	})
}
