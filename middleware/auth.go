package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/config"
	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "saldo_insoluto_session"
	// ContextKeyFuncionario is the context key for the authenticated funcionario
	ContextKeyFuncionario = "funcionario"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
)

// RequireAuth requires a valid session. This is a JSON API, so failures
// answer 401 with an error body instead of redirecting.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
			}

			session, err := services.ValidateSession(db.DB, cookie.Value)
			if err != nil {
				ClearSessionCookie(c)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
			}

			if !session.Funcionario.Activo {
				ClearSessionCookie(c)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
			}

			c.Set(ContextKeyFuncionario, &session.Funcionario)
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

// RequireRole requires one of the given roles on the authenticated
// funcionario. Must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			funcionario := GetCurrentFuncionario(c)
			if funcionario == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
			}

			for _, role := range roles {
				if funcionario.Rol == role {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Permisos insuficientes"})
		}
	}
}

// GetCurrentFuncionario retrieves the authenticated funcionario from context
func GetCurrentFuncionario(c echo.Context) *models.Funcionario {
	funcionario, ok := c.Get(ContextKeyFuncionario).(*models.Funcionario)
	if !ok {
		return nil
	}
	return funcionario
}

// SetSessionCookie writes the session cookie
func SetSessionCookie(c echo.Context, session *models.Session) {
	isProduction := false
	if cfg, ok := c.Get("config").(*config.Config); ok {
		isProduction = cfg.Environment == "production"
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c echo.Context) {
	isProduction := false
	if cfg, ok := c.Get("config").(*config.Config); ok {
		isProduction = cfg.Environment == "production"
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}
