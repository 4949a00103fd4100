package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/apperr"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/handler"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/middleware"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/token"
)

// Setup configures the Echo instance: CORS, the boundary error
// handler, the health check and every user route.  Authenticated
// endpoints live behind the bearer-token middleware; admin endpoints
// additionally require the admin role.
func Setup(e *echo.Echo, h *handler.UserHandler, tokens *token.Manager, cache *middleware.ProfileCache, allowedOrigins []string) {
	e.HTTPErrorHandler = errorHandler
	e.Use(echomw.Recover())

	if len(allowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}

	e.GET("/healthz", handler.Health)

	g := e.Group("/api/user")
	g.POST("/register/:userType", h.Register)
	g.POST("/login", h.Login)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)
	g.POST("/refresh-token", h.Refresh)
	g.POST("/logout", h.Logout)

	auth := g.Group("", middleware.Auth(tokens))
	auth.GET("/fetch-user-info", h.FetchUserInfo, cache.Middleware())
	auth.PATCH("/update-user-info", h.UpdateUserInfo)
	auth.PATCH("/change-user-password", h.ChangeUserPassword)

	admin := auth.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/search-users", h.SearchUsers)
	admin.DELETE("/delete-user/:userId", h.DeleteUser)
}

// errorHandler is the single boundary translating errors to JSON.
// Coded errors keep their status and message; validation errors add
// the field map; anything uncoded is logged and becomes a bare 500 so
// no internal detail leaks.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if e := apperr.From(err); e != nil {
		if e.Fields != nil {
			_ = c.JSON(e.Status, echo.Map{"error": e.Message, "details": e.Fields})
			return
		}
		_ = c.JSON(e.Status, echo.Map{"error": e.Message})
		return
	}

	if he, ok := err.(*echo.HTTPError); ok {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, echo.Map{"error": msg})
		return
	}

	slog.Error("unhandled error", "path", c.Path(), "err", err)
	_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
}
