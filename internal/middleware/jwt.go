package middleware // reusable HTTP middleware for the API

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/apperr"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/token"
)

// Context keys populated by Auth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// Auth returns an Echo middleware that validates a Bearer access token
// and injects the token's identity claims into the request context.
// Protected handlers read them via c.Get(CtxUserID) etc.
func Auth(tokens *token.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return apperr.Unauthorized("Invalid or missing token!")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := tokens.VerifyAccess(raw)
			if err != nil {
				return apperr.Unauthorized("Invalid or missing token!")
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id from the context, or ""
// when the Auth middleware did not run.
func UserID(c echo.Context) string {
	id, _ := c.Get(CtxUserID).(string)
	return id
}
