package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/middleware"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/service"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/validation"
)

// refreshCookieName is the httponly cookie carrying the refresh token.
// The access token is returned in the body and held client-side so it
// can be attached to Authorization headers.
const refreshCookieName = "refreshToken"

// UserHandler bundles dependencies for the user endpoints.
type UserHandler struct {
	Svc        *service.UserService
	Cache      *middleware.ProfileCache
	RefreshTTL time.Duration
}

func NewUserHandler(svc *service.UserService, cache *middleware.ProfileCache, refreshTTL time.Duration) *UserHandler {
	return &UserHandler{Svc: svc, Cache: cache, RefreshTTL: refreshTTL}
}

// ----- DTOs -----

type registerReq struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Number      string `json:"number" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty"`
	Address     string `json:"address" validate:"required"`
	City        string `json:"city" validate:"required"`
	Zip         string `json:"zip" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordReq struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ----- cookie helpers -----

func (h *UserHandler) setRefreshCookie(c echo.Context, value string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/api/user",
		Expires:  time.Now().Add(h.RefreshTTL),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *UserHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/user",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshCookieValue(c echo.Context) string {
	ck, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// ----- endpoints -----

// Register creates a user or company account depending on the
// :userType path parameter.
func (h *UserHandler) Register(c echo.Context) error {
	userType := c.Param("userType")
	if userType != model.RoleUser && userType != model.RoleCompany {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user type")
	}

	var req registerReq
	if err := validation.BindStrict(c, &req); err != nil {
		return err
	}

	in := service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Number:      req.Number,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
		City:        req.City,
		Zip:         req.Zip,
		Password:    req.Password,
	}
	if err := h.Svc.Register(c.Request().Context(), in, userType); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully!"})
}

// Login verifies credentials, stores the refresh token in an httponly
// cookie and returns the access token in the body.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := validation.BindStrict(c, &req); err != nil {
		return err
	}

	access, refresh, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, refresh)
	return c.JSON(http.StatusOK, echo.Map{"token": access})
}

// Refresh rotates the refresh token from the cookie and returns a new
// access token.  A replayed or revoked token fails with 401.
func (h *UserHandler) Refresh(c echo.Context) error {
	access, refresh, err := h.Svc.Rotate(c.Request().Context(), refreshCookieValue(c))
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, refresh)
	return c.JSON(http.StatusOK, echo.Map{"token": access})
}

// Logout revokes the stored refresh token (when the cookie is present)
// and clears the cookie.  Always succeeds.
func (h *UserHandler) Logout(c echo.Context) error {
	if raw := refreshCookieValue(c); raw != "" {
		h.Svc.Revoke(c.Request().Context(), raw)
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// ForgotPassword mints a reset token and emails a reset link.  The
// link points at the requesting origin when one is supplied.
func (h *UserHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := validation.BindStrict(c, &req); err != nil {
		return err
	}
	origin := c.Request().Header.Get("Origin")
	if err := h.Svc.ForgotPassword(c.Request().Context(), req.Email, origin); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reset password link sent!"})
}

// ResetPassword consumes a reset token and stores the new password.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := validation.BindStrict(c, &req); err != nil {
		return err
	}
	if err := h.Svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully!"})
}
