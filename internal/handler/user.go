package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/middleware"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/repository"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/validation"
)

type updateUserReq struct {
	Name        *string `json:"name"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Number      *string `json:"number"`
	DateOfBirth *string `json:"dateOfBirth"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Zip         *string `json:"zip"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// FetchUserInfo returns the authenticated user's sanitized profile.
func (h *UserHandler) FetchUserInfo(c echo.Context) error {
	profile, err := h.Svc.FetchUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": profile})
}

// UpdateUserInfo applies a partial profile update for the
// authenticated user and invalidates the cached profile.
func (h *UserHandler) UpdateUserInfo(c echo.Context) error {
	var req updateUserReq
	if err := validation.BindStrict(c, &req); err != nil {
		return err
	}

	userID := middleware.UserID(c)
	upd := repository.ProfileUpdate{
		Name:        req.Name,
		Email:       req.Email,
		Number:      req.Number,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
		City:        req.City,
		Zip:         req.Zip,
	}
	if err := h.Svc.UpdateUser(c.Request().Context(), userID, upd); err != nil {
		return err
	}
	h.Cache.Invalidate(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Info updated successfully!"})
}

// ChangeUserPassword replaces the password after verifying the old one.
func (h *UserHandler) ChangeUserPassword(c echo.Context) error {
	var req changePasswordReq
	if err := validation.BindStrict(c, &req); err != nil {
		return err
	}

	userID := middleware.UserID(c)
	if err := h.Svc.ChangeUserPassword(c.Request().Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	h.Cache.Invalidate(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully!"})
}
