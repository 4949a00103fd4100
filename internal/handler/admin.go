package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/repository"
)

// SearchUsers pages users for administrators.  Query parameters:
// pageIndex (1-based), limit, searchQuery (matched against name,
// email and number), role (optional exact filter).
func (h *UserHandler) SearchUsers(c echo.Context) error {
	page, _ := strconv.ParseInt(c.QueryParam("pageIndex"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	params := repository.SearchParams{
		Page:  page,
		Limit: limit,
		Query: c.QueryParam("searchQuery"),
		Role:  c.QueryParam("role"),
	}
	res, err := h.Svc.SearchUsers(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteUser removes a user by id.  An optional role query parameter
// restricts the endpoint to one account type.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id := c.Param("userId")
	if err := h.Svc.DeleteUser(c.Request().Context(), id, c.QueryParam("role")); err != nil {
		return err
	}
	h.Cache.Invalidate(c.Request().Context(), id)
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully!"})
}
