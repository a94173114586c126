package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/middleware"
	"github.com/iliyamo/checklistpro/internal/service"
)

type CategoryHandler struct {
	Categories *service.CategoryService
}

func NewCategoryHandler(s *service.CategoryService) *CategoryHandler {
	if s == nil {
		panic("nil service passed to NewCategoryHandler")
	}
	return &CategoryHandler{Categories: s}
}

// List: GET /api/categories
func (h *CategoryHandler) List(c echo.Context) error {
	list, err := h.Categories.List(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, list, "")
}

// Create: POST /categories
func (h *CategoryHandler) Create(c echo.Context) error {
	var in service.CategoryInput
	if err := c.Bind(&in); err != nil {
		return failPage(c, errBadBody, "/dashboard")
	}
	cat, err := h.Categories.Create(c.Request().Context(), middleware.IdentityFrom(c), in)
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	return done(c, http.StatusCreated, cat, "Category created successfully", "/dashboard")
}

// Rename: POST /categories/:id
func (h *CategoryHandler) Rename(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "category")
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	var in service.CategoryInput
	if err := c.Bind(&in); err != nil {
		return failPage(c, errBadBody, "/dashboard")
	}
	if err := h.Categories.Rename(c.Request().Context(), middleware.IdentityFrom(c), id, in); err != nil {
		return failPage(c, err, "/dashboard")
	}
	return done(c, http.StatusOK, nil, "Category updated successfully", "/dashboard")
}

// Delete: POST /categories/:id/delete
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "category")
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	if err := h.Categories.Delete(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return failPage(c, err, "/dashboard")
	}
	return done(c, http.StatusOK, nil, "Category deleted successfully", "/dashboard")
}
