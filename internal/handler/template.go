package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/middleware"
	"github.com/iliyamo/checklistpro/internal/service"
)

// TemplateHandler serves the /api/templates routes.
type TemplateHandler struct {
	Templates *service.TemplateService
}

func NewTemplateHandler(s *service.TemplateService) *TemplateHandler {
	if s == nil {
		panic("nil service passed to NewTemplateHandler")
	}
	return &TemplateHandler{Templates: s}
}

// List: GET /api/templates?page=&limit=&category=&type=&search=&sort=
func (h *TemplateHandler) List(c echo.Context) error {
	p := service.ListParams{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Category: c.QueryParam("category"),
		Type:     c.QueryParam("type"),
		Search:   c.QueryParam("search"),
		Sort:     c.QueryParam("sort"),
	}
	list, page, err := h.Templates.List(c.Request().Context(), middleware.IdentityFrom(c), p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: list, Pagination: &page})
}

// Categories: GET /api/templates/categories
func (h *TemplateHandler) Categories(c echo.Context) error {
	stats, err := h.Templates.CategoryCounts(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, stats, "")
}

// Suggestions: GET /api/templates/suggestions?context=&limit=
func (h *TemplateHandler) Suggestions(c echo.Context) error {
	list, sc, err := h.Templates.Suggestions(c.Request().Context(), middleware.IdentityFrom(c),
		c.QueryParam("context"), queryInt(c, "limit"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: list, Context: &sc})
}

// Get: GET /api/templates/:id
func (h *TemplateHandler) Get(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "template")
	if err != nil {
		return fail(c, err)
	}
	t, err := h.Templates.Get(c.Request().Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, t, "")
}

// Create: POST /api/templates
func (h *TemplateHandler) Create(c echo.Context) error {
	var p service.TemplatePayload
	if err := c.Bind(&p); err != nil {
		return badBody(c)
	}
	t, err := h.Templates.Create(c.Request().Context(), middleware.IdentityFrom(c), p)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, t, "Template created successfully")
}

// Update: PUT /api/templates/:id
func (h *TemplateHandler) Update(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "template")
	if err != nil {
		return fail(c, err)
	}
	var p service.TemplatePayload
	if err := c.Bind(&p); err != nil {
		return badBody(c)
	}
	t, err := h.Templates.Update(c.Request().Context(), middleware.IdentityFrom(c), id, p)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, t, "Template updated successfully")
}

// Delete: DELETE /api/templates/:id
func (h *TemplateHandler) Delete(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "template")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Templates.Delete(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "Template deleted successfully")
}

// Use: POST /api/templates/:id/use
func (h *TemplateHandler) Use(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "template")
	if err != nil {
		return fail(c, err)
	}
	var in service.UseInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	cl, err := h.Templates.Use(c.Request().Context(), middleware.IdentityFrom(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, cl, "Checklist created from template successfully")
}

type rateReq struct {
	Rating any `json:"rating"`
}

// Rate: POST /api/templates/:id/rate
func (h *TemplateHandler) Rate(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "template")
	if err != nil {
		return fail(c, err)
	}
	var req rateReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	r, err := h.Templates.Rate(c.Request().Context(), middleware.IdentityFrom(c), id, req.Rating)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"rating": r}, "Template rated successfully")
}

// queryInt returns 0 for a missing or unparsable value so the service
// applies its default.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}
