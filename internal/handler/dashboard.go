package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/middleware"
	"github.com/iliyamo/checklistpro/internal/service"
)

// DashboardHandler returns everything the dashboard page shows.
type DashboardHandler struct {
	Categories *service.CategoryService
	Checklists *service.ChecklistService
}

func NewDashboardHandler(cat *service.CategoryService, cl *service.ChecklistService) *DashboardHandler {
	return &DashboardHandler{Categories: cat, Checklists: cl}
}

// Show: GET /dashboard
func (h *DashboardHandler) Show(c echo.Context) error {
	ctx := c.Request().Context()
	who := middleware.IdentityFrom(c)
	cats, err := h.Categories.List(ctx, who)
	if err != nil {
		return fail(c, err)
	}
	lists, err := h.Checklists.List(ctx, who, nil)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"user":       who,
		"categories": cats,
		"checklists": lists,
	}, "")
}
