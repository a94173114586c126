package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/handler"
)

// RegisterPages registers the browser routes.  Changes are form posts that
// redirect to the dashboard; an unauthenticated browser is sent to /login.
func RegisterPages(e *echo.Echo, d *handler.DashboardHandler, cl *handler.ChecklistHandler, cat *handler.CategoryHandler, g Guards) {
	g = g.withDefaults()
	// per-route gate: a "" group would also claim every unmatched path
	e.GET("/dashboard", d.Show, g.Page)

	// ---- Checklists ----
	e.POST("/checklists", cl.Create, g.Page)
	e.POST("/checklists/:id", cl.Update, g.Page)
	e.POST("/checklists/:id/delete", cl.Delete, g.Page)

	// ---- Categories ----
	e.POST("/categories", cat.Create, g.Page)
	e.POST("/categories/:id", cat.Rename, g.Page)
	e.POST("/categories/:id/delete", cat.Delete, g.Page)
}

// RegisterAPIReads registers the JSON reads for checklists and categories
// together with the checklist-to-template conversion.
func RegisterAPIReads(e *echo.Echo, cl *handler.ChecklistHandler, cat *handler.CategoryHandler, g Guards) {
	g = g.withDefaults()
	a := e.Group("/api", g.API, g.RateLimit)

	a.GET("/checklists", cl.List)
	a.GET("/checklists/:id", cl.Get)
	a.POST("/checklists/:id/save-as-template", cl.SaveAsTemplate, g.Invalidate)

	a.GET("/categories", cat.List)
}
