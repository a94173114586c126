package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/handler"
)

// RegisterTemplates registers the template API under /api/templates.  All
// routes require an authenticated requester.  The static paths
// (categories, suggestions) win over /:id in echo's router.
func RegisterTemplates(e *echo.Echo, h *handler.TemplateHandler, g Guards) {
	g = g.withDefaults()
	t := e.Group("/api/templates", g.API, g.RateLimit)

	t.GET("", h.List)
	t.GET("/categories", h.Categories, g.Cache)
	t.GET("/suggestions", h.Suggestions, g.Cache)
	t.GET("/:id", h.Get)
	t.POST("", h.Create, g.Invalidate)
	t.PUT("/:id", h.Update, g.Invalidate)
	t.DELETE("/:id", h.Delete, g.Invalidate)

	// derive a checklist and rate; both change usage or rating aggregates
	t.POST("/:id/use", h.Use, g.Invalidate)
	t.POST("/:id/rate", h.Rate, g.Invalidate)
}
