package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/middleware"
	"github.com/iliyamo/checklistpro/internal/service"
)

// ChecklistHandler serves checklist reads, the page routes that change
// checklists and the checklist-to-template conversion.
type ChecklistHandler struct {
	Checklists *service.ChecklistService
}

func NewChecklistHandler(s *service.ChecklistService) *ChecklistHandler {
	if s == nil {
		panic("nil service passed to NewChecklistHandler")
	}
	return &ChecklistHandler{Checklists: s}
}

// List: GET /api/checklists?categoryId=
func (h *ChecklistHandler) List(c echo.Context) error {
	var categoryID *uint64
	if raw := c.QueryParam("categoryId"); raw != "" {
		id, err := service.ParseID(raw, "category")
		if err != nil {
			return fail(c, err)
		}
		categoryID = &id
	}
	list, err := h.Checklists.List(c.Request().Context(), middleware.IdentityFrom(c), categoryID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, list, "")
}

// Get: GET /api/checklists/:id
func (h *ChecklistHandler) Get(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "checklist")
	if err != nil {
		return fail(c, err)
	}
	cl, err := h.Checklists.Get(c.Request().Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, cl, "")
}

// Create: POST /checklists
func (h *ChecklistHandler) Create(c echo.Context) error {
	in, err := bindChecklist(c)
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	cl, err := h.Checklists.Create(c.Request().Context(), middleware.IdentityFrom(c), in)
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	return done(c, http.StatusCreated, cl, "Checklist created successfully", "/dashboard")
}

// Update: POST /checklists/:id
func (h *ChecklistHandler) Update(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "checklist")
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	in, err := bindChecklist(c)
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	cl, err := h.Checklists.Update(c.Request().Context(), middleware.IdentityFrom(c), id, in)
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	return done(c, http.StatusOK, cl, "Checklist updated successfully", "/dashboard")
}

// Delete: POST /checklists/:id/delete
func (h *ChecklistHandler) Delete(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "checklist")
	if err != nil {
		return failPage(c, err, "/dashboard")
	}
	if err := h.Checklists.Delete(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return failPage(c, err, "/dashboard")
	}
	return done(c, http.StatusOK, nil, "Checklist deleted successfully", "/dashboard")
}

// SaveAsTemplate: POST /api/checklists/:id/save-as-template
func (h *ChecklistHandler) SaveAsTemplate(c echo.Context) error {
	id, err := service.ParseID(c.Param("id"), "checklist")
	if err != nil {
		return fail(c, err)
	}
	var in service.SaveAsTemplateInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	t, err := h.Checklists.SaveAsTemplate(c.Request().Context(), middleware.IdentityFrom(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, t, "Checklist converted to template successfully")
}

var itemField = regexp.MustCompile(`^items\[(\d+)\]\[(name|price)\]$`)

// bindChecklist reads a checklist from a JSON body or from a browser form
// using items[i][name] / items[i][price] fields.
func bindChecklist(c echo.Context) (service.ChecklistInput, error) {
	var in service.ChecklistInput
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.NewDecoder(c.Request().Body).Decode(&in); err != nil {
			return in, apperr.InvalidInput("Invalid request body")
		}
		return in, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return in, apperr.InvalidInput("Invalid request body")
	}
	in.Title = form.Get("title")
	in.CategoryID = form.Get("categoryId")

	items := map[int]*service.ChecklistItemInput{}
	bad := map[string]string{}
	for key, vals := range form {
		m := itemField.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		i, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		it := items[i]
		if it == nil {
			it = &service.ChecklistItemInput{}
			items[i] = it
		}
		switch m[2] {
		case "name":
			it.Name = vals[0]
		case "price":
			raw := strings.TrimSpace(vals[0])
			if raw == "" {
				continue
			}
			p, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				bad[fmt.Sprintf("items[%d].price", i)] = "Invalid price value"
				continue
			}
			it.Price = p
		}
	}
	if len(bad) > 0 {
		return in, apperr.Validation(service.ValidationFailedError, bad)
	}

	idx := make([]int, 0, len(items))
	for i := range items {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		in.Items = append(in.Items, *items[i])
	}
	return in, nil
}
