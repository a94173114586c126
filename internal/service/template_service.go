package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/metrics"
	"github.com/iliyamo/checklistpro/internal/model"
	"github.com/iliyamo/checklistpro/internal/repository"
)

// Paging limits for listing and suggestions.
const (
	DefaultPageSize       = 20
	MaxPageSize           = 100
	DefaultSuggestions    = 5
	MaxSuggestions        = 10
	ValidationFailedError = "Validation failed"
)

// TemplateService implements the template lifecycle and the derivation of
// checklists from templates.  Every operation takes the requester
// explicitly.
type TemplateService struct {
	templates  *repository.TemplateRepo
	checklists *repository.ChecklistRepo
	categories *repository.CategoryRepo
	now        func() time.Time
}

func NewTemplateService(t *repository.TemplateRepo, c *repository.ChecklistRepo, cat *repository.CategoryRepo) *TemplateService {
	return &TemplateService{templates: t, checklists: c, categories: cat, now: time.Now}
}

// WithClock replaces the clock used to pick the current season.
func (s *TemplateService) WithClock(now func() time.Time) *TemplateService {
	s.now = now
	return s
}

// ListParams are the raw listing filters after query parsing.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Type     string
	Search   string
	Sort     string
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		CurrentPage:  page,
		TotalPages:   int(math.Ceil(float64(total) / float64(limit))),
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNext:      int64(page*limit) < total,
		HasPrev:      page > 1,
	}
}

// List returns the page of templates visible to the requester.
func (s *TemplateService) List(ctx context.Context, who model.Identity, p ListParams) ([]model.Template, Pagination, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Type != model.TemplateTypeSystem && p.Type != model.TemplateTypeUser {
		p.Type = ""
	}
	list, total, err := s.templates.List(ctx, repository.TemplateQuery{
		ViewerID: who.UserID,
		Category: strings.TrimSpace(p.Category),
		Type:     p.Type,
		Search:   p.Search,
		Sort:     p.Sort,
		Page:     p.Page,
		PageSize: p.Limit,
	})
	if err != nil {
		return nil, Pagination{}, apperr.Internal("Failed to fetch templates", err)
	}
	return list, NewPagination(p.Page, p.Limit, total), nil
}

// CategoryCounts groups the visible templates by category.
func (s *TemplateService) CategoryCounts(ctx context.Context, who model.Identity) ([]model.TemplateCategoryStats, error) {
	stats, err := s.templates.CategoryStats(ctx, who.UserID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch template categories", err)
	}
	return stats, nil
}

// SuggestionContext explains how suggestions were chosen.
type SuggestionContext struct {
	Season      string `json:"season"`
	SuggestedBy string `json:"suggestedBy"`
}

// Suggestions returns templates for the current season first and fills
// the remainder with the most used visible templates.
func (s *TemplateService) Suggestions(ctx context.Context, who model.Identity, hint string, limit int) ([]model.Template, SuggestionContext, error) {
	if limit < 1 {
		limit = DefaultSuggestions
	}
	if limit > MaxSuggestions {
		limit = MaxSuggestions
	}
	sc := SuggestionContext{Season: model.Season(s.now().Month()), SuggestedBy: strings.TrimSpace(hint)}
	if sc.SuggestedBy == "" {
		sc.SuggestedBy = "general"
	}

	out, err := s.templates.Seasonal(ctx, who.UserID, sc.Season, limit)
	if err != nil {
		return nil, sc, apperr.Internal("Failed to get template suggestions", err)
	}
	if len(out) < limit {
		seen := make([]uint64, 0, len(out))
		for _, t := range out {
			seen = append(seen, t.ID)
		}
		more, err := s.templates.Popular(ctx, who.UserID, seen, limit-len(out))
		if err != nil {
			return nil, sc, apperr.Internal("Failed to get template suggestions", err)
		}
		out = append(out, more...)
	}
	return out, sc, nil
}

// Get returns a template the requester may read.
func (s *TemplateService) Get(ctx context.Context, who model.Identity, id uint64) (*model.Template, error) {
	t, err := s.load(ctx, id, "Failed to fetch template")
	if err != nil {
		return nil, err
	}
	if !t.CanAccess(who.UserID) {
		return nil, apperr.Forbidden("Access denied to this template")
	}
	return t, nil
}

// Create validates, sanitizes and stores a new user template owned by the
// requester.
func (s *TemplateService) Create(ctx context.Context, who model.Identity, p TemplatePayload) (*model.Template, error) {
	if errs := ValidateTemplatePayload(p); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	warnBareAlternatives(p, "api")
	t := SanitizeTemplatePayload(p).Template()
	t.UserID = who.UserID
	t.Normalize()
	if errs := t.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, apperr.Internal("Failed to create template", err)
	}
	metrics.TemplatesCreated.WithLabelValues("api").Inc()
	return s.reload(ctx, t)
}

// Update replaces the editable fields of a template owned by the
// requester.  Owner and type never change.
func (s *TemplateService) Update(ctx context.Context, who model.Identity, id uint64, p TemplatePayload) (*model.Template, error) {
	cur, err := s.load(ctx, id, "Failed to update template")
	if err != nil {
		return nil, err
	}
	if !cur.CanModify(who.UserID) {
		return nil, apperr.Forbidden("You can only update your own templates")
	}
	if errs := ValidateTemplatePayload(p); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	warnBareAlternatives(p, "api")
	next := SanitizeTemplatePayload(p).Template()
	next.ID = cur.ID
	next.Type = cur.Type
	next.UserID = cur.UserID
	next.UsageCount = cur.UsageCount
	next.Rating = cur.Rating
	next.CreatedAt = cur.CreatedAt
	next.Normalize()
	if errs := next.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	if err := s.templates.Update(ctx, next); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return nil, apperr.NotFound("Template not found")
		}
		return nil, apperr.Internal("Failed to update template", err)
	}
	return s.reload(ctx, next)
}

// Delete removes a template owned by the requester.  Checklists derived
// from it are left untouched.
func (s *TemplateService) Delete(ctx context.Context, who model.Identity, id uint64) error {
	cur, err := s.load(ctx, id, "Failed to delete template")
	if err != nil {
		return err
	}
	if !cur.CanModify(who.UserID) {
		return apperr.Forbidden("You can only delete your own templates")
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return apperr.NotFound("Template not found")
		}
		return apperr.Internal("Failed to delete template", err)
	}
	return nil
}

// Rate stores rating as the template's single rating value.  rating is
// the decoded JSON value and must be an integer from 1 to 5.
func (s *TemplateService) Rate(ctx context.Context, who model.Identity, id uint64, rating any) (int, error) {
	r, ok := integerRating(rating)
	if !ok {
		return 0, apperr.InvalidInput(model.RatingMessage)
	}
	cur, err := s.load(ctx, id, "Failed to rate template")
	if err != nil {
		return 0, err
	}
	if !cur.CanAccess(who.UserID) {
		return 0, apperr.Forbidden("Access denied to this template")
	}
	if err := s.templates.SetRating(ctx, id, r); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return 0, apperr.NotFound("Template not found")
		}
		return 0, apperr.Internal("Failed to rate template", err)
	}
	metrics.TemplateRatings.Inc()
	return r, nil
}

func integerRating(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || !model.ValidRating(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Customization overrides the name and/or price of a selected item.  An
// absent or null Price keeps the default; an explicit 0 is honoured.
// Prices may be numbers or numeric strings.
type Customization struct {
	Name  string `json:"name"`
	Price Number `json:"price"`
}

// customizationErrors reports prices that are present but not a
// non-negative number, keyed customizations.<itemId>.price.
func customizationErrors(custom map[string]Customization) map[string]string {
	errs := map[string]string{}
	for id, c := range custom {
		if c.Price.Present && (!c.Price.Valid || c.Price.Value < 0) {
			errs["customizations."+id+".price"] = "Invalid price value"
		}
	}
	return errs
}

// UseInput is the body of a derive-checklist request.
type UseInput struct {
	Title          string                   `json:"title"`
	SelectedItems  []string                 `json:"selectedItems"`
	Customizations map[string]Customization `json:"customizations"`
	CategoryID     any                      `json:"categoryId"`
}

// DeriveItems computes the checklist items for a derivation.  With a
// non-empty selection only selected items are copied, with customizations
// applied; otherwise all required items are copied at default price.
func DeriveItems(t *model.Template, selected []string, custom map[string]Customization) []model.ChecklistItem {
	items := []model.ChecklistItem{}
	if len(selected) > 0 {
		want := make(map[string]bool, len(selected))
		for _, id := range selected {
			want[id] = true
		}
		for _, it := range t.Items {
			if !want[it.ID] {
				continue
			}
			c := custom[it.ID]
			item := model.ChecklistItem{Name: it.Name, Price: it.DefaultPrice}
			if strings.TrimSpace(c.Name) != "" {
				item.Name = strings.TrimSpace(c.Name)
			}
			if c.Price.Present && c.Price.Valid {
				item.Price = c.Price.Value
			}
			items = append(items, item)
		}
		return items
	}
	for _, it := range t.RequiredItems() {
		items = append(items, model.ChecklistItem{Name: it.Name, Price: it.DefaultPrice})
	}
	return items
}

// Use derives a new checklist from a template and counts the use.  The
// checklist is a copy; later template edits never reach it.
func (s *TemplateService) Use(ctx context.Context, who model.Identity, id uint64, in UseInput) (*model.Checklist, error) {
	t, err := s.load(ctx, id, "Failed to create checklist from template")
	if err != nil {
		return nil, err
	}
	if !t.CanAccess(who.UserID) {
		return nil, apperr.Forbidden("Access denied to this template")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.InvalidInput("Checklist title is required")
	}
	if errs := customizationErrors(in.Customizations); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	items := DeriveItems(t, in.SelectedItems, in.Customizations)
	if len(items) == 0 {
		return nil, apperr.InvalidInput("No items selected for checklist")
	}
	categoryID, err := parseOptionalID(in.CategoryID, "category")
	if err != nil {
		return nil, err
	}
	if categoryID != nil {
		if _, err := s.categories.GetByIDAndOwner(ctx, *categoryID, who.UserID); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, apperr.NotFound("Category not found")
			}
			return nil, apperr.Internal("Failed to create checklist from template", err)
		}
	}

	c := &model.Checklist{
		UserID:     who.UserID,
		Title:      title,
		Items:      items,
		CategoryID: categoryID,
		TemplateID: &t.ID,
	}
	if errs := c.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	if err := s.checklists.Create(ctx, c); err != nil {
		return nil, apperr.Internal("Failed to create checklist from template", err)
	}
	if err := s.templates.IncrementUsage(ctx, t.ID); err != nil {
		// the checklist exists; a template deleted in between only loses the count
		slog.Warn("increment template usage failed", "template_id", t.ID, "error", err)
	}
	metrics.TemplateUses.WithLabelValues(t.Type).Inc()
	return c, nil
}

func (s *TemplateService) load(ctx context.Context, id uint64, failMsg string) (*model.Template, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return nil, apperr.NotFound("Template not found")
		}
		return nil, apperr.Internal(failMsg, err)
	}
	return t, nil
}

// reload re-reads a written template so the response carries the owner
// projection.  The written value is returned if the read fails.
func (s *TemplateService) reload(ctx context.Context, t *model.Template) (*model.Template, error) {
	if got, err := s.templates.GetByID(ctx, t.ID); err == nil {
		return got, nil
	}
	return t, nil
}

func warnBareAlternatives(p TemplatePayload, source string) {
	if n := p.BareAlternatives(); n > 0 {
		slog.Warn("template alternatives sent as plain strings; stored with price 0",
			"template", strings.TrimSpace(p.Name), "count", n, "source", source)
		metrics.DataQualityWarnings.WithLabelValues("bare_alternative").Add(float64(n))
	}
}
