package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/metrics"
	"github.com/iliyamo/checklistpro/internal/model"
	"github.com/iliyamo/checklistpro/internal/repository"
	"github.com/iliyamo/checklistpro/pkg/validator"
)

type ChecklistService struct {
	checklists *repository.ChecklistRepo
	categories *repository.CategoryRepo
	templates  *repository.TemplateRepo
}

func NewChecklistService(c *repository.ChecklistRepo, cat *repository.CategoryRepo, t *repository.TemplateRepo) *ChecklistService {
	return &ChecklistService{checklists: c, categories: cat, templates: t}
}

type ChecklistItemInput struct {
	Name  string  `json:"name" validate:"notblank,max=200"`
	Price float64 `json:"price" validate:"gte=0,lte=9999999"`
}

// ChecklistInput is the body of checklist create and update requests.
type ChecklistInput struct {
	Title      string               `json:"title" validate:"notblank,max=200"`
	Items      []ChecklistItemInput `json:"items" validate:"min=1,dive"`
	CategoryID any                  `json:"categoryId" validate:"-"`
}

func (s *ChecklistService) List(ctx context.Context, who model.Identity, categoryID *uint64) ([]model.Checklist, error) {
	list, err := s.checklists.ListByOwner(ctx, who.UserID, categoryID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch checklists", err)
	}
	return list, nil
}

// Get returns a checklist owned by the requester.
func (s *ChecklistService) Get(ctx context.Context, who model.Identity, id uint64) (*model.Checklist, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != who.UserID {
		return nil, apperr.Forbidden("Access denied to this checklist")
	}
	return c, nil
}

func (s *ChecklistService) Create(ctx context.Context, who model.Identity, in ChecklistInput) (*model.Checklist, error) {
	c, err := s.build(ctx, who, in)
	if err != nil {
		return nil, err
	}
	if err := s.checklists.Create(ctx, c); err != nil {
		return nil, apperr.Internal("Failed to create checklist", err)
	}
	return c, nil
}

// Update replaces title, items and category of an owned checklist.  The
// template link is kept.
func (s *ChecklistService) Update(ctx context.Context, who model.Identity, id uint64, in ChecklistInput) (*model.Checklist, error) {
	cur, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.UserID != who.UserID {
		return nil, apperr.Forbidden("You can only update your own checklists")
	}
	next, err := s.build(ctx, who, in)
	if err != nil {
		return nil, err
	}
	cur.Title, cur.Items, cur.CategoryID = next.Title, next.Items, next.CategoryID
	if err := s.checklists.Update(ctx, cur); err != nil {
		return nil, apperr.Internal("Failed to update checklist", err)
	}
	return cur, nil
}

func (s *ChecklistService) Delete(ctx context.Context, who model.Identity, id uint64) error {
	cur, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if cur.UserID != who.UserID {
		return apperr.Forbidden("You can only delete your own checklists")
	}
	if err := s.checklists.Delete(ctx, id, who.UserID); err != nil {
		if errors.Is(err, repository.ErrChecklistNotFound) {
			return apperr.NotFound("Checklist not found")
		}
		return apperr.Internal("Failed to delete checklist", err)
	}
	return nil
}

// SaveAsTemplateInput is the body of a checklist-to-template conversion.
type SaveAsTemplateInput struct {
	TemplateName        string           `json:"templateName"`
	TemplateDescription string           `json:"templateDescription"`
	TemplateCategory    string           `json:"templateCategory"`
	IsPublic            any              `json:"isPublic"`
	Metadata            *MetadataPayload `json:"metadata"`
}

// SaveAsTemplate turns an owned checklist into a new user template whose
// items are all required, then links the checklist to it.
func (s *ChecklistService) SaveAsTemplate(ctx context.Context, who model.Identity, id uint64, in SaveAsTemplateInput) (*model.Template, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != who.UserID {
		return nil, apperr.Forbidden("You can only convert your own checklists to templates")
	}
	if strings.TrimSpace(in.TemplateName) == "" {
		return nil, apperr.InvalidInput("Template name is required")
	}
	if strings.TrimSpace(in.TemplateCategory) == "" {
		return nil, apperr.InvalidInput("Template category is required")
	}

	errs := map[string]string{}
	validateMetadata(in.Metadata, errs)
	if len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}

	p := TemplatePayload{
		Name:        in.TemplateName,
		Description: in.TemplateDescription,
		Category:    strings.TrimSpace(in.TemplateCategory),
		IsPublic:    in.IsPublic,
		Metadata:    in.Metadata,
	}
	t := SanitizeTemplatePayload(p).Template()
	t.Items = ChecklistToTemplateItems(c.Items)
	t.UserID = who.UserID
	t.Normalize()
	if errs := t.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, apperr.Internal("Failed to convert checklist to template", err)
	}
	if err := s.checklists.SetTemplateID(ctx, c.ID, t.ID); err != nil {
		return nil, apperr.Internal("Failed to convert checklist to template", err)
	}
	metrics.TemplatesCreated.WithLabelValues("checklist").Inc()
	if got, err := s.templates.GetByID(ctx, t.ID); err == nil {
		return got, nil
	}
	return t, nil
}

// ChecklistToTemplateItems maps checklist items to required template items
// with no alternatives.
func ChecklistToTemplateItems(items []model.ChecklistItem) []model.TemplateItem {
	out := make([]model.TemplateItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.TemplateItem{
			Name:         it.Name,
			DefaultPrice: it.Price,
			IsOptional:   false,
			Alternatives: []model.Alternative{},
		})
	}
	return out
}

func (s *ChecklistService) build(ctx context.Context, who model.Identity, in ChecklistInput) (*model.Checklist, error) {
	fields, err := validator.Fields(in)
	if err != nil {
		return nil, apperr.Internal("Failed to validate checklist", err)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(ValidationFailedError, fields)
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
			return nil, apperr.Internal("Failed to load category", err)
		}
	}
	c := &model.Checklist{UserID: who.UserID, Title: strings.TrimSpace(in.Title), CategoryID: categoryID}
	for _, it := range in.Items {
		c.Items = append(c.Items, model.ChecklistItem{Name: strings.TrimSpace(it.Name), Price: it.Price})
	}
	if errs := c.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(ValidationFailedError, errs)
	}
	return c, nil
}

func (s *ChecklistService) load(ctx context.Context, id uint64) (*model.Checklist, error) {
	c, err := s.checklists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrChecklistNotFound) {
			return nil, apperr.NotFound("Checklist not found")
		}
		return nil, apperr.Internal("Failed to fetch checklist", err)
	}
	return c, nil
}
