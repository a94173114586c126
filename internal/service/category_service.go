package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/model"
	"github.com/iliyamo/checklistpro/internal/repository"
	"github.com/iliyamo/checklistpro/pkg/validator"
)

type CategoryService struct {
	categories *repository.CategoryRepo
}

func NewCategoryService(r *repository.CategoryRepo) *CategoryService {
	return &CategoryService{categories: r}
}

type CategoryInput struct {
	Name string `json:"name" form:"name" validate:"notblank,max=100"`
}

func (s *CategoryService) List(ctx context.Context, who model.Identity) ([]model.Category, error) {
	list, err := s.categories.ListByOwner(ctx, who.UserID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch categories", err)
	}
	return list, nil
}

func (s *CategoryService) Create(ctx context.Context, who model.Identity, in CategoryInput) (*model.Category, error) {
	if err := checkCategory(in); err != nil {
		return nil, err
	}
	c := &model.Category{UserID: who.UserID, Name: strings.TrimSpace(in.Name)}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, apperr.Internal("Failed to create category", err)
	}
	return c, nil
}

// Rename only touches categories owned by the requester; anything else is
// reported as not found.
func (s *CategoryService) Rename(ctx context.Context, who model.Identity, id uint64, in CategoryInput) error {
	if err := checkCategory(in); err != nil {
		return err
	}
	return categoryErr(s.categories.Rename(ctx, id, who.UserID, strings.TrimSpace(in.Name)), "Failed to update category")
}

func (s *CategoryService) Delete(ctx context.Context, who model.Identity, id uint64) error {
	return categoryErr(s.categories.Delete(ctx, id, who.UserID), "Failed to delete category")
}

func checkCategory(in CategoryInput) error {
	fields, err := validator.Fields(in)
	if err != nil {
		return apperr.Internal("Failed to validate category", err)
	}
	if len(fields) > 0 {
		return apperr.Validation(ValidationFailedError, fields)
	}
	return nil
}

func categoryErr(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrCategoryNotFound):
		return apperr.NotFound("Category not found")
	default:
		return apperr.Internal(msg, err)
	}
}
