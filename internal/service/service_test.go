package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/checklisttest"
	"github.com/iliyamo/checklistpro/internal/config"
	"github.com/iliyamo/checklistpro/internal/model"
	"github.com/iliyamo/checklistpro/internal/repository"
)

type fixture struct {
	templateRepo  *repository.TemplateRepo
	checklistRepo *repository.ChecklistRepo
	categoryRepo  *repository.CategoryRepo

	templates  *TemplateService
	checklists *ChecklistService
	categories *CategoryService
	auth       *AuthService

	alice, bob model.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := checklisttest.OpenDB(t)
	f := &fixture{
		templateRepo:  repository.NewTemplateRepo(db),
		checklistRepo: repository.NewChecklistRepo(db),
		categoryRepo:  repository.NewCategoryRepo(db),
	}
	f.templates = NewTemplateService(f.templateRepo, f.checklistRepo, f.categoryRepo)
	f.checklists = NewChecklistService(f.checklistRepo, f.categoryRepo, f.templateRepo)
	f.categories = NewCategoryService(f.categoryRepo)
	f.auth = NewAuthService(config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 1,
		BcryptCost:     4,
	}, repository.NewUserRepo(db), repository.NewTokenRepo(db))

	users := repository.NewUserRepo(db)
	for _, name := range []string{"alice", "bob"} {
		u, err := users.Create(context.Background(), repository.NewUser{
			Username: name, Email: name + "@example.com", PasswordHash: "x", Name: name, Phone: "0123456789",
		})
		require.NoError(t, err)
		id := model.Identity{UserID: u.UserID, Username: u.Username}
		if name == "alice" {
			f.alice = id
		} else {
			f.bob = id
		}
	}
	return f
}

// systemTemplate stores a system template with one required and one
// optional item.
func (f *fixture) systemTemplate(t *testing.T, seasons ...string) *model.Template {
	t.Helper()
	tpl := &model.Template{
		Name:     "Grocery run",
		Type:     model.TemplateTypeSystem,
		Category: "shopping",
		Items: []model.TemplateItem{
			{Name: "Milk", DefaultPrice: 3.99},
			{Name: "Cookies", DefaultPrice: 4.5, IsOptional: true},
		},
		Metadata: model.Metadata{Season: seasons},
	}
	tpl.Normalize()
	require.NoError(t, f.templateRepo.Create(context.Background(), tpl))
	return tpl
}

func (f *fixture) userTemplate(t *testing.T, who model.Identity, name string, public bool) *model.Template {
	t.Helper()
	tpl, err := f.templates.Create(context.Background(), who, TemplatePayload{
		Name:     name,
		Category: "travel",
		IsPublic: public,
		Items: []ItemPayload{
			{Name: "Passport", DefaultPrice: Num(0)},
			{Name: "Snacks", DefaultPrice: Num(12), IsOptional: true},
		},
	})
	require.NoError(t, err)
	return tpl
}

func assertKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	var e *apperr.Error
	require.True(t, errors.As(err, &e), "%v is not an *apperr.Error", err)
	assert.Equal(t, kind, e.Kind)
	if msg != "" {
		assert.Equal(t, msg, e.Message)
	}
}

func fixedClock(month time.Month) func() time.Time {
	return func() time.Time { return time.Date(2024, month, 15, 12, 0, 0, 0, time.UTC) }
}
