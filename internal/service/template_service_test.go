package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/model"
)

func TestCreateTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := decodePayload(t, `{
		"name": "  Beach trip ",
		"category": "travel",
		"type": "system",
		"isPublic": true,
		"items": [
			{"name": "Sunscreen", "defaultPrice": "8.5", "alternatives": ["SPF 30"]},
			{"name": "Umbrella", "defaultPrice": 20, "isOptional": true}
		],
		"metadata": {"season": ["summer"], "tags": ["Beach", " "]}
	}`)
	tpl, err := f.templates.Create(ctx, f.alice, p)
	require.NoError(t, err)

	assert.NotZero(t, tpl.ID)
	assert.Equal(t, "Beach trip", tpl.Name)
	assert.Equal(t, model.TemplateTypeUser, tpl.Type)
	assert.Equal(t, f.alice.UserID, tpl.UserID)
	assert.True(t, tpl.IsPublic)
	assert.Equal(t, 8.5, tpl.Metadata.EstimatedTotal)
	assert.Equal(t, []string{"beach"}, tpl.Metadata.Tags)
	assert.Equal(t, "medium", tpl.Metadata.Duration)
	assert.Equal(t, "beginner", tpl.Metadata.Difficulty)
	assert.Equal(t, []model.Alternative{{Name: "SPF 30", Price: 0}}, tpl.Items[0].Alternatives)
	for _, it := range tpl.Items {
		assert.NotEmpty(t, it.ID)
	}
	require.NotNil(t, tpl.Owner)
	assert.Equal(t, "alice", tpl.Owner.Username)
}

func TestCreateTemplateValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.templates.Create(context.Background(), f.alice, TemplatePayload{Name: "ab", Category: "nope"})
	assertKind(t, err, apperr.KindValidation, "Validation failed")

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Len(t, e.Fields, 3)
	assert.Contains(t, e.Fields, "name")
	assert.Contains(t, e.Fields, "category")
	assert.Contains(t, e.Fields, "items")
}

func TestSystemTemplateHasNoOwner(t *testing.T) {
	f := newFixture(t)
	sys := f.systemTemplate(t)

	got, err := f.templates.Get(context.Background(), f.bob, sys.ID)
	require.NoError(t, err)
	assert.Empty(t, got.UserID)
	assert.Nil(t, got.Owner)

	bs, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(bs), "userId")
}

func TestGetTemplateAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	private := f.userTemplate(t, f.alice, "Private trip", false)
	public := f.userTemplate(t, f.alice, "Public trip", true)

	_, err := f.templates.Get(ctx, f.bob, private.ID)
	assertKind(t, err, apperr.KindForbidden, "Access denied to this template")

	_, err = f.templates.Get(ctx, f.bob, public.ID)
	assert.NoError(t, err)

	_, err = f.templates.Get(ctx, f.alice, private.ID)
	assert.NoError(t, err)

	_, err = f.templates.Get(ctx, f.alice, 9999)
	assertKind(t, err, apperr.KindNotFound, "Template not found")
}

func TestUpdateTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl := f.userTemplate(t, f.alice, "Road trip", false)
	_, err := f.templates.Rate(ctx, f.alice, tpl.ID, 4.0)
	require.NoError(t, err)

	got, err := f.templates.Update(ctx, f.alice, tpl.ID, TemplatePayload{
		Name:     "Road trip 2",
		Category: "travel",
		Type:     "system",
		IsPublic: "on",
		Items:    []ItemPayload{{Name: "Map", DefaultPrice: Num(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Road trip 2", got.Name)
	assert.Equal(t, model.TemplateTypeUser, got.Type)
	assert.Equal(t, f.alice.UserID, got.UserID)
	assert.True(t, got.IsPublic)
	assert.Equal(t, 5.0, got.Metadata.EstimatedTotal)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)
	assert.Equal(t, tpl.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestUpdateTemplateByNonOwnerLeavesItUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl := f.userTemplate(t, f.alice, "Road trip", true)

	_, err := f.templates.Update(ctx, f.bob, tpl.ID, TemplatePayload{Name: "Hijacked", Category: "travel",
		Items: []ItemPayload{{Name: "x"}}})
	assertKind(t, err, apperr.KindForbidden, "You can only update your own templates")

	stored, err := f.templateRepo.GetByID(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Road trip", stored.Name)
	assert.Len(t, stored.Items, 2)
}

func TestUpdateTemplateOrderOfChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sys := f.systemTemplate(t)
	invalid := TemplatePayload{Name: "x"}

	_, err := f.templates.Update(ctx, f.alice, 9999, invalid)
	assertKind(t, err, apperr.KindNotFound, "")
	_, err = f.templates.Update(ctx, f.alice, sys.ID, invalid)
	assertKind(t, err, apperr.KindForbidden, "")

	own := f.userTemplate(t, f.alice, "Mine", false)
	_, err = f.templates.Update(ctx, f.alice, own.ID, invalid)
	assertKind(t, err, apperr.KindValidation, "")
}

func TestDeleteTemplateKeepsDerivedChecklists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl := f.userTemplate(t, f.alice, "Camping", false)
	c, err := f.templates.Use(ctx, f.alice, tpl.ID, UseInput{Title: "Camping June"})
	require.NoError(t, err)

	err = f.templates.Delete(ctx, f.bob, tpl.ID)
	assertKind(t, err, apperr.KindForbidden, "You can only delete your own templates")

	require.NoError(t, f.templates.Delete(ctx, f.alice, tpl.ID))
	_, err = f.templates.Get(ctx, f.alice, tpl.ID)
	assertKind(t, err, apperr.KindNotFound, "")

	kept, err := f.checklists.Get(ctx, f.alice, c.ID)
	require.NoError(t, err)
	require.NotNil(t, kept.TemplateID)
	assert.Equal(t, tpl.ID, *kept.TemplateID)

	sys := f.systemTemplate(t)
	err = f.templates.Delete(ctx, f.alice, sys.ID)
	assertKind(t, err, apperr.KindForbidden, "")
}

func TestRateTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sys := f.systemTemplate(t)

	for _, bad := range []any{6.0, 0.0, 4.5, "5", nil, true} {
		_, err := f.templates.Rate(ctx, f.bob, sys.ID, bad)
		assertKind(t, err, apperr.KindInvalidInput, "Rating must be an integer between 1 and 5")
	}

	_, err := f.templates.Rate(ctx, f.bob, 9999, 3.0)
	assertKind(t, err, apperr.KindNotFound, "")

	private := f.userTemplate(t, f.alice, "Private", false)
	_, err = f.templates.Rate(ctx, f.bob, private.ID, 3.0)
	assertKind(t, err, apperr.KindForbidden, "")

	r, err := f.templates.Rate(ctx, f.bob, sys.ID, 5.0)
	require.NoError(t, err)
	assert.Equal(t, 5, r)
	r, err = f.templates.Rate(ctx, f.alice, sys.ID, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 2, r)

	got, err := f.templates.Get(ctx, f.alice, sys.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 2, *got.Rating, "last rating wins")
}

func TestUseTemplateWithoutSelection(t *testing.T) {
	for name, selected := range map[string][]string{"absent": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			sys := f.systemTemplate(t)

			c, err := f.templates.Use(ctx, f.alice, sys.ID, UseInput{Title: " Weekly ", SelectedItems: selected})
			require.NoError(t, err)
			assert.Equal(t, "Weekly", c.Title)
			assert.Equal(t, []model.ChecklistItem{{Name: "Milk", Price: 3.99}}, c.Items)
			assert.Equal(t, f.alice.UserID, c.UserID)
			require.NotNil(t, c.TemplateID)
			assert.Equal(t, sys.ID, *c.TemplateID)

			got, err := f.templateRepo.GetByID(ctx, sys.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.UsageCount)
		})
	}
}

func TestUseTemplateWithSelectionAndCustomizations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sys := f.systemTemplate(t)
	milk, cookies := sys.Items[0].ID, sys.Items[1].ID

	c, err := f.templates.Use(ctx, f.alice, sys.ID, UseInput{
		Title:         "Party",
		SelectedItems: []string{cookies, milk, "unknown"},
		Customizations: map[string]Customization{
			milk:    {Name: "Oat milk"},
			cookies: {Price: Num(0)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.ChecklistItem{
		{Name: "Oat milk", Price: 3.99},
		{Name: "Cookies", Price: 0},
	}, c.Items)
}

func TestUseTemplateCustomizationPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sys := f.systemTemplate(t)
	milk := sys.Items[0].ID

	var in UseInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "Breakfast",
		"selectedItems": ["`+milk+`"],
		"customizations": {"`+milk+`": {"price": "12.5"}}
	}`), &in))
	c, err := f.templates.Use(ctx, f.alice, sys.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []model.ChecklistItem{{Name: sys.Items[0].Name, Price: 12.5}}, c.Items)

	// null keeps the default price
	in = UseInput{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "Breakfast",
		"selectedItems": ["`+milk+`"],
		"customizations": {"`+milk+`": {"price": null}}
	}`), &in))
	c, err = f.templates.Use(ctx, f.alice, sys.ID, in)
	require.NoError(t, err)
	assert.Equal(t, sys.Items[0].DefaultPrice, c.Items[0].Price)

	for _, bad := range []Number{{Present: true}, Num(-1)} {
		_, err = f.templates.Use(ctx, f.alice, sys.ID, UseInput{
			Title:          "Breakfast",
			SelectedItems:  []string{milk},
			Customizations: map[string]Customization{milk: {Price: bad}},
		})
		assertKind(t, err, apperr.KindValidation, "")
		var e *apperr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, map[string]string{"customizations." + milk + ".price": "Invalid price value"}, e.Fields)
	}
}

func TestTemplateSearchIgnoresCaseBeyondASCII(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.userTemplate(t, f.alice, "Épicerie hebdo", false)

	for _, q := range []string{"Épicerie", "épicerie", "ÉPICERIE", "hebdo", "HEBDO"} {
		list, page, err := f.templates.List(ctx, f.alice, ListParams{Search: q})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.TotalItems, q)
		require.Len(t, list, 1)
		assert.Equal(t, "Épicerie hebdo", list[0].Name)
	}
}

func TestUseTemplateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sys := f.systemTemplate(t)
	private := f.userTemplate(t, f.alice, "Private", false)

	_, err := f.templates.Use(ctx, f.alice, 9999, UseInput{Title: "x"})
	assertKind(t, err, apperr.KindNotFound, "Template not found")

	_, err = f.templates.Use(ctx, f.bob, private.ID, UseInput{Title: "x"})
	assertKind(t, err, apperr.KindForbidden, "Access denied to this template")

	_, err = f.templates.Use(ctx, f.alice, sys.ID, UseInput{Title: "   "})
	assertKind(t, err, apperr.KindInvalidInput, "Checklist title is required")

	_, err = f.templates.Use(ctx, f.alice, sys.ID, UseInput{Title: "x", SelectedItems: []string{"nope"}})
	assertKind(t, err, apperr.KindInvalidInput, "No items selected for checklist")

	_, err = f.templates.Use(ctx, f.alice, sys.ID, UseInput{Title: "x", CategoryID: "abc"})
	assertKind(t, err, apperr.KindMalformedID, "Invalid category ID format")

	bobs, err := f.categories.Create(ctx, f.bob, CategoryInput{Name: "Bob's"})
	require.NoError(t, err)
	_, err = f.templates.Use(ctx, f.alice, sys.ID, UseInput{Title: "x", CategoryID: float64(bobs.ID)})
	assertKind(t, err, apperr.KindNotFound, "Category not found")

	got, err := f.templateRepo.GetByID(ctx, sys.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount, "failed uses are not counted")
}

func TestUseTemplateWithCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sys := f.systemTemplate(t)
	cat, err := f.categories.Create(ctx, f.alice, CategoryInput{Name: "Home"})
	require.NoError(t, err)

	c, err := f.templates.Use(ctx, f.alice, sys.ID, UseInput{Title: "x", CategoryID: strconv.FormatUint(cat.ID, 10)})
	require.NoError(t, err)
	require.NotNil(t, c.CategoryID)
	assert.Equal(t, cat.ID, *c.CategoryID)
}

func TestDerivedChecklistIsACopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl := f.userTemplate(t, f.alice, "Trip", false)
	c, err := f.templates.Use(ctx, f.alice, tpl.ID, UseInput{Title: "Trip"})
	require.NoError(t, err)

	_, err = f.templates.Update(ctx, f.alice, tpl.ID, TemplatePayload{Name: "Trip", Category: "travel",
		Items: []ItemPayload{{Name: "Tickets", DefaultPrice: Num(100)}}})
	require.NoError(t, err)

	got, err := f.checklists.Get(ctx, f.alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.ChecklistItem{{Name: "Passport", Price: 0}}, got.Items)
}

func TestListTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.systemTemplate(t)
	f.userTemplate(t, f.alice, "Alice private", false)
	f.userTemplate(t, f.bob, "Bob public", true)
	f.userTemplate(t, f.bob, "Bob private", false)

	list, page, err := f.templates.List(ctx, f.alice, ListParams{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 1, TotalItems: 3, ItemsPerPage: 20}, page)

	_, page, err = f.templates.List(ctx, f.alice, ListParams{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, MaxPageSize, page.ItemsPerPage)

	list, page, err = f.templates.List(ctx, f.alice, ListParams{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 3, ItemsPerPage: 2, HasPrev: true}, page)

	list, _, err = f.templates.List(ctx, f.alice, ListParams{Type: "system"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.TemplateTypeSystem, list[0].Type)

	list, _, err = f.templates.List(ctx, f.alice, ListParams{Search: "bob"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob public", list[0].Name)
}

func TestCategoryCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.systemTemplate(t)
	f.userTemplate(t, f.alice, "Trip one", false)
	f.userTemplate(t, f.bob, "Trip two", false)

	stats, err := f.templates.CategoryCounts(ctx, f.alice)
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, s := range stats {
		counts[s.Category] = s.Count
	}
	assert.Equal(t, map[string]int64{"shopping": 1, "travel": 1}, counts)
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.templates.WithClock(fixedClock(time.July))

	summer := f.systemTemplate(t, "summer")
	winter := f.systemTemplate(t, "winter")
	always := f.systemTemplate(t, "all")
	for i := 0; i < 3; i++ {
		require.NoError(t, f.templateRepo.IncrementUsage(ctx, winter.ID))
	}
	require.NoError(t, f.templateRepo.IncrementUsage(ctx, always.ID))

	list, sc, err := f.templates.Suggestions(ctx, f.alice, "", 3)
	require.NoError(t, err)
	assert.Equal(t, SuggestionContext{Season: "summer", SuggestedBy: "general"}, sc)
	require.Len(t, list, 3)
	assert.Equal(t, always.ID, list[0].ID)
	assert.Equal(t, summer.ID, list[1].ID)
	assert.Equal(t, winter.ID, list[2].ID, "topped up with popular templates")

	list, sc, err = f.templates.Suggestions(ctx, f.alice, "weekend", 0)
	require.NoError(t, err)
	assert.Equal(t, "weekend", sc.SuggestedBy)
	assert.Len(t, list, 3)

	f.templates.WithClock(fixedClock(time.December))
	list, sc, err = f.templates.Suggestions(ctx, f.alice, "", 1)
	require.NoError(t, err)
	assert.Equal(t, "winter", sc.Season)
	require.Len(t, list, 1)
	assert.Equal(t, winter.ID, list[0].ID)
}

func TestDeriveItemsRequiredOnly(t *testing.T) {
	tpl := &model.Template{Items: []model.TemplateItem{
		{ID: "a", Name: "A", DefaultPrice: 1},
		{ID: "b", Name: "B", DefaultPrice: 2, IsOptional: true},
	}}
	assert.Equal(t, []model.ChecklistItem{{Name: "A", Price: 1}}, DeriveItems(tpl, nil, nil))
	assert.Equal(t, []model.ChecklistItem{{Name: "B", Price: 2}}, DeriveItems(tpl, []string{"b"}, nil))

	tpl.Items[0].IsOptional = true
	assert.Empty(t, DeriveItems(tpl, nil, nil))
}
