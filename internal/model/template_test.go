package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groceryTemplate() *Template {
	return &Template{
		Name:     "Weekly Groceries",
		Type:     TemplateTypeUser,
		Category: "shopping",
		UserID:   "u-1",
		Items: []TemplateItem{
			{Name: "Bread", DefaultPrice: 10},
			{Name: "Cheese", DefaultPrice: 5, IsOptional: true},
		},
	}
}

func TestCalculateEstimatedTotal(t *testing.T) {
	tpl := &Template{Items: []TemplateItem{{Name: "Milk", DefaultPrice: 3.99}}}
	assert.Equal(t, 3.99, tpl.CalculateEstimatedTotal(false))

	tpl = groceryTemplate()
	assert.Equal(t, 15.0, tpl.CalculateEstimatedTotal(true))
	assert.Equal(t, 10.0, tpl.CalculateEstimatedTotal(false))
	assert.Len(t, tpl.RequiredItems(), 1)
	assert.Len(t, tpl.OptionalItems(), 1)
	assert.Equal(t, "Cheese", tpl.OptionalItems()[0].Name)
}

func TestNormalize(t *testing.T) {
	t.Run("system template drops owner", func(t *testing.T) {
		tpl := groceryTemplate()
		tpl.Type = TemplateTypeSystem
		tpl.Normalize()
		assert.Empty(t, tpl.UserID)
		assert.Empty(t, tpl.Validate())
	})

	t.Run("estimated total follows required items", func(t *testing.T) {
		tpl := groceryTemplate()
		tpl.Normalize()
		assert.Equal(t, 10.0, tpl.Metadata.EstimatedTotal)

		tpl.Items = append(tpl.Items, TemplateItem{Name: "Butter", DefaultPrice: 2.5})
		tpl.Normalize()
		assert.Equal(t, 12.5, tpl.Metadata.EstimatedTotal)
	})

	t.Run("defaults and tags", func(t *testing.T) {
		tpl := groceryTemplate()
		tpl.Metadata.Tags = []string{"food", "", "  ", "weekly"}
		tpl.Normalize()
		assert.Equal(t, []string{"food", "weekly"}, tpl.Metadata.Tags)
		assert.Equal(t, DefaultDuration, tpl.Metadata.Duration)
		assert.Equal(t, DefaultDifficulty, tpl.Metadata.Difficulty)
		assert.Equal(t, DefaultTemplateIcon, tpl.Icon)
	})

	t.Run("item ids are assigned once", func(t *testing.T) {
		tpl := groceryTemplate()
		tpl.Normalize()
		require.NotEmpty(t, tpl.Items[0].ID)
		first := tpl.Items[0].ID
		tpl.Normalize()
		assert.Equal(t, first, tpl.Items[0].ID)
		assert.NotEqual(t, tpl.Items[0].ID, tpl.Items[1].ID)
	})
}

func TestValidate(t *testing.T) {
	t.Run("user template requires owner", func(t *testing.T) {
		tpl := groceryTemplate()
		tpl.UserID = ""
		errs := tpl.Validate()
		assert.Contains(t, errs, "userId")
	})

	t.Run("collects every error", func(t *testing.T) {
		bad := 7
		tpl := &Template{
			Name:     "ab",
			Type:     "shared",
			Category: "food",
			Metadata: Metadata{Season: []string{"monsoon", "dry"}, Duration: "forever"},
			Rating:   &bad,
		}
		errs := tpl.Validate()
		assert.Equal(t, "Template name must be at least 3 characters", errs["name"])
		assert.Equal(t, "Template type must be either system or user", errs["type"])
		assert.Equal(t, "Invalid category selection", errs["category"])
		assert.Equal(t, "Template must have at least one item", errs["items"])
		assert.Equal(t, "Invalid season value", errs["metadata.season"])
		assert.Equal(t, "Invalid duration value", errs["metadata.duration"])
		assert.Equal(t, RatingMessage, errs["rating"])
	})

	t.Run("valid rating", func(t *testing.T) {
		tpl := groceryTemplate()
		r := 5
		tpl.Rating = &r
		assert.Empty(t, tpl.Validate())
	})
}

func TestAccess(t *testing.T) {
	tpl := groceryTemplate()
	assert.True(t, tpl.CanAccess("u-1"))
	assert.False(t, tpl.CanAccess("u-2"))
	assert.False(t, tpl.CanAccess(""))
	assert.True(t, tpl.CanModify("u-1"))
	assert.False(t, tpl.CanModify("u-2"))

	tpl.IsPublic = true
	assert.True(t, tpl.CanAccess("u-2"))
	assert.False(t, tpl.CanModify("u-2"))

	sys := &Template{Type: TemplateTypeSystem}
	assert.True(t, sys.CanAccess("anyone"))
	assert.False(t, sys.CanModify("anyone"))
	assert.False(t, sys.CanModify(""))
}

func TestItemAlternatives(t *testing.T) {
	tpl := groceryTemplate()
	tpl.Items[0].Alternatives = []Alternative{{Name: "Rye", Price: 12}}
	assert.Equal(t, []Alternative{{Name: "Rye", Price: 12}}, tpl.ItemAlternatives("Bread"))
	assert.Empty(t, tpl.ItemAlternatives("Eggs"))
}

func TestSeason(t *testing.T) {
	assert.Equal(t, "winter", Season(time.January))
	assert.Equal(t, "spring", Season(time.April))
	assert.Equal(t, "summer", Season(time.August))
	assert.Equal(t, "fall", Season(time.October))
	assert.Equal(t, "winter", Season(time.December))
}
