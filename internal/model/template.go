package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Template types.
const (
	TemplateTypeSystem = "system"
	TemplateTypeUser   = "user"
)

// Defaults applied by Normalize.
const (
	DefaultTemplateIcon = "fas fa-list"
	DefaultDuration     = "medium"
	DefaultDifficulty   = "beginner"
)

var (
	TemplateCategories = []string{"shopping", "travel", "moving", "event", "routine", "custom"}
	Seasons            = []string{"spring", "summer", "fall", "winter", "all"}
	Durations          = []string{"quick", "short", "medium", "long", "extended"}
	Difficulties       = []string{"beginner", "intermediate", "advanced"}
)

func IsTemplateCategory(s string) bool { return contains(TemplateCategories, s) }
func IsSeason(s string) bool           { return contains(Seasons, s) }
func IsDuration(s string) bool         { return contains(Durations, s) }
func IsDifficulty(s string) bool       { return contains(Difficulties, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Alternative is a substitute product for a template item.
type Alternative struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// TemplateItem is one entry of a template.  ID is stable across edits and is
// what clients send back in selectedItems and customizations.
type TemplateItem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	DefaultPrice float64       `json:"defaultPrice"`
	Category     string        `json:"category,omitempty"`
	IsOptional   bool          `json:"isOptional"`
	Alternatives []Alternative `json:"alternatives"`
}

// Metadata groups the descriptive attributes of a template.
type Metadata struct {
	Season         []string `json:"season"`
	Duration       string   `json:"duration"`
	Difficulty     string   `json:"difficulty"`
	EstimatedTotal float64  `json:"estimatedTotal"`
	Tags           []string `json:"tags"`
}

// Owner is the public projection of a template's owning user.
type Owner struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Template mirrors the `templates` table.  Items, seasons and tags are
// persisted as JSON columns; Owner is filled by list and get queries for
// user templates.
type Template struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Category    string         `json:"category"`
	Icon        string         `json:"icon"`
	Items       []TemplateItem `json:"items"`
	Metadata    Metadata       `json:"metadata"`
	UserID      string         `json:"userId,omitempty"`
	UsageCount  int64          `json:"usageCount"`
	IsPublic    bool           `json:"isPublic"`
	Rating      *int           `json:"rating"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Owner       *Owner         `json:"owner,omitempty"`
}

// CalculateEstimatedTotal sums default prices, skipping optional items
// unless includeOptional is set.
func (t *Template) CalculateEstimatedTotal(includeOptional bool) float64 {
	var total float64
	for _, it := range t.Items {
		if includeOptional || !it.IsOptional {
			total += it.DefaultPrice
		}
	}
	return total
}

func (t *Template) RequiredItems() []TemplateItem {
	out := make([]TemplateItem, 0, len(t.Items))
	for _, it := range t.Items {
		if !it.IsOptional {
			out = append(out, it)
		}
	}
	return out
}

func (t *Template) OptionalItems() []TemplateItem {
	out := make([]TemplateItem, 0, len(t.Items))
	for _, it := range t.Items {
		if it.IsOptional {
			out = append(out, it)
		}
	}
	return out
}

// ItemAlternatives returns the alternatives of the first item named name,
// or an empty slice.
func (t *Template) ItemAlternatives(name string) []Alternative {
	for _, it := range t.Items {
		if it.Name == name {
			return it.Alternatives
		}
	}
	return []Alternative{}
}

// CanAccess reports whether userID may read the template.
func (t *Template) CanAccess(userID string) bool {
	return t.Type == TemplateTypeSystem || t.IsPublic || (userID != "" && t.UserID == userID)
}

// CanModify reports whether userID may update or delete the template.
// System templates are never modifiable through the API.
func (t *Template) CanModify(userID string) bool {
	return t.Type == TemplateTypeUser && userID != "" && t.UserID == userID
}

// Normalize applies the pre-save rules: system templates lose their owner,
// blank tags are dropped, defaults are filled in and the estimated total is
// recomputed from required items.  Items without an ID get one.
func (t *Template) Normalize() {
	if t.Type == TemplateTypeSystem {
		t.UserID = ""
	}
	if t.Icon == "" {
		t.Icon = DefaultTemplateIcon
	}
	if t.Metadata.Duration == "" {
		t.Metadata.Duration = DefaultDuration
	}
	if t.Metadata.Difficulty == "" {
		t.Metadata.Difficulty = DefaultDifficulty
	}
	if t.Metadata.Season == nil {
		t.Metadata.Season = []string{}
	}
	tags := make([]string, 0, len(t.Metadata.Tags))
	for _, tag := range t.Metadata.Tags {
		if strings.TrimSpace(tag) != "" {
			tags = append(tags, tag)
		}
	}
	t.Metadata.Tags = tags
	for i := range t.Items {
		if t.Items[i].ID == "" {
			t.Items[i].ID = uuid.NewString()
		}
		if t.Items[i].Alternatives == nil {
			t.Items[i].Alternatives = []Alternative{}
		}
	}
	t.Metadata.EstimatedTotal = t.CalculateEstimatedTotal(false)
}

// Validate checks the stored-record rules and returns a map from field path
// to message.  An empty map means the record is valid.
func (t *Template) Validate() map[string]string {
	errs := map[string]string{}
	name := strings.TrimSpace(t.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs["name"] = "Template name is required"
	case n < 3:
		errs["name"] = "Template name must be at least 3 characters"
	case n > 100:
		errs["name"] = "Template name cannot exceed 100 characters"
	}
	if utf8.RuneCountInString(t.Description) > 500 {
		errs["description"] = "Description cannot exceed 500 characters"
	}
	switch t.Type {
	case TemplateTypeSystem:
	case TemplateTypeUser:
		if t.UserID == "" {
			errs["userId"] = "User ID is required for user templates"
		}
	default:
		errs["type"] = "Template type must be either system or user"
	}
	if !IsTemplateCategory(t.Category) {
		errs["category"] = "Invalid category selection"
	}
	if utf8.RuneCountInString(t.Icon) > 50 {
		errs["icon"] = "Icon class cannot exceed 50 characters"
	}
	if len(t.Items) == 0 {
		errs["items"] = "Template must have at least one item"
	}
	for i, it := range t.Items {
		key := fmt.Sprintf("items[%d]", i)
		n := utf8.RuneCountInString(strings.TrimSpace(it.Name))
		if n == 0 {
			errs[key+".name"] = "Item name is required"
		} else if n > 100 {
			errs[key+".name"] = "Item name cannot exceed 100 characters"
		}
		if it.DefaultPrice < 0 {
			errs[key+".defaultPrice"] = "Invalid price value"
		}
		if utf8.RuneCountInString(it.Category) > 50 {
			errs[key+".category"] = "Item category cannot exceed 50 characters"
		}
		for j, alt := range it.Alternatives {
			akey := fmt.Sprintf("%s.alternatives[%d]", key, j)
			if strings.TrimSpace(alt.Name) == "" {
				errs[akey+".name"] = "Alternative name is required"
			} else if utf8.RuneCountInString(alt.Name) > 100 {
				errs[akey+".name"] = "Alternative name cannot exceed 100 characters"
			}
			if alt.Price < 0 {
				errs[akey+".price"] = "Invalid alternative price"
			}
		}
	}
	for _, s := range t.Metadata.Season {
		if !IsSeason(s) {
			errs["metadata.season"] = "Invalid season value"
			break
		}
	}
	if t.Metadata.Duration != "" && !IsDuration(t.Metadata.Duration) {
		errs["metadata.duration"] = "Invalid duration value"
	}
	if t.Metadata.Difficulty != "" && !IsDifficulty(t.Metadata.Difficulty) {
		errs["metadata.difficulty"] = "Invalid difficulty value"
	}
	if t.Metadata.EstimatedTotal < 0 {
		errs["metadata.estimatedTotal"] = "Estimated total cannot be negative"
	}
	for i, tag := range t.Metadata.Tags {
		if utf8.RuneCountInString(tag) > 30 {
			errs[fmt.Sprintf("metadata.tags[%d]", i)] = "Tag must be a string with maximum 30 characters"
		}
	}
	if t.UsageCount < 0 {
		errs["usageCount"] = "Usage count cannot be negative"
	}
	if t.Rating != nil && !ValidRating(*t.Rating) {
		errs["rating"] = RatingMessage
	}
	return errs
}

// RatingMessage is reported for any rating outside 1..5.
const RatingMessage = "Rating must be an integer between 1 and 5"

func ValidRating(r int) bool { return r >= 1 && r <= 5 }

// Season returns the season a month falls in.
func Season(m time.Month) string {
	switch m {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "fall"
	default:
		return "winter"
	}
}
