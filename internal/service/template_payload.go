package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/checklistpro/internal/model"
)

// Number is a loosely typed numeric field.  Clients send prices as JSON
// numbers, numeric strings or null; anything else is kept as present but
// invalid so the validator can report it.
type Number struct {
	Value   float64
	Present bool // field was sent and was not null
	Valid   bool // Value holds a finite number
}

func Num(v float64) Number { return Number{Value: v, Present: true, Valid: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	n.Present = true
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		n.Value, n.Valid = t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			n.Value, n.Valid = f, true
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Present {
		return []byte("null"), nil
	}
	if !n.Valid {
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(n.Value)
}

// orZero mirrors the lenient price parse: missing or unparsable is zero.
func (n Number) orZero() float64 {
	if n.Valid {
		return n.Value
	}
	return 0
}

// AlternativePayload accepts both {name, price} objects and bare strings.
// A bare string becomes {name: s, price: 0} and is flagged as Bare.
type AlternativePayload struct {
	Name  string `json:"name"`
	Price Number `json:"price"`
	Bare  bool   `json:"-"`
}

func (a *AlternativePayload) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AlternativePayload{Name: s, Bare: true}
		return nil
	}
	type plain AlternativePayload
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = AlternativePayload(p)
	a.Bare = false
	return nil
}

type ItemPayload struct {
	ID           string               `json:"id,omitempty"`
	Name         string               `json:"name"`
	DefaultPrice Number               `json:"defaultPrice"`
	Category     string               `json:"category"`
	IsOptional   any                  `json:"isOptional"`
	Alternatives []AlternativePayload `json:"alternatives"`
}

type MetadataPayload struct {
	Season     []any  `json:"season"`
	Duration   string `json:"duration"`
	Difficulty string `json:"difficulty"`
	Tags       []any  `json:"tags"`
}

// TemplatePayload is the client-supplied body of template create and
// update requests.
type TemplatePayload struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Type        string           `json:"type"`
	Icon        string           `json:"icon"`
	IsPublic    any              `json:"isPublic"`
	Items       []ItemPayload    `json:"items"`
	Metadata    *MetadataPayload `json:"metadata"`
}

// BareAlternatives counts alternatives that arrived as plain strings.
func (p TemplatePayload) BareAlternatives() int {
	n := 0
	for _, it := range p.Items {
		for _, alt := range it.Alternatives {
			if alt.Bare {
				n++
			}
		}
	}
	return n
}

// ValidateTemplatePayload checks every rule and reports all violations
// keyed by field path.  An empty map means the payload is acceptable.
func ValidateTemplatePayload(p TemplatePayload) map[string]string {
	errs := map[string]string{}

	name := strings.TrimSpace(p.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs["name"] = "Template name is required"
	case n < 3:
		errs["name"] = "Template name must be at least 3 characters"
	case n > 100:
		errs["name"] = "Template name cannot exceed 100 characters"
	}

	if !model.IsTemplateCategory(p.Category) {
		errs["category"] = "Invalid category selection"
	}

	if utf8.RuneCountInString(p.Description) > 500 {
		errs["description"] = "Description cannot exceed 500 characters"
	}

	switch {
	case len(p.Items) == 0:
		errs["items"] = "Template must have at least one item"
	case len(p.Items) > 100:
		errs["items"] = "Maximum 100 items allowed"
	default:
		for i, it := range p.Items {
			key := fmt.Sprintf("items[%d]", i)
			switch n := utf8.RuneCountInString(strings.TrimSpace(it.Name)); {
			case n == 0:
				errs[key+".name"] = "Item name is required"
			case n > 100:
				errs[key+".name"] = "Item name cannot exceed 100 characters"
			}
			if it.DefaultPrice.Present && (!it.DefaultPrice.Valid || it.DefaultPrice.Value < 0) {
				errs[key+".defaultPrice"] = "Invalid price value"
			}
			for j, alt := range it.Alternatives {
				akey := fmt.Sprintf("%s.alternatives[%d]", key, j)
				if strings.TrimSpace(alt.Name) == "" {
					errs[akey+".name"] = "Alternative name is required"
				}
				if alt.Price.Present && (!alt.Price.Valid || alt.Price.Value < 0) {
					errs[akey+".price"] = "Invalid alternative price"
				}
			}
		}
	}

	validateMetadata(p.Metadata, errs)
	return errs
}

func validateMetadata(m *MetadataPayload, errs map[string]string) {
	if m == nil {
		return
	}
	for _, v := range m.Season {
		if s, ok := v.(string); !ok || !model.IsSeason(s) {
			errs["metadata.season"] = "Invalid season value"
			break
		}
	}
	if m.Duration != "" && !model.IsDuration(m.Duration) {
		errs["metadata.duration"] = "Invalid duration value"
	}
	if m.Difficulty != "" && !model.IsDifficulty(m.Difficulty) {
		errs["metadata.difficulty"] = "Invalid difficulty value"
	}
	for i, v := range m.Tags {
		if s, ok := v.(string); !ok || utf8.RuneCountInString(s) > 30 {
			errs[fmt.Sprintf("metadata.tags[%d]", i)] = "Tag must be a string with maximum 30 characters"
		}
	}
}

// SanitizeTemplatePayload normalizes a validated payload.  Applying it to
// its own output returns the same value.
func SanitizeTemplatePayload(p TemplatePayload) TemplatePayload {
	out := TemplatePayload{
		Name:        truncate(strings.TrimSpace(p.Name), 100),
		Description: strings.TrimSpace(p.Description),
		Category:    p.Category,
		Type:        model.TemplateTypeUser,
		Icon:        strings.TrimSpace(p.Icon),
		IsPublic:    truthy(p.IsPublic),
		Items:       make([]ItemPayload, 0, len(p.Items)),
		Metadata:    sanitizeMetadata(p.Metadata),
	}
	if out.Icon == "" {
		out.Icon = model.DefaultTemplateIcon
	}
	for _, it := range p.Items {
		item := ItemPayload{
			ID:           strings.TrimSpace(it.ID),
			Name:         strings.TrimSpace(it.Name),
			DefaultPrice: Num(it.DefaultPrice.orZero()),
			Category:     strings.TrimSpace(it.Category),
			IsOptional:   truthy(it.IsOptional),
			Alternatives: make([]AlternativePayload, 0, len(it.Alternatives)),
		}
		for _, alt := range it.Alternatives {
			item.Alternatives = append(item.Alternatives, AlternativePayload{
				Name:  strings.TrimSpace(alt.Name),
				Price: Num(alt.Price.orZero()),
			})
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// sanitizeMetadata copies through the recognised sub-fields only.  Tags
// are trimmed, lower-cased and blank entries dropped.
func sanitizeMetadata(m *MetadataPayload) *MetadataPayload {
	out := &MetadataPayload{}
	if m == nil {
		return out
	}
	if len(m.Season) > 0 {
		out.Season = append([]any{}, m.Season...)
	}
	out.Duration = m.Duration
	out.Difficulty = m.Difficulty
	if m.Tags != nil {
		out.Tags = []any{}
		for _, v := range m.Tags {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				out.Tags = append(out.Tags, s)
			}
		}
	}
	return out
}

// Template converts a sanitized payload into a record.  The caller sets
// the owner and calls Normalize before persisting.
func (p TemplatePayload) Template() *model.Template {
	t := &model.Template{
		Name:        p.Name,
		Description: p.Description,
		Type:        model.TemplateTypeUser,
		Category:    p.Category,
		Icon:        p.Icon,
		IsPublic:    truthy(p.IsPublic),
		Items:       make([]model.TemplateItem, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		item := model.TemplateItem{
			ID:           it.ID,
			Name:         it.Name,
			DefaultPrice: it.DefaultPrice.orZero(),
			Category:     it.Category,
			IsOptional:   truthy(it.IsOptional),
			Alternatives: make([]model.Alternative, 0, len(it.Alternatives)),
		}
		for _, alt := range it.Alternatives {
			item.Alternatives = append(item.Alternatives, model.Alternative{Name: alt.Name, Price: alt.Price.orZero()})
		}
		t.Items = append(t.Items, item)
	}
	if m := p.Metadata; m != nil {
		t.Metadata.Duration = m.Duration
		t.Metadata.Difficulty = m.Difficulty
		for _, v := range m.Season {
			if s, ok := v.(string); ok {
				t.Metadata.Season = append(t.Metadata.Season, s)
			}
		}
		for _, v := range m.Tags {
			if s, ok := v.(string); ok {
				t.Metadata.Tags = append(t.Metadata.Tags, s)
			}
		}
	}
	return t
}

// truthy coerces a loosely typed flag the way form and JSON clients expect:
// false, 0, "", "false", "0", "off" and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0", "off", "no":
			return false
		}
		return true
	default:
		return true
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
