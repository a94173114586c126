package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxItemPrice bounds a checklist item price.
const MaxItemPrice = 9999999

// ChecklistItem is a concrete named price.
type ChecklistItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Checklist mirrors the `checklists` table.  CategoryID and TemplateID are
// weak references and may point at rows that no longer exist.
type Checklist struct {
	ID         uint64          `json:"id"`
	UserID     string          `json:"userId"`
	Title      string          `json:"title"`
	Items      []ChecklistItem `json:"items"`
	CategoryID *uint64         `json:"category"`
	TemplateID *uint64         `json:"templateId"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Total is the sum of item prices.
func (c *Checklist) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Price
	}
	return sum
}

// Validate returns field errors for the stored-record rules.
func (c *Checklist) Validate() map[string]string {
	errs := map[string]string{}
	switch n := utf8.RuneCountInString(strings.TrimSpace(c.Title)); {
	case n == 0:
		errs["title"] = "Checklist title is required"
	case n > 200:
		errs["title"] = "Checklist title cannot exceed 200 characters"
	}
	if c.UserID == "" {
		errs["userId"] = "User ID is required"
	}
	if len(c.Items) == 0 {
		errs["items"] = "Checklist must have at least one item"
	}
	for i, it := range c.Items {
		key := fmt.Sprintf("items[%d]", i)
		switch n := utf8.RuneCountInString(strings.TrimSpace(it.Name)); {
		case n == 0:
			errs[key+".name"] = "Item name is required"
		case n > 200:
			errs[key+".name"] = "Item name cannot exceed 200 characters"
		}
		if it.Price < 0 || it.Price > MaxItemPrice {
			errs[key+".price"] = "Invalid price value"
		}
	}
	return errs
}
