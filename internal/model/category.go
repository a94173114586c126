package model

import "time"

// Category is a user-owned grouping of checklists.
type Category struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// TemplateCategoryStats is one row of the template category summary.
// AvgRating is nil when no template in the category has been rated.
type TemplateCategoryStats struct {
	Category   string   `json:"name"`
	Count      int64    `json:"count"`
	AvgRating  *float64 `json:"avgRating"`
	TotalUsage int64    `json:"totalUsage"`
}
