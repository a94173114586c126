package repository

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"github.com/iliyamo/checklistpro/internal/model"
)

// Sort orders accepted by TemplateQuery.
const (
	SortPopular = "popular"
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortRating  = "rating"
	SortName    = "name"
)

var templateOrder = map[string]string{
	SortPopular: "t.usage_count DESC, t.rating DESC, t.created_at DESC, t.id DESC",
	SortNewest:  "t.created_at DESC, t.id DESC",
	SortOldest:  "t.created_at ASC, t.id ASC",
	SortRating:  "t.rating DESC, t.usage_count DESC, t.id DESC",
	SortName:    "t.name ASC, t.id ASC",
}

// TemplateQuery defines filters & pagination for listing templates.  Only
// templates visible to ViewerID are ever returned.
type TemplateQuery struct {
	ViewerID string
	Category string
	Type     string
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// List returns one page of templates and the total number of matches.
func (r *TemplateRepo) List(ctx context.Context, q TemplateQuery) ([]model.Template, int64, error) {
	where := []string{accessCond}
	args := []any{q.ViewerID}

	if q.Category != "" {
		where = append(where, "t.category = ?")
		args = append(args, q.Category)
	}
	if q.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, q.Type)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		// search_text is folded with the same strings.ToLower on write
		where = append(where, `t.search_text LIKE ? ESCAPE '!'`)
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates t WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := templateOrder[q.Sort]
	if !ok {
		order = templateOrder[SortPopular]
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	dataSQL := `SELECT ` + templateColumns + templateFrom + ` WHERE ` + cond + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanTemplates(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CategoryStats groups the templates visible to viewerID by category,
// largest group first.  AvgRating is rounded to one decimal.
func (r *TemplateRepo) CategoryStats(ctx context.Context, viewerID string) ([]model.TemplateCategoryStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.category, COUNT(*), AVG(t.rating), COALESCE(SUM(t.usage_count), 0)
		 FROM templates t
		 WHERE `+accessCond+`
		 GROUP BY t.category
		 ORDER BY COUNT(*) DESC, t.category ASC`, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TemplateCategoryStats{}
	for rows.Next() {
		var (
			s   model.TemplateCategoryStats
			avg sql.NullFloat64
		)
		if err := rows.Scan(&s.Category, &s.Count, &avg, &s.TotalUsage); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := math.Round(avg.Float64*10) / 10
			s.AvgRating = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Seasonal returns up to limit visible templates tagged with season or
// "all", most used first.
func (r *TemplateRepo) Seasonal(ctx context.Context, viewerID, season string, limit int) ([]model.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+templateFrom+`
		 WHERE `+accessCond+`
		   AND EXISTS (SELECT 1 FROM template_seasons ts WHERE ts.template_id = t.id AND ts.season IN (?, 'all'))
		 ORDER BY t.usage_count DESC, t.rating DESC, t.id DESC
		 LIMIT ?`, viewerID, season, limit)
	if err != nil {
		return nil, err
	}
	return scanTemplates(rows)
}

// Popular returns up to limit visible templates not listed in exclude,
// most used first.
func (r *TemplateRepo) Popular(ctx context.Context, viewerID string, exclude []uint64, limit int) ([]model.Template, error) {
	q := `SELECT ` + templateColumns + templateFrom + ` WHERE ` + accessCond
	args := []any{viewerID}
	if len(exclude) > 0 {
		q += ` AND t.id NOT IN (?` + strings.Repeat(", ?", len(exclude)-1) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	q += ` ORDER BY t.usage_count DESC, t.rating DESC, t.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanTemplates(rows)
}
