package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/checklistpro/internal/model"
)

// TemplateRepo provides access to the templates table and its query side
// tables.  template_tags and template_seasons mirror the JSON columns and
// are rewritten in the same transaction as the template row.
type TemplateRepo struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

const templateColumns = `t.id, t.name, t.description, t.type, t.category, t.icon, t.items, t.seasons,
	t.duration, t.difficulty, t.estimated_total, t.tags, t.user_id, t.usage_count, t.is_public, t.rating,
	t.created_at, t.updated_at, u.name, u.username`

const templateFrom = ` FROM templates t LEFT JOIN users u ON u.user_id = t.user_id`

// accessCond restricts to templates the bound user may read.
const accessCond = `(t.type = 'system' OR t.is_public = 1 OR t.user_id = ?)`

// Create inserts t and sets its ID and timestamps.  The caller is expected
// to have normalized and validated t.
func (r *TemplateRepo) Create(ctx context.Context, t *model.Template) error {
	items, seasons, tags, err := encodeTemplate(t)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO templates (name, description, type, category, icon, items, seasons, duration, difficulty,
			estimated_total, tags, user_id, usage_count, is_public, rating, created_at, updated_at, search_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Description, t.Type, t.Category, t.Icon, items, seasons, t.Metadata.Duration, t.Metadata.Difficulty,
		t.Metadata.EstimatedTotal, tags, nullableString(t.UserID), t.UsageCount, t.IsPublic, nullableInt(t.Rating),
		toMillis(t.CreatedAt), toMillis(t.UpdatedAt), searchText(t.Name, t.Description, t.Metadata.Tags))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := syncSideTables(ctx, tx, uint64(id), t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Update overwrites the mutable columns of an existing template.  Type,
// owner, usage count and creation time are never changed here.
func (r *TemplateRepo) Update(ctx context.Context, t *model.Template) error {
	items, seasons, tags, err := encodeTemplate(t)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE templates SET name = ?, description = ?, category = ?, icon = ?, items = ?, seasons = ?,
			duration = ?, difficulty = ?, estimated_total = ?, tags = ?, is_public = ?, rating = ?, updated_at = ?,
			search_text = ?
		 WHERE id = ?`,
		t.Name, t.Description, t.Category, t.Icon, items, seasons, t.Metadata.Duration, t.Metadata.Difficulty,
		t.Metadata.EstimatedTotal, tags, t.IsPublic, nullableInt(t.Rating), toMillis(t.UpdatedAt),
		searchText(t.Name, t.Description, t.Metadata.Tags), t.ID)
	if err != nil {
		return err
	}
	if err := expectOne(res, ErrTemplateNotFound); err != nil {
		return err
	}
	if err := syncSideTables(ctx, tx, t.ID, t); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the template and its side rows.  Checklists derived from
// it keep their template_id.
func (r *TemplateRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM template_tags WHERE template_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM template_seasons WHERE template_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectOne(res, ErrTemplateNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID returns ErrTemplateNotFound when no row matches.  Owner is set
// for user templates whose owner still exists.
func (r *TemplateRepo) GetByID(ctx context.Context, id uint64) (*model.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+templateFrom+` WHERE t.id = ?`, id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}

// IncrementUsage adds one to usage_count in a single statement so
// concurrent derivations never lose an update.
func (r *TemplateRepo) IncrementUsage(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE templates SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrTemplateNotFound)
}

// SetRating overwrites the single stored rating.
func (r *TemplateRepo) SetRating(ctx context.Context, id uint64, rating int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE templates SET rating = ?, updated_at = ? WHERE id = ?`, rating, toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrTemplateNotFound)
}

// CountByType counts templates of the given type.
func (r *TemplateRepo) CountByType(ctx context.Context, typ string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates WHERE type = ?`, typ).Scan(&n)
	return n, err
}

// maxSearchText bounds search_text in runes to fit the MySQL column.
const maxSearchText = 4000

// searchText is the lower-cased haystack matched by List's search.  Case
// folding happens here rather than in SQL because SQLite's LOWER only
// folds ASCII.
func searchText(name, description string, tags []string) string {
	parts := append([]string{name, description}, tags...)
	s := strings.ToLower(strings.Join(parts, "\n"))
	if r := []rune(s); len(r) > maxSearchText {
		s = string(r[:maxSearchText])
	}
	return s
}

// RebuildSearchText fills search_text for rows written before the column
// existed and reports how many it updated.
func (r *TemplateRepo) RebuildSearchText(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, tags FROM templates WHERE search_text = ''`)
	if err != nil {
		return 0, err
	}
	type pending struct {
		id   uint64
		text string
	}
	var todo []pending
	for rows.Next() {
		var (
			id         uint64
			name, desc string
			tagsJSON   []byte
			tags       []string
		)
		if err := rows.Scan(&id, &name, &desc, &tagsJSON); err != nil {
			rows.Close()
			return 0, err
		}
		if err := json.Unmarshal(tagsJSON, &tags); err != nil {
			rows.Close()
			return 0, err
		}
		todo = append(todo, pending{id: id, text: searchText(name, desc, tags)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, p := range todo {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE templates SET search_text = ? WHERE id = ?`, p.text, p.id); err != nil {
			return 0, err
		}
	}
	return len(todo), nil
}

func syncSideTables(ctx context.Context, tx *sql.Tx, id uint64, t *model.Template) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM template_tags WHERE template_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM template_seasons WHERE template_id = ?`, id); err != nil {
		return err
	}
	for _, tag := range t.Metadata.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_tags (template_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return err
		}
	}
	for _, s := range t.Metadata.Season {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_seasons (template_id, season) VALUES (?, ?)`, id, s); err != nil {
			return err
		}
	}
	return nil
}

func encodeTemplate(t *model.Template) (items, seasons, tags string, err error) {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	if items, err = enc(t.Items); err != nil {
		return
	}
	season := t.Metadata.Season
	if season == nil {
		season = []string{}
	}
	if seasons, err = enc(season); err != nil {
		return
	}
	tagList := t.Metadata.Tags
	if tagList == nil {
		tagList = []string{}
	}
	tags, err = enc(tagList)
	return
}

func scanTemplate(s rowScanner) (*model.Template, error) {
	var (
		t                          model.Template
		items, seasons, tags       []byte
		userID, ownerName, ownerUN sql.NullString
		rating                     sql.NullInt64
		created, updated           int64
	)
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.Type, &t.Category, &t.Icon, &items, &seasons,
		&t.Metadata.Duration, &t.Metadata.Difficulty, &t.Metadata.EstimatedTotal, &tags, &userID,
		&t.UsageCount, &t.IsPublic, &rating, &created, &updated, &ownerName, &ownerUN)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &t.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seasons, &t.Metadata.Season); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &t.Metadata.Tags); err != nil {
		return nil, err
	}
	if t.Items == nil {
		t.Items = []model.TemplateItem{}
	}
	for i := range t.Items {
		if t.Items[i].Alternatives == nil {
			t.Items[i].Alternatives = []model.Alternative{}
		}
	}
	if userID.Valid {
		t.UserID = userID.String
		if ownerUN.Valid {
			t.Owner = &model.Owner{Name: ownerName.String, Username: ownerUN.String}
		}
	}
	if rating.Valid {
		v := int(rating.Int64)
		t.Rating = &v
	}
	t.CreatedAt, t.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &t, nil
}

func scanTemplates(rows *sql.Rows) ([]model.Template, error) {
	defer rows.Close()
	out := []model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
