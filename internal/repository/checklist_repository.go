package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/checklistpro/internal/model"
)

// ChecklistRepo provides access to the checklists table.  Items are stored
// as a JSON array in the items column.
type ChecklistRepo struct {
	db *sql.DB
}

func NewChecklistRepo(db *sql.DB) *ChecklistRepo {
	return &ChecklistRepo{db: db}
}

const checklistColumns = `id, user_id, title, items, category_id, template_id, created_at, updated_at`

// Create inserts c and sets its ID and timestamps.
func (r *ChecklistRepo) Create(ctx context.Context, c *model.Checklist) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO checklists (user_id, title, items, category_id, template_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Title, string(items), nullableID(c.CategoryID), nullableID(c.TemplateID), toMillis(now), toMillis(now))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// GetByID returns ErrChecklistNotFound when no row matches.
func (r *ChecklistRepo) GetByID(ctx context.Context, id uint64) (*model.Checklist, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+checklistColumns+` FROM checklists WHERE id = ?`, id)
	c, err := scanChecklist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChecklistNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByOwner returns the user's checklists, newest first.  When
// categoryID is non-nil only checklists in that category are returned.
func (r *ChecklistRepo) ListByOwner(ctx context.Context, userID string, categoryID *uint64) ([]model.Checklist, error) {
	q := `SELECT ` + checklistColumns + ` FROM checklists WHERE user_id = ?`
	args := []any{userID}
	if categoryID != nil {
		q += ` AND category_id = ?`
		args = append(args, *categoryID)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Checklist{}
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update writes title, items and category of an existing checklist.
func (r *ChecklistRepo) Update(ctx context.Context, c *model.Checklist) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE checklists SET title = ?, items = ?, category_id = ?, updated_at = ? WHERE id = ?`,
		c.Title, string(items), nullableID(c.CategoryID), toMillis(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrChecklistNotFound)
}

// SetTemplateID links a checklist to the template it was converted into.
func (r *ChecklistRepo) SetTemplateID(ctx context.Context, id, templateID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checklists SET template_id = ?, updated_at = ? WHERE id = ?`,
		templateID, toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrChecklistNotFound)
}

// Delete removes an owned checklist.
func (r *ChecklistRepo) Delete(ctx context.Context, id uint64, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM checklists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrChecklistNotFound)
}

// CountByTemplate reports how many checklists reference a template.
func (r *ChecklistRepo) CountByTemplate(ctx context.Context, templateID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checklists WHERE template_id = ?`, templateID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChecklist(s rowScanner) (*model.Checklist, error) {
	var (
		c                 model.Checklist
		items             []byte
		categoryID, tplID sql.NullInt64
		created, updated  int64
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Title, &items, &categoryID, &tplID, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = []model.ChecklistItem{}
	}
	if categoryID.Valid {
		v := uint64(categoryID.Int64)
		c.CategoryID = &v
	}
	if tplID.Valid {
		v := uint64(tplID.Int64)
		c.TemplateID = &v
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &c, nil
}
