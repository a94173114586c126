package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/checklistpro/internal/model"
)

// CategoryRepo provides access to the categories table.  Every query is
// scoped to an owner so one user can never see another user's categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// Create inserts c and sets its ID and CreatedAt.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, created_at) VALUES (?, ?, ?)`,
		c.UserID, c.Name, toMillis(c.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByIDAndOwner returns ErrCategoryNotFound when the category does not
// exist or belongs to someone else.
func (r *CategoryRepo) GetByIDAndOwner(ctx context.Context, id uint64, userID string) (*model.Category, error) {
	var (
		c       model.Category
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&c.ID, &c.UserID, &c.Name, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// ListByOwner returns the user's categories ordered by name.
func (r *CategoryRepo) ListByOwner(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE user_id = ? ORDER BY name ASC, id ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var (
			c       model.Category
			created int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rename updates the name of an owned category.
func (r *CategoryRepo) Rename(ctx context.Context, id uint64, userID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrCategoryNotFound)
}

// Delete removes an owned category.  Checklists filed under it keep a
// dangling category reference, which readers treat as uncategorised.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrCategoryNotFound)
}

// expectOne maps a zero RowsAffected to notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
