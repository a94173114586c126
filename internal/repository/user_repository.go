package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/checklistpro/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the signup fields; PasswordHash is already bcrypt-hashed.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Name         string
	Phone        string
}

const userColumns = "id,user_id,username,email,password_hash,name,phone,created_at"

// Create inserts a user with a fresh public user_id and returns the record.
func (r *UserRepo) Create(ctx context.Context, in NewUser) (*model.User, error) {
	u := &model.User{
		UserID:       uuid.NewString(),
		Username:     model.NormalizeUsername(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: in.PasswordHash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		CreatedAt:    time.Now().UTC(),
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (user_id, username, email, password_hash, name, phone, created_at) VALUES (?,?,?,?,?,?,?)",
		u.UserID, u.Username, u.Email, u.PasswordHash, u.Name, u.Phone, toMillis(u.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	u.ID = uint64(id)
	return u, nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = model.NormalizeUsername(username)
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
}

// GetByUserID fetches a user by public id.
func (r *UserRepo) GetByUserID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE user_id=? LIMIT 1", userID)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}
