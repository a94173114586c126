package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/checklistpro/internal/model"
)

// TokenRepo stores refresh tokens by the sha256 of their raw value.  The
// raw token only ever lives in the client.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) Store(ctx context.Context, userID, hash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)`,
		userID, hash, toMillis(exp), toMillis(time.Now()))
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// Consume revokes an active token and returns its row.  The revoke and the
// activity check are one conditional UPDATE, so when two requests present
// the same token only one of them gets it back; the other sees
// ErrTokenInvalid, as do unknown, revoked and expired tokens.
func (r *TokenRepo) Consume(ctx context.Context, hash string) (*model.RefreshToken, error) {
	now := toMillis(time.Now())
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=?
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ?`,
		now, hash, now)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, ErrTokenInvalid
	}

	var (
		t                         model.RefreshToken
		expires, revoked, created int64
	)
	err = r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		 FROM refresh_tokens WHERE token_hash=?`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &revoked, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	rv := fromMillis(revoked)
	t.RevokedAt = &rv
	return &t, nil
}

// RevokeUser revokes every active token of userID and reports how many.
func (r *TokenRepo) RevokeUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL`,
		toMillis(time.Now()), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpired deletes rows that expired before cutoff, revoked or not.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
