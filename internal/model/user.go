package model

import (
	"strings"
	"time"
)

// User is a row of the `users` table.  ID is the internal key; UserID is
// the public uuid carried in tokens and in the user_id column of every
// owned record (categories, checklists, templates).
type User struct {
	ID           uint64    // users.id
	UserID       string    // users.user_id
	Username     string    // users.username, lowercase
	Email        string    // users.email
	PasswordHash string    // users.password_hash (bcrypt)
	Name         string    // users.name
	Phone        string    // users.phone, ten digits
	CreatedAt    time.Time // users.created_at
}

// NormalizeUsername is applied before every username lookup and insert so
// "Alice" and "alice" are one account.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PublicUser is the part of a user that API responses may show.
type PublicUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{UserID: u.UserID, Username: u.Username, Name: u.Name, Email: u.Email}
}

// Identity is the requester this user resolves to.
func (u *User) Identity() Identity {
	return Identity{UserID: u.UserID, Username: u.Username}
}

// RefreshToken is a row of `refresh_tokens`.  Only the SHA-256 hash of the
// token is stored; revocation sets RevokedAt.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
