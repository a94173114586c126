// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to
// distinguish between different failure scenarios without looking at
// driver errors.  For example, ErrTemplateNotFound is turned into a 404
// while ErrDuplicate signals a uniqueness violation.
package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrChecklistNotFound = errors.New("checklist not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrTokenInvalid      = errors.New("refresh token invalid")

	// ErrDuplicate is returned when an insert violates a unique key
	// (username, email, token hash).
	ErrDuplicate = errors.New("duplicate")
)

// isDuplicate recognises unique-key violations from both drivers.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Timestamps are stored as unix milliseconds so the same statements run on
// MySQL and SQLite.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullableID(p *uint64) any {
	if p == nil {
		return nil
	}
	return *p
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
