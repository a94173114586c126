// Package checklisttest holds helpers shared by package tests: a migrated
// SQLite database and request builders for the HTTP layer.
package checklisttest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checklistpro/internal/database"
)

// OpenDB returns a migrated SQLite database in a temporary directory.  It is
// closed when the test ends.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, database.DriverSQLite))
	t.Cleanup(func() { db.Close() })
	return db
}

// ========== REQUESTS ==========

// JSON builds a request with a JSON body.  body may be a string or any
// value that encodes to JSON; nil sends no body.
func JSON(method, path string, body any) *http.Request {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		bs, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		r = strings.NewReader(string(bs))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithToken adds a bearer token.
func WithToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %v", token))
	return req
}

// Form builds a urlencoded form POST.
func Form(path string, values map[string]string) *http.Request {
	parts := make([]string, 0, len(values))
	for k, v := range values {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(strings.Join(parts, "&")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Call serves req and returns the recorder.
func Call(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorded body into a generic map.
func Decode(t testing.TB, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
