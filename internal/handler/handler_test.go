package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/checklisttest"
	"github.com/iliyamo/checklistpro/internal/service"
)

func formContext(values url.Values) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/checklists", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestStatusOf(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:      http.StatusUnprocessableEntity,
		apperr.KindInvalidInput:    http.StatusBadRequest,
		apperr.KindMalformedID:     http.StatusBadRequest,
		apperr.KindNotFound:        http.StatusNotFound,
		apperr.KindForbidden:       http.StatusForbidden,
		apperr.KindUnauthenticated: http.StatusUnauthorized,
		apperr.KindConflict:        http.StatusConflict,
		apperr.KindInternal:        http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, statusOf(k), k)
	}
}

func TestBindChecklistForm(t *testing.T) {
	c := formContext(url.Values{
		"title":           {"Groceries"},
		"categoryId":      {"7"},
		"items[1][name]":  {"Bread"},
		"items[0][name]":  {"Milk"},
		"items[0][price]": {"3.99"},
		"items[1][price]": {""},
		"unrelated":       {"x"},
	})
	in, err := bindChecklist(c)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", in.Title)
	assert.Equal(t, "7", in.CategoryID)
	assert.Equal(t, []service.ChecklistItemInput{
		{Name: "Milk", Price: 3.99},
		{Name: "Bread", Price: 0},
	}, in.Items)
}

func TestBindChecklistFormBadPrice(t *testing.T) {
	c := formContext(url.Values{
		"title":           {"Groceries"},
		"items[0][name]":  {"Milk"},
		"items[0][price]": {"cheap"},
	})
	_, err := bindChecklist(c)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, map[string]string{"items[0].price": "Invalid price value"}, e.Fields)
}

func TestBindChecklistJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/checklists",
		strings.NewReader(`{"title":"Trip","items":[{"name":"Tent","price":80}],"categoryId":null}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	in, err := bindChecklist(echo.New().NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "Trip", in.Title)
	assert.Nil(t, in.CategoryID)
	assert.Equal(t, []service.ChecklistItemInput{{Name: "Tent", Price: 80}}, in.Items)

	req = httptest.NewRequest(http.MethodPost, "/checklists", strings.NewReader(`{"title":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	_, err = bindChecklist(echo.New().NewContext(req, httptest.NewRecorder()))
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindInvalidInput, e.Kind)
}

func TestFailHidesInternalCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	require.NoError(t, fail(c, assertErr("db exploded")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Server error"}`, rec.Body.String())
}

func TestDoneRedirectsBrowsers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/categories", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, done(echo.New().NewContext(req, rec), http.StatusCreated, nil, "ok", "/dashboard"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))

	req = httptest.NewRequest(http.MethodPost, "/categories", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	require.NoError(t, done(echo.New().NewContext(req, rec), http.StatusCreated, map[string]int{"id": 1}, "Created", "/dashboard"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":1},"message":"Created"}`, rec.Body.String())
}

func TestFailPageRedirectsBrowsers(t *testing.T) {
	rec := httptest.NewRecorder()
	c := formContext(url.Values{"title": {""}})
	c.Response().Writer = rec
	require.NoError(t, failPage(c, apperr.Validation(service.ValidationFailedError, map[string]string{"title": "title is required"}), "/dashboard"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard?error=Validation+failed", rec.Header().Get(echo.HeaderLocation))

	// internal causes stay out of the redirect too
	rec = httptest.NewRecorder()
	c = formContext(nil)
	c.Response().Writer = rec
	require.NoError(t, failPage(c, assertErr("db exploded"), "/login"))
	assert.Equal(t, "/login?error=Server+error", rec.Header().Get(echo.HeaderLocation))

	req := httptest.NewRequest(http.MethodPost, "/checklists", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	require.NoError(t, failPage(echo.New().NewContext(req, rec), apperr.NotFound("Checklist not found"), "/dashboard"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Checklist not found"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	db := checklisttest.OpenDB(t)
	check := func(rdb *redis.Client) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
		require.NoError(t, Health(db, rdb)(c))
		return rec
	}

	rec := check(nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up","redis":"disabled"}`, rec.Body.String())

	// nothing listens on port 1
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	rec = check(rdb)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","database":"up","redis":"down"}`, rec.Body.String())

	require.NoError(t, db.Close())
	rec = check(nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"down","database":"down","redis":"disabled"}`, rec.Body.String())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
