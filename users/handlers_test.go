package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/userdir-go/apperror"
	"github.com/user/userdir-go/config"
)

func newTestHandlers(pool *fakePool) *UserHandlers {
	service := NewUserService(pool, &config.UsersConfig{RowLimit: 500})
	return NewUserHandlers(service)
}

func doList(t *testing.T, h *UserHandlers, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.HandleListUsers()(rec, req)
	return rec
}

func TestHandleListUsers_NoParamsReturnsAllRows(t *testing.T) {
	pool := newFakePool([][]any{
		{1, "alice", "alice@example.com"},
		{2, "bob", "bob@example.com"},
	})
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []User{
		{ID: 1, Username: "alice", Email: "alice@example.com"},
		{ID: 2, Username: "bob", Email: "bob@example.com"},
	}, got)

	// Unfiltered scan, fixed column list, bound row cap.
	assert.Equal(t, "SELECT id, username, email FROM users ORDER BY id ASC LIMIT $1", pool.conn.lastSQL)
	assert.Equal(t, []any{500}, pool.conn.lastArgs)
	assert.Equal(t, 1, pool.conn.releases)
}

func TestHandleListUsers_EmptyTableSerializesAsEmptyArray(t *testing.T) {
	pool := newFakePool(nil)
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleListUsers_ExactNameFilter(t *testing.T) {
	pool := newFakePool([][]any{{1, "alice", "alice@example.com"}})
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users?name=alice")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, pool.conn.lastSQL, "username = $1")
	assert.Equal(t, []any{"alice", 500}, pool.conn.lastArgs)
}

func TestHandleListUsers_SearchFilterIsCaseInsensitiveSubstring(t *testing.T) {
	pool := newFakePool([][]any{{1, "Alice", "alice@example.com"}})
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users?search=ALI")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, pool.conn.lastSQL, "LOWER(username) LIKE $1")
	assert.Equal(t, []any{"%ali%", 500}, pool.conn.lastArgs)
}

func TestHandleListUsers_NonIntegerIDIs400NamingTheField(t *testing.T) {
	pool := newFakePool(nil)
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users?id=abc")

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperror.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "id must be an integer", body.Error)

	// Validation short-circuits before any connection is acquired.
	assert.Equal(t, 0, pool.acquires)
}

func TestHandleListUsers_StoreFailureIs500WithGenericBody(t *testing.T) {
	driverErr := errors.New(`connect to "10.0.0.5:5432": connection refused`)
	pool := &fakePool{conn: &fakeConn{queryErr: driverErr}}
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users")

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body apperror.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to list users", body.Error)
	// Nothing from the driver leaks into the response.
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.NotContains(t, rec.Body.String(), "connection refused")

	// The connection is released on the failure path too.
	assert.Equal(t, 1, pool.conn.releases)
}

func TestHandleListUsers_InjectionAttemptIsJustALiteral(t *testing.T) {
	pool := newFakePool(nil)
	h := newTestHandlers(pool)

	rec := doList(t, h, "/users?name="+`alice%27%3B+DROP+TABLE+users%3B+--`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	// The hostile value reached the store only as a bound parameter.
	assert.NotContains(t, pool.conn.lastSQL, "DROP TABLE")
	assert.NotContains(t, pool.conn.lastSQL, "'")
	require.Len(t, pool.conn.lastArgs, 2)
	assert.Equal(t, "alice'; DROP TABLE users; --", pool.conn.lastArgs[0])
	assert.Equal(t, 1, pool.conn.releases)
}

func TestListUsers_ConnectionReleasedOnEveryPath(t *testing.T) {
	cases := []struct {
		name string
		pool *fakePool
	}{
		{"success", newFakePool([][]any{{1, "alice", "alice@example.com"}})},
		{"query error", &fakePool{conn: &fakeConn{queryErr: errors.New("boom")}}},
		{"scan error", &fakePool{conn: &fakeConn{rows: &fakeRows{
			rows:    [][]any{{1, "alice", "alice@example.com"}},
			scanErr: errors.New("bad row"),
		}}}},
		{"iteration error", &fakePool{conn: &fakeConn{rows: &fakeRows{
			iterErr: errors.New("stream cut"),
		}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(tc.pool)
			doList(t, h, "/users")
			assert.Equal(t, 1, tc.pool.conn.releases)
		})
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	pool := &fakePool{conn: &fakeConn{rowErr: pgx.ErrNoRows}}
	service := NewUserService(pool, &config.UsersConfig{RowLimit: 500})

	_, err := service.GetProfile(context.Background(), 99)

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 1, pool.conn.releases)
}

func TestGetProfile_MapsRowToProfile(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pool := &fakePool{conn: &fakeConn{rowVals: []any{7, "alice", "alice@example.com", created}}}
	service := NewUserService(pool, &config.UsersConfig{RowLimit: 500})

	profile, err := service.GetProfile(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, &Profile{ID: 7, Username: "alice", Email: "alice@example.com", CreatedAt: created}, profile)
	assert.Equal(t, 1, pool.conn.releases)
}

func TestUpdateProfile_NoFieldsReturnsCurrentProfile(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pool := &fakePool{conn: &fakeConn{rowVals: []any{7, "alice", "alice@example.com", created}}}
	service := NewUserService(pool, &config.UsersConfig{RowLimit: 500})

	profile, err := service.UpdateProfile(context.Background(), 7, &UpdateProfileRequest{})

	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	// The no-op update never ran an UPDATE statement.
	assert.Contains(t, pool.conn.lastSQL, "SELECT")
}

func TestUpdateProfile_BuildsParameterizedSetClause(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pool := &fakePool{conn: &fakeConn{rowVals: []any{7, "alice2", "new@example.com", created}}}
	service := NewUserService(pool, &config.UsersConfig{RowLimit: 500})

	username := "alice2"
	email := "New@Example.com"
	profile, err := service.UpdateProfile(context.Background(), 7, &UpdateProfileRequest{Username: &username, Email: &email})

	require.NoError(t, err)
	assert.Equal(t, "alice2", profile.Username)
	assert.Equal(t,
		"UPDATE users SET username = $1, email = $2 WHERE id = $3 RETURNING id, username, email, created_at",
		pool.conn.lastSQL)
	// Email normalized to lowercase before binding.
	assert.Equal(t, []any{"alice2", "new@example.com", 7}, pool.conn.lastArgs)
}
