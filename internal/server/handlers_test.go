package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/auth"
	"taskboard/internal/kvslot"
	"taskboard/internal/model"
	"taskboard/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))

	authSvc := auth.NewService(
		auth.NewUserRepository(db),
		auth.NewPasswordHasher(),
		auth.NewJWTManager("test-secret", time.Hour),
	)
	tasks := store.NewEmbedded(kvslot.NewMemory())
	t.Cleanup(func() { tasks.Close() })

	return New(tasks, authSvc)
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func signupAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var token auth.Token
	require.NoError(t, json.Unmarshal(raw, &token))
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice")

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var verified map[string]string
	require.NoError(t, json.Unmarshal(raw, &verified))
	assert.Equal(t, "alice", verified["username"])

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/auth/verify", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTasksRequireAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTaskCRUDFlow(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice")

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/tasks", token, map[string]string{
		"title":       "Buy milk",
		"description": "2% milk",
		"priority":    "low",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Task
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, model.PriorityLow, created.Priority)
	assert.NotZero(t, created.ID)

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []model.Task
	require.NoError(t, json.Unmarshal(raw, &listed))
	require.Len(t, listed, 1)

	path := fmt.Sprintf("/api/tasks/%d", created.ID)
	resp, raw = doJSON(t, srv, http.MethodPut, path, token, map[string]any{
		"status": "completed",
		"bogus":  "ignored",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Task
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, model.StatusCompleted, updated.Status)

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/tasks?status=completed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &listed))
	assert.Len(t, listed, 1)

	resp, _ = doJSON(t, srv, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Idempotent: deleting again is still a success.
	resp, _ = doJSON(t, srv, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaskValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "missing description",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/tasks?status=archived", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTaskOwnershipEnforcedAtTheEdge(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := signupAndLogin(t, srv, "alice")
	bobToken := signupAndLogin(t, srv, "bob")

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/tasks", aliceToken, map[string]string{
		"title":       "private",
		"description": "alice only",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task model.Task
	require.NoError(t, json.Unmarshal(raw, &task))

	path := fmt.Sprintf("/api/tasks/%d", task.ID)
	resp, _ = doJSON(t, srv, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "foreign tasks look like missing tasks")
	resp, _ = doJSON(t, srv, http.MethodPut, path, bobToken, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/tasks", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []model.Task
	require.NoError(t, json.Unmarshal(raw, &listed))
	assert.Empty(t, listed, "listings never leak another user's rows")
}
