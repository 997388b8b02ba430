package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth_RejectsAnonymous(t *testing.T) {
	m, _ := newTestManager(t)
	called := false
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWith(nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "authentication required", body["error"])
}

func TestRequireAuth_PassesSessionThrough(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.Load(requestWith(nil))
	s.Data.AccessToken = "tok"
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(context.Background(), rec, s))
	cookie := sessionCookie(t, rec)

	var seen *Session
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	out := httptest.NewRecorder()
	handler.ServeHTTP(out, requestWith(cookie))

	assert.Equal(t, http.StatusOK, out.Code)
	require.NotNil(t, seen)
	assert.Equal(t, s.ID, seen.ID)
	assert.Equal(t, "tok", seen.Data.AccessToken)
}

func TestMiddleware_LoadsAnonymousSession(t *testing.T) {
	m, _ := newTestManager(t)

	var seen *Session
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), requestWith(nil))

	require.NotNil(t, seen)
	assert.True(t, seen.IsNew())
	assert.Nil(t, FromContext(context.Background()))
}

func TestNoCache(t *testing.T) {
	handler := NoCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWith(nil))

	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
}
