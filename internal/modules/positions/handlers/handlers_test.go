package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/modules/positions"
	"github.com/aristath/copydash/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type fakeService struct {
	mu        sync.Mutex
	summary   positions.Summary
	profileID string
	err       error
	interval  time.Duration
	calls     int
	tokens    []string
}

func (f *fakeService) Summary(ctx context.Context, token, profileID string) (positions.Summary, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return positions.Summary{}, profileID, f.err
	}
	return f.summary, f.profileID, nil
}

func (f *fakeService) RefreshInterval() time.Duration {
	if f.interval == 0 {
		return time.Minute
	}
	return f.interval
}

type fakeSessions struct {
	mu        sync.Mutex
	saved     []session.Data
	destroyed int
}

func (f *fakeSessions) Save(ctx context.Context, w http.ResponseWriter, s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s.Data)
	return nil
}

func (f *fakeSessions) Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	s.Clear()
	return nil
}

func withSession(s *session.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}

func newRouter(h *Handler, s *session.Session) *chi.Mux {
	router := chi.NewRouter()
	router.Use(withSession(s))
	h.RegisterRoutes(router)
	h.RegisterStreamRoutes(router)
	return router
}

func sampleSummary() positions.Summary {
	return positions.Summary{
		Accounts: []positions.AccountSummary{
			{AccountID: "c1", DisplayName: "Main", ServerLabel: "PS-01", Username: "1001", OpenPositionCount: 3},
		},
		TotalAccounts:      1,
		AccountsChecked:    2,
		TotalOpenPositions: 3,
		GeneratedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleSummary(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := &fakeService{summary: sampleSummary(), profileID: "p1"}
	sessions := &fakeSessions{}
	handler := NewHandler(service, sessions, logger)

	s := &session.Session{ID: "sid", Data: session.Data{AccessToken: "tok"}}
	req := httptest.NewRequest("GET", "/positions/summary", nil)
	w := httptest.NewRecorder()
	newRouter(handler, s).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response struct {
		Data     positions.Summary      `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 3, response.Data.TotalOpenPositions)
	assert.Equal(t, "c1", response.Data.Accounts[0].AccountID)
	assert.Equal(t, float64(60), response.Metadata["refresh_interval_seconds"])

	require.Len(t, sessions.saved, 1)
	assert.Equal(t, "p1", sessions.saved[0].ProfileID)
	assert.Equal(t, []string{"tok"}, service.tokens)
}

func TestHandleSummary_KnownProfileIsNotResaved(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := &fakeService{summary: sampleSummary(), profileID: "p1"}
	sessions := &fakeSessions{}
	handler := NewHandler(service, sessions, logger)

	s := &session.Session{ID: "sid", Data: session.Data{AccessToken: "tok", ProfileID: "p1"}}
	w := httptest.NewRecorder()
	newRouter(handler, s).ServeHTTP(w, httptest.NewRequest("GET", "/positions/summary", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sessions.saved)
}

func TestHandleSummary_Unauthenticated(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := &fakeService{}
	handler := NewHandler(service, &fakeSessions{}, logger)

	w := httptest.NewRecorder()
	newRouter(handler, &session.Session{ID: "sid"}).ServeHTTP(w, httptest.NewRequest("GET", "/positions/summary", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, service.calls)
}

func TestHandleSummary_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantDestroyed int
	}{
		{"unauthorized", &copytrade.APIError{StatusCode: 401, Endpoint: "/connect/userinfo"}, http.StatusUnauthorized, 1},
		{"server error", &copytrade.APIError{StatusCode: 500, Endpoint: "/api/profiles/p1/copiers"}, http.StatusBadGateway, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(nil).Level(zerolog.Disabled)
			sessions := &fakeSessions{}
			handler := NewHandler(&fakeService{err: tt.err}, sessions, logger)

			s := &session.Session{ID: "sid", Data: session.Data{AccessToken: "tok"}}
			w := httptest.NewRecorder()
			newRouter(handler, s).ServeHTTP(w, httptest.NewRequest("GET", "/positions/summary", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantDestroyed, sessions.destroyed)
		})
	}
}

func TestHandleStream_PushesSummaries(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := &fakeService{summary: sampleSummary(), profileID: "p1", interval: 20 * time.Millisecond}
	handler := NewHandler(service, &fakeSessions{}, logger)

	s := &session.Session{ID: "sid", Data: session.Data{AccessToken: "tok"}}
	srv := httptest.NewServer(newRouter(handler, s))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/positions/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for i := 0; i < 2; i++ {
		var msg streamMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		assert.Equal(t, "summary", msg.Type)
		require.NotNil(t, msg.Summary)
		assert.Equal(t, 3, msg.Summary.TotalOpenPositions)
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	assert.GreaterOrEqual(t, service.calls, 2)
}

func TestHandleStream_Unauthenticated(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(&fakeService{}, &fakeSessions{}, logger)

	w := httptest.NewRecorder()
	newRouter(handler, nil).ServeHTTP(w, httptest.NewRequest("GET", "/positions/stream", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(&fakeService{}, &fakeSessions{}, logger)

	router := chi.NewRouter()
	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
		handler.RegisterStreamRoutes(router)
	})
}
