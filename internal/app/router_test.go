package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/observability"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

type groupStore map[int64][]string

func (g groupStore) Membership(_ context.Context, userID int64) (rbac.Membership, error) {
	groups, ok := g[userID]
	if !ok {
		return rbac.Membership{}, rbac.ErrNotFound
	}
	return rbac.Membership{UserID: userID, Active: true, Groups: groups}, nil
}

func (g groupStore) ListGroups(context.Context) ([]rbac.Group, error) { return nil, nil }

type pingHandler struct{ path string }

func (p pingHandler) MountRoutes(r chi.Router) {
	r.Get(p.path, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
}

func (p pingHandler) MountPublic(r chi.Router) { p.MountRoutes(r) }

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "inkworks_session", "router-secret", time.Hour, false)
	router := NewRouter(RouterParams{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:         &Config{AppEnv: "test", RateLimitPerMinute: 0},
		SessionManager: sessions,
		RBAC:           rbac.Middleware{Service: rbac.NewServiceWithStore(groupStore{1: {shared.GroupAttendance}})},
		Metrics:        observability.NewMetrics(),
		Redis:          client,
		Handlers:       []Mounter{pingHandler{path: "/open"}},
		Authenticated:  []Mounter{pingHandler{path: "/private"}},
		Public:         []PublicMounter{pingHandler{path: "/public/ping"}},
	})
	return fixture{router: router, sessions: sessions, redis: mr}
}

func (f fixture) login(t *testing.T, userID string) string {
	t.Helper()
	ctx := context.Background()
	sess := &shared.Session{}
	require.NoError(t, f.sessions.Renew(ctx, sess))
	sess.SetUser(userID)
	require.NoError(t, f.sessions.Commit(ctx, httptest.NewRecorder(), sess))
	return sess.ID
}

func (f fixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRouterMountsUnderAPI(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusTeapot, f.get("/api/open", "").Code)
	require.Equal(t, http.StatusTeapot, f.get("/api/public/ping", "").Code)
	require.Equal(t, http.StatusNotFound, f.get("/open", "").Code)
}

func TestRouterAuthenticatedGroup(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/api/private", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	token := f.login(t, "1")
	require.Equal(t, http.StatusTeapot, f.get("/api/private", token).Code)

	// Sessions of users without any membership are rejected.
	stranger := f.login(t, "99")
	require.Equal(t, http.StatusUnauthorized, f.get("/api/private", stranger).Code)
}

func TestSessionKeysDoNotExposeToken(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "1")

	require.False(t, f.redis.Exists("session:"+token))
	keys := f.redis.Keys()
	require.Len(t, keys, 1)
	require.NotContains(t, keys[0], token)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body dependencyStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "ok", body.Services["redis"])

	f.redis.Close()
	rec = f.get("/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get("/api/open", "")

	rec := f.get("/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "inkworks_http_requests_total")
}
