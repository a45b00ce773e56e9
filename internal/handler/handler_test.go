package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devdash/internal/apperror"
	"github.com/sakif/devdash/internal/auth"
	"github.com/sakif/devdash/internal/dashboard"
	"github.com/sakif/devdash/internal/handler"
	"github.com/sakif/devdash/internal/model"
	"github.com/sakif/devdash/internal/service"
)

// MockExchanger stands in for the GitHub OAuth client.
type MockExchanger struct {
	ReturnIdentity *auth.Identity
	ReturnErr      error
	Calls          int
}

func (m *MockExchanger) AuthURL(state string) string {
	u := "https://github.com/login/oauth/authorize?client_id=cid"
	if state != "" {
		u += "&state=" + url.QueryEscape(state)
	}
	return u
}

func (m *MockExchanger) Exchange(ctx context.Context, code string) (*auth.Identity, error) {
	m.Calls++
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnIdentity, nil
}

// MockUserRepo records upserts in memory.
type MockUserRepo struct {
	mu        sync.Mutex
	Upserts   []model.User
	ReturnErr error
}

func (m *MockUserRepo) Upsert(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReturnErr != nil {
		return m.ReturnErr
	}
	user.ID = "uid-1"
	m.Upserts = append(m.Upserts, *user)
	return nil
}

func (m *MockUserRepo) GetByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	return nil, apperror.NotFound("user", githubID)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return nil, apperror.NotFound("user", id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newAuthHandler(ex *MockExchanger, repo *MockUserRepo, states *auth.StateSigner) *handler.AuthHandler {
	logger := testLogger()
	svc := service.NewAuthService(ex, repo, logger,
		service.WithStoreRetries(1),
		service.WithRetryInterval(time.Millisecond),
	)
	return handler.NewAuthHandler(svc, states, logger)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

// ===== AUTH: LOGIN REDIRECT =====

func TestAuthHandler_HandleGitHubLogin(t *testing.T) {
	t.Run("redirects without state when signing is off", func(t *testing.T) {
		h := newAuthHandler(&MockExchanger{}, &MockUserRepo{}, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github", nil))

		assert.Equal(t, http.StatusFound, rr.Code)
		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "github.com", loc.Host)
		assert.Empty(t, loc.Query().Get("state"))
	})

	t.Run("redirect carries a verifiable state", func(t *testing.T) {
		states, err := auth.NewStateSigner("test-secret-at-least-16-chars!!")
		require.NoError(t, err)
		h := newAuthHandler(&MockExchanger{}, &MockUserRepo{}, states)

		rr := httptest.NewRecorder()
		h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github", nil))

		assert.Equal(t, http.StatusFound, rr.Code)
		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.NoError(t, states.Verify(loc.Query().Get("state")))
	})
}

// ===== AUTH: CALLBACK =====

func TestAuthHandler_HandleGitHubCallback(t *testing.T) {
	alice := &auth.Identity{
		AccessToken: "tok1",
		ExternalID:  "99",
		Username:    "alice",
		AvatarURL:   "http://x/a.png",
	}

	t.Run("success stores user and redirects", func(t *testing.T) {
		ex := &MockExchanger{ReturnIdentity: alice}
		repo := &MockUserRepo{}
		h := newAuthHandler(ex, repo, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc123", nil))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/dashboard.html?user=alice", rr.Header().Get("Location"))
		require.Len(t, repo.Upserts, 1)
		assert.Equal(t, "99", repo.Upserts[0].GitHubID)
		assert.Equal(t, "tok1", repo.Upserts[0].AccessToken)
		assert.Nil(t, repo.Upserts[0].Email)
	})

	t.Run("username is escaped in the redirect", func(t *testing.T) {
		odd := *alice
		odd.Username = "a&b c"
		h := newAuthHandler(&MockExchanger{ReturnIdentity: &odd}, &MockUserRepo{}, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=x", nil))

		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "a&b c", loc.Query().Get("user"))
	})

	t.Run("missing code is 400 with no outbound call", func(t *testing.T) {
		ex := &MockExchanger{ReturnIdentity: alice}
		repo := &MockUserRepo{}
		h := newAuthHandler(ex, repo, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "bad_request", decodeError(t, rr).Error)
		assert.Equal(t, 0, ex.Calls)
		assert.Empty(t, repo.Upserts)
	})

	t.Run("exchange failure is a generic 500", func(t *testing.T) {
		ex := &MockExchanger{ReturnErr: apperror.AuthExchangeFailed("token exchange", errors.New("bad_verification_code"))}
		repo := &MockUserRepo{}
		h := newAuthHandler(ex, repo, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=stale", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		body := decodeError(t, rr)
		assert.Equal(t, "auth_failed", body.Error)
		assert.Equal(t, "Authentication failed", body.Message)
		assert.NotContains(t, rr.Body.String(), "bad_verification_code")
		assert.Empty(t, repo.Upserts)
	})

	t.Run("storage failure is 500 and no redirect", func(t *testing.T) {
		ex := &MockExchanger{ReturnIdentity: alice}
		repo := &MockUserRepo{ReturnErr: apperror.StorageFailed("upsert", errors.New("disk full"))}
		h := newAuthHandler(ex, repo, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc123", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Empty(t, rr.Header().Get("Location"))
		assert.Equal(t, "auth_failed", decodeError(t, rr).Error)
	})

	t.Run("provider error is 400", func(t *testing.T) {
		ex := &MockExchanger{ReturnIdentity: alice}
		h := newAuthHandler(ex, &MockUserRepo{}, nil)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet,
			"/auth/github/callback?error=access_denied&error_description=denied", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 0, ex.Calls)
	})

	t.Run("state required when signing is on", func(t *testing.T) {
		states, err := auth.NewStateSigner("test-secret-at-least-16-chars!!")
		require.NoError(t, err)

		for _, target := range []string{
			"/auth/github/callback?code=abc123",
			"/auth/github/callback?code=abc123&state=forged",
		} {
			ex := &MockExchanger{ReturnIdentity: alice}
			h := newAuthHandler(ex, &MockUserRepo{}, states)

			rr := httptest.NewRecorder()
			h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, rr.Code, target)
			assert.Equal(t, 0, ex.Calls, target)
		}
	})

	t.Run("valid state accepted", func(t *testing.T) {
		states, err := auth.NewStateSigner("test-secret-at-least-16-chars!!")
		require.NoError(t, err)
		state, err := states.Issue()
		require.NoError(t, err)

		ex := &MockExchanger{ReturnIdentity: alice}
		h := newAuthHandler(ex, &MockUserRepo{}, states)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet,
			"/auth/github/callback?code=abc123&state="+url.QueryEscape(state), nil))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, 1, ex.Calls)
	})
}

// ===== HEALTH =====

func TestHealthHandler_HandleHealth(t *testing.T) {
	t.Run("fixed clock", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 9, 30, 0, 123_000_000, time.FixedZone("CET", 3600))
		h := handler.NewHealthHandler(func() time.Time { return fixed })

		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body handler.HealthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "2026-03-01T08:30:00.123Z", body.Time)
	})

	t.Run("time is parseable and non-decreasing", func(t *testing.T) {
		h := handler.NewHealthHandler(nil)

		var prev time.Time
		for i := 0; i < 3; i++ {
			rr := httptest.NewRecorder()
			h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			var body handler.HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			ts, err := time.Parse(time.RFC3339Nano, body.Time)
			require.NoError(t, err)
			assert.False(t, ts.Before(prev))
			prev = ts
		}
	})
}

// ===== DASHBOARD =====

type failingProvider struct{}

func (failingProvider) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	return nil, errors.New("upstream unavailable")
}

func TestDashboardHandler_HandleDashboard(t *testing.T) {
	t.Run("fixed body regardless of query", func(t *testing.T) {
		h := handler.NewDashboardHandler(dashboard.Static{}, testLogger())

		var bodies []string
		for _, target := range []string{"/api/dashboard", "/api/dashboard?user=bob&x=1"} {
			rr := httptest.NewRecorder()
			h.HandleDashboard(rr, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusOK, rr.Code)
			bodies = append(bodies, rr.Body.String())
		}
		assert.Equal(t, bodies[0], bodies[1])

		var d model.Dashboard
		require.NoError(t, json.Unmarshal([]byte(bodies[0]), &d))
		assert.Equal(t, "developer", d.User.Username)
		assert.Len(t, d.PRs, 3)
	})

	t.Run("provider error is 500", func(t *testing.T) {
		h := handler.NewDashboardHandler(failingProvider{}, testLogger())

		rr := httptest.NewRecorder()
		h.HandleDashboard(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "internal_error", decodeError(t, rr).Error)
	})
}

// ===== STATIC =====

func TestStaticHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>home</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dashboard.html"), []byte("<h1>dash</h1>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("1"), 0o644))

	h := handler.NewStaticHandler(dir)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<h1>home</h1>"},
		{"/dashboard.html", http.StatusOK, "<h1>dash</h1>"},
		{"/assets/app.js", http.StatusOK, "1"},
		{"/assets/", http.StatusNotFound, ""},
		{"/missing.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}
