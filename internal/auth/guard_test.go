package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/merchant-console/internal/config"
	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/observability"
	"github.com/spec-kit/merchant-console/internal/repository"
	"github.com/spec-kit/merchant-console/internal/session"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

const testScope = "6f1c2f8e-1b7a-4a53-9cf0-4b1f0b1c2d3e"

type guardFixture struct {
	app     *fiber.App
	repo    repository.SessionRepository
	metrics *observability.Metrics
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	f := &guardFixture{
		repo:    repository.NewMemorySessionRepository(),
		metrics: observability.NewMetrics(),
	}
	cfg := config.SessionConfig{CookieName: "console_sid", RetentionHours: 1}
	oracle := NewOracle(NewTokenCodec(nil, WithClock(fixedClock)), nil, nil)
	guard := NewGuard(oracle, f.metrics, nil)

	f.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code, "details": de.Details})
		},
	})
	f.app.Use(NewSessionMiddleware(f.repo, cfg, nil).Handle)

	whoami := func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return c.SendString("nobody")
		}
		return c.SendString(user.UserID + ":" + string(user.Role))
	}
	f.app.Get("/home", guard.Protect(Rule{}), whoami)
	f.app.Get("/sales", guard.Protect(RequireRoles(domain.RoleAdmin)), whoami)
	f.app.Get("/reports", guard.Protect(Rule{RequiredRoles: []domain.Role{domain.RoleAdmin}, RedirectTo: "/personal"}), whoami)
	f.app.Get("/api/sales", guard.ProtectAPI(RequireRoles(domain.RoleAdmin)), whoami)
	f.app.Get("/api/scope", func(c *fiber.Ctx) error {
		store, ok := SessionFromContext(c)
		require.True(t, ok)
		return c.SendString(store.Scope())
	})
	return f
}

func (f *guardFixture) login(t *testing.T, role string, exp time.Time) {
	t.Helper()
	token := mintToken(t, jwt.MapClaims{"sub": "u1", "role": role, "exp": exp.Unix()})
	store := session.NewStore(f.repo, testScope, nil)
	require.NoError(t, store.SetSession(context.Background(), token, domain.UserInfo{UserID: "u1", Role: domain.Role(role)}))
}

func (f *guardFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: "console_sid", Value: testScope})
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestProtectRedirects(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		exp      time.Duration
		path     string
		status   int
		location string
		body     string
	}{
		{name: "anonymous home", path: "/home", status: http.StatusFound, location: LoginRoute},
		{name: "anonymous sales", path: "/sales", status: http.StatusFound, location: LoginRoute},
		{name: "sales on home", role: "sales", exp: time.Hour, path: "/home", status: http.StatusOK, body: "u1:sales"},
		{name: "sales on admin route", role: "sales", exp: time.Hour, path: "/sales", status: http.StatusFound, location: HomeRoute},
		{name: "custom fallback", role: "sales", exp: time.Hour, path: "/reports", status: http.StatusFound, location: "/personal"},
		{name: "admin on admin route", role: "admin", exp: time.Hour, path: "/sales", status: http.StatusOK, body: "u1:admin"},
		{name: "expired admin", role: "admin", exp: -time.Second, path: "/sales", status: http.StatusFound, location: LoginRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGuardFixture(t)
			if tt.role != "" {
				f.login(t, tt.role, fixedNow.Add(tt.exp))
			}

			resp := f.get(t, tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
			if tt.body != "" {
				assert.Equal(t, tt.body, body(t, resp))
			}
		})
	}
}

func TestProtectReevaluatesEveryRequest(t *testing.T) {
	f := newGuardFixture(t)
	f.login(t, "admin", fixedNow.Add(time.Hour))
	assert.Equal(t, http.StatusOK, f.get(t, "/sales").StatusCode)

	require.NoError(t, session.NewStore(f.repo, testScope, nil).ClearSession(context.Background()))
	resp := f.get(t, "/sales")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, LoginRoute, resp.Header.Get("Location"))
}

func TestProtectAPIErrors(t *testing.T) {
	f := newGuardFixture(t)

	resp := f.get(t, "/api/sales")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var payload struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "UNAUTHORIZED", payload.Code)
	assert.Equal(t, LoginRoute, payload.Details["redirect"])

	f.login(t, "sales", fixedNow.Add(time.Hour))
	resp = f.get(t, "/api/sales")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "FORBIDDEN", payload.Code)
	assert.Equal(t, HomeRoute, payload.Details["redirect"])
}

func TestGuardRecordsOutcomes(t *testing.T) {
	f := newGuardFixture(t)
	f.get(t, "/sales")
	f.login(t, "admin", fixedNow.Add(time.Hour))
	f.get(t, "/sales")

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.GuardDecisions["/sales|unauthenticated"])
	assert.Equal(t, int64(1), snap.GuardDecisions["/sales|allowed"])
}

func TestSessionMiddlewareIssuesCookie(t *testing.T) {
	f := newGuardFixture(t)

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/scope", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "console_sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, body(t, resp))

	req := httptest.NewRequest(http.MethodGet, "/api/scope", nil)
	req.AddCookie(&http.Cookie{Name: "console_sid", Value: "not-a-uuid"})
	resp, err = f.app.Test(req)
	require.NoError(t, err)
	require.Len(t, resp.Cookies(), 1)
	assert.NotEqual(t, "not-a-uuid", body(t, resp))

	resp = f.get(t, "/api/scope")
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, testScope, body(t, resp))
}

func TestSessionMiddlewareRotate(t *testing.T) {
	sessions := NewSessionMiddleware(repository.NewMemorySessionRepository(), config.SessionConfig{CookieName: "console_sid", RetentionHours: 1}, nil)
	app := fiber.New()
	app.Use(sessions.Handle)
	app.Post("/rotate", func(c *fiber.Ctx) error {
		sessions.Rotate(c, sessions.Issue(), c.QueryBool("remember"))
		store, ok := SessionFromContext(c)
		require.True(t, ok)
		return c.SendString(store.Scope())
	})

	for _, remember := range []bool{false, true} {
		req := httptest.NewRequest(http.MethodPost, "/rotate?remember="+strconv.FormatBool(remember), nil)
		req.AddCookie(&http.Cookie{Name: "console_sid", Value: testScope})
		resp, err := app.Test(req)
		require.NoError(t, err)

		cookies := resp.Cookies()
		require.Len(t, cookies, 1)
		scope := body(t, resp)
		assert.NotEqual(t, testScope, scope)
		assert.Equal(t, scope, cookies[0].Value)
		assert.Equal(t, remember, !cookies[0].Expires.IsZero())
	}
}
