package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"rollcall-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenValidatorFunc func(ctx context.Context, token string) (*jwt.Claims, error)

func (f tokenValidatorFunc) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	return f(ctx, token)
}

func guardedEngine(g *RouteGuard) *gin.Engine {
	r := gin.New()
	r.Use(g.Middleware())
	r.NoRoute(func(c *gin.Context) { c.String(http.StatusOK, "page") })
	return r
}

func navigate(r http.Handler, target, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuardProtectedWithoutCookie(t *testing.T) {
	r := guardedEngine(NewRouteGuard(RouteGuardConfig{}))

	for _, target := range []string{"/dashboard", "/events/42?tab=stats", "/settings/profile"} {
		w := navigate(r, target, "")
		require.Equal(t, http.StatusTemporaryRedirect, w.Code, target)

		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/login", loc.Path)
		assert.Equal(t, target, loc.Query().Get("callbackUrl"))
	}
}

func TestGuardAuthPageWithCookie(t *testing.T) {
	r := guardedEngine(NewRouteGuard(RouteGuardConfig{}))

	for _, target := range []string{"/login", "/register", "/forgot-password"} {
		w := navigate(r, target, "garbage-not-even-a-jwt")
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code, target)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	}
}

func TestGuardPassesThrough(t *testing.T) {
	r := guardedEngine(NewRouteGuard(RouteGuardConfig{}))

	cases := []struct {
		target string
		cookie string
	}{
		{"/", ""},
		{"/about", ""},
		{"/eventsfeed", ""},
		{"/dashboard", "T"},
		{"/login", ""},
		{"/_next/static/chunk.js", ""},
		{"/dashboard/logo.png", ""},
		{"/favicon.ico", ""},
	}

	for _, tc := range cases {
		w := navigate(r, tc.target, tc.cookie)
		assert.Equal(t, http.StatusOK, w.Code, tc.target)
		assert.Equal(t, "page", w.Body.String(), tc.target)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("/dashboard"))
	assert.False(t, Matches("/_next/image"))
	assert.False(t, Matches("/static/app.css"))
	assert.False(t, Matches("/img/Hero.JPEG"))
	assert.False(t, Matches("/icons/a.svg"))
}

func TestGuardValidatorMakesCookieAuthoritative(t *testing.T) {
	validator := tokenValidatorFunc(func(_ context.Context, token string) (*jwt.Claims, error) {
		if token == "good" {
			return &jwt.Claims{UserID: 1}, nil
		}
		return nil, errors.New("invalid")
	})
	r := guardedEngine(NewRouteGuard(RouteGuardConfig{Validator: validator}))

	w := navigate(r, "/dashboard", "good")
	assert.Equal(t, http.StatusOK, w.Code)

	w = navigate(r, "/dashboard", "forged")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), DefaultSessionCookie+"=;")

	w = navigate(r, "/login", "forged")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}
