// internal/middleware/route_guard.go
package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	DefaultProtectedPrefixes = []string{"/dashboard", "/events", "/checkins", "/profile", "/leaderboard", "/settings"}
	DefaultAuthPrefixes      = []string{"/login", "/register", "/forgot-password"}

	skippedPrefixes   = []string{"/_next/static", "/_next/image", "/static/"}
	skippedExtensions = map[string]bool{".svg": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".ico": true}
)

// GuardAction is what the guard does with a navigation
type GuardAction int

const (
	GuardPass GuardAction = iota
	GuardRedirect
)

// GuardDecision is the outcome for one request
type GuardDecision struct {
	Action      GuardAction
	Location    string
	ClearCookie bool
}

// RouteGuardConfig configures page navigation guarding
type RouteGuardConfig struct {
	CookieName        string
	LoginPath         string
	DashboardPath     string
	ProtectedPrefixes []string
	AuthPrefixes      []string
	// Validator, when set, makes the cookie authoritative: an invalid one counts as absent
	Validator    TokenValidator
	SecureCookie bool
}

// RouteGuard redirects page navigations based on session cookie presence
type RouteGuard struct {
	cfg RouteGuardConfig
}

func NewRouteGuard(cfg RouteGuardConfig) *RouteGuard {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = "/dashboard"
	}
	if cfg.ProtectedPrefixes == nil {
		cfg.ProtectedPrefixes = DefaultProtectedPrefixes
	}
	if cfg.AuthPrefixes == nil {
		cfg.AuthPrefixes = DefaultAuthPrefixes
	}
	return &RouteGuard{cfg: cfg}
}

// Matches reports whether the guard looks at p at all. Static assets and images are skipped.
func Matches(p string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	if p == "/favicon.ico" {
		return false
	}
	return !skippedExtensions[strings.ToLower(path.Ext(p))]
}

// Decide classifies one request. It never touches the response.
func (g *RouteGuard) Decide(r *http.Request) GuardDecision {
	p := r.URL.Path
	if !Matches(p) {
		return GuardDecision{Action: GuardPass}
	}

	protected := hasPathPrefix(p, g.cfg.ProtectedPrefixes)
	authPage := hasPathPrefix(p, g.cfg.AuthPrefixes)
	if !protected && !authPage {
		return GuardDecision{Action: GuardPass}
	}

	hasSession, invalid := g.session(r)

	switch {
	case protected && !hasSession:
		return GuardDecision{
			Action:      GuardRedirect,
			Location:    g.cfg.LoginPath + "?callbackUrl=" + url.QueryEscape(r.URL.RequestURI()),
			ClearCookie: invalid,
		}
	case authPage && hasSession:
		return GuardDecision{Action: GuardRedirect, Location: g.cfg.DashboardPath}
	default:
		return GuardDecision{Action: GuardPass, ClearCookie: invalid}
	}
}

// session reports whether the request carries a usable session cookie, and
// whether a cookie was present but rejected by the validator.
func (g *RouteGuard) session(r *http.Request) (bool, bool) {
	cookie, err := r.Cookie(g.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return false, false
	}
	if g.cfg.Validator == nil {
		return true, false
	}
	if _, err := g.cfg.Validator.ValidateToken(r.Context(), cookie.Value); err != nil {
		return false, true
	}
	return true, false
}

// Middleware applies Decide to page requests
func (g *RouteGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Decide(c.Request)
		if d.ClearCookie {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(g.cfg.CookieName, "", -1, "/", "", g.cfg.SecureCookie, true)
		}
		if d.Action == GuardRedirect {
			c.Redirect(http.StatusTemporaryRedirect, d.Location)
			c.Abort()
			return
		}
		c.Next()
	}
}

func hasPathPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
