// internal/app/web.go
package app

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// paths served by the API side; they never reach the guard or the bundle
var backendPrefixes = []string{"/api", "/ws", "/metrics", "/healthz"}

// WebShell serves the single-page bundle under root behind the route guard.
// Unknown paths fall back to index.html so client-side routing works.
type WebShell struct {
	root  string
	guard *middleware.RouteGuard
}

func NewWebShell(root string, guard *middleware.RouteGuard) *WebShell {
	return &WebShell{root: root, guard: guard}
}

// Handlers is the NoRoute chain
func (w *WebShell) Handlers() []gin.HandlerFunc {
	return []gin.HandlerFunc{w.backendNotFound, w.guard.Middleware(), w.serve}
}

func (w *WebShell) backendNotFound(c *gin.Context) {
	p := c.Request.URL.Path
	for _, prefix := range backendPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			response.NotFound(c, "route not found")
			return
		}
	}
	if w.root == "" || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		response.NotFound(c, "route not found")
		return
	}
	c.Next()
}

func (w *WebShell) serve(c *gin.Context) {
	clean := path.Clean("/" + c.Request.URL.Path)
	file := filepath.Join(w.root, filepath.FromSlash(clean))

	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		c.File(file)
		return
	}

	index := filepath.Join(w.root, "index.html")
	if _, err := os.Stat(index); err != nil {
		response.NotFound(c, "route not found")
		return
	}
	c.File(index)
}
