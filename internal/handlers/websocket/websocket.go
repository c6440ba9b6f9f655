// internal/handlers/websocket/websocket.go
package websocket

import (
	"context"
	"net/http"
	"time"

	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/response"
	ws "rollcall-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub        *ws.Hub
	upgrader   websocket.Upgrader
	cookieName string
	ctx        context.Context
	logger     *zap.Logger
}

// NewWebSocketHandler upgrades authenticated requests onto hub. ctx bounds
// the read loops of every connection; cancel it on shutdown.
func NewWebSocketHandler(ctx context.Context, hub *ws.Hub, allowedOrigins []string, cookieName string, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		cookieName: cookieName,
		ctx:        ctx,
		logger:     logger,
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients), any origin when the list contains "*", and otherwise exact matches.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		return set[origin]
	}
}

// HandleConnection handles GET /ws
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := middleware.ExtractToken(c, h.cookieName)
	if token == "" {
		response.Unauthorized(c, "missing authentication token")
		return
	}

	auth, err := h.hub.AuthenticateClient(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Error(c, http.StatusUnauthorized, "authentication failed", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, auth)
	if err := h.hub.Register(client); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", auth.UserID),
		zap.String("session_id", auth.SessionID),
		zap.String("username", auth.Username),
	)

	go client.WritePump()
	go client.ReadPump(h.ctx)
}

// GetStats handles GET /ws/stats (admin)
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now().UTC(),
	})
}
