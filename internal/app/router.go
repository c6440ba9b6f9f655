// internal/app/router.go
package app

import (
	"net/http"

	"rollcall-service/internal/domain/user"
	authHandler "rollcall-service/internal/handlers/auth"
	checkinHandler "rollcall-service/internal/handlers/checkin"
	eventHandler "rollcall-service/internal/handlers/event"
	userHandler "rollcall-service/internal/handlers/user"
	wsHandler "rollcall-service/internal/handlers/websocket"
	"rollcall-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	UserHandler    *userHandler.UserHandler
	EventHandler   *eventHandler.EventHandler
	CheckinHandler *checkinHandler.CheckinHandler
	FreezeHandler  *checkinHandler.FreezeHandler
	WSHandler      *wsHandler.WebSocketHandler
	Health         *HealthHandler
	Metrics        http.Handler
	Web            *WebShell
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Probes & Metrics ====================
	r.GET("/healthz", h.Health.Live)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api/v1")
	api.GET("/health", h.Health.Ready)

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)
	r.GET("/ws/stats", append(h.AuthMiddleware.AdminOnly(), h.WSHandler.GetStats)...)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/forgot-password", h.AuthHandler.ForgotPassword)
		authPublic.POST("/reset-password", h.AuthHandler.ResetPassword)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.PUT("/change-password", h.AuthHandler.ChangePassword)
		authProtected.GET("/me", h.AuthHandler.GetMe)
		authProtected.GET("/sessions", h.AuthHandler.GetActiveSessions)
		authProtected.DELETE("/sessions/:session_id", h.AuthHandler.RevokeSession)
	}

	// ==================== Users ====================
	users := api.Group("/users")
	users.Use(h.AuthMiddleware.Auth())
	{
		users.GET("", h.UserHandler.List)
		users.GET("/:id", h.UserHandler.Get)
		users.PUT("/:id", h.UserHandler.Update)
		users.DELETE("/:id", h.UserHandler.Delete)
	}

	api.GET("/leaderboard", h.AuthMiddleware.Auth(), h.UserHandler.Leaderboard)

	// ==================== Events ====================
	events := api.Group("/events")
	events.Use(h.AuthMiddleware.Auth())
	{
		events.POST("", h.EventHandler.Create)
		events.GET("", h.EventHandler.List)
		events.GET("/mine", h.EventHandler.Mine)
		events.GET("/participating", h.EventHandler.Participating)
		events.GET("/popular", h.EventHandler.Popular)

		events.GET("/:id", h.EventHandler.Get)
		events.PUT("/:id", h.EventHandler.Update)
		events.DELETE("/:id", h.EventHandler.Delete)

		// Membership
		events.POST("/:id/join", h.EventHandler.Join)
		events.POST("/:id/leave", h.EventHandler.Leave)
		events.POST("/:id/invite", h.EventHandler.Invite)

		// Rankings
		events.GET("/:id/leaderboard", h.EventHandler.Leaderboard)
		events.GET("/:id/stats", h.EventHandler.Stats)

		// Check-ins and streaks
		events.GET("/:id/checkins", h.CheckinHandler.ListByEvent)
		events.GET("/:id/streak", h.CheckinHandler.EventStreak)
		events.GET("/:id/freezes", h.FreezeHandler.Available)
		events.POST("/:id/freezes", h.AuthMiddleware.RequireRole(user.RoleAdmin), h.FreezeHandler.Grant)
	}

	// ==================== Check-ins ====================
	checkins := api.Group("/checkins")
	checkins.Use(h.AuthMiddleware.Auth())
	{
		checkins.POST("", h.CheckinHandler.Create)
		checkins.GET("", h.CheckinHandler.List)
		checkins.GET("/latest", h.CheckinHandler.Latest)
		checkins.GET("/streaks", h.CheckinHandler.Streaks)
		checkins.GET("/:id", h.CheckinHandler.Get)
		checkins.DELETE("/:id", h.CheckinHandler.Delete)
	}

	// ==================== Web shell ====================
	r.NoRoute(h.Web.Handlers()...)
}
