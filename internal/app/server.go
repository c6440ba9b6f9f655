// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rollcall-service/internal/config"
	"rollcall-service/internal/db"
	authHandler "rollcall-service/internal/handlers/auth"
	checkinHandler "rollcall-service/internal/handlers/checkin"
	eventHandler "rollcall-service/internal/handlers/event"
	userHandler "rollcall-service/internal/handlers/user"
	wsHandler "rollcall-service/internal/handlers/websocket"
	"rollcall-service/internal/jobs"
	"rollcall-service/internal/metrics"
	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/jwt"
	"rollcall-service/internal/pkg/session"
	"rollcall-service/internal/pkg/validation"
	"rollcall-service/internal/repository/postgres"
	authUsecase "rollcall-service/internal/service/auth"
	checkinUsecase "rollcall-service/internal/service/checkin"
	eventUsecase "rollcall-service/internal/service/event"
	leaderboardUsecase "rollcall-service/internal/service/leaderboard"
	freezeUsecase "rollcall-service/internal/service/streakfreeze"
	userUsecase "rollcall-service/internal/service/user"
	"rollcall-service/internal/websocket"
	wsHandlers "rollcall-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const version = "1.0.0"

// validatorFunc lets the hub reach the auth service before it exists
type validatorFunc func(ctx context.Context, token string) (*jwt.Claims, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	return f(ctx, token)
}

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Run wires every component and serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := validation.Register(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	// ----- PostgreSQL -----
	if s.cfg.RunMigrations {
		if err := db.Migrate(ctx, s.cfg.DatabaseURL); err != nil {
			return err
		}
		s.logger.Info("migrations applied")
	}

	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: s.cfg.DatabaseURL, MaxConns: int32(s.cfg.DBMaxConns)})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	// ----- Redis -----
	redisCfg := db.RedisConfig{
		Address:  s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	}
	redisClient, err := db.NewRedisClient(redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	s.logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- Metrics -----
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// ----- JWT Manager -----
	if s.cfg.JWT.Ephemeral {
		if s.cfg.IsProduction() {
			return fmt.Errorf("JWT_EPHEMERAL_KEY is not allowed in production")
		}
		s.logger.Warn("signing with an ephemeral key, tokens will not survive a restart")
	}
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(pool)
	authRepo := postgres.NewAuthRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	checkinRepo := postgres.NewCheckinRepository(pool)
	freezeRepo := postgres.NewStreakFreezeRepository(pool)

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient, authRepo, s.logger)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Mail queue -----
	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: redisCfg.Address, Password: redisCfg.Password, DB: redisCfg.DB})
	defer queue.Close()

	// ----- WebSocket Hub -----
	var authService *authUsecase.AuthService
	hub := websocket.NewHub(validatorFunc(func(ctx context.Context, token string) (*jwt.Claims, error) {
		return authService.ValidateToken(ctx, token)
	}), collector, s.logger)
	hub.RegisterHandler(wsHandlers.NewStreakHandler(checkinRepo))

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// ----- Services (Usecases) -----
	authService = authUsecase.NewAuthService(authUsecase.Dependencies{
		Users:          userRepo,
		Sessions:       authRepo,
		JWT:            jwtManager,
		SessionManager: sessionManager,
		RateLimiter:    rateLimiter,
		Email:          authUsecase.NewEmailHelper(queue, s.logger, s.cfg.FrontendURL),
		Notifier:       hub,
		Metrics:        collector,
		Cache:          redisClient,
		Logger:         s.logger,
	})

	boards := leaderboardUsecase.NewService(userRepo, eventRepo, redisClient, s.cfg.LeaderboardCacheTTL, s.logger)
	userService := userUsecase.NewUserService(userRepo, boards, authService, s.logger)
	eventService := eventUsecase.NewEventService(eventRepo, boards, hub, s.logger)
	checkinService := checkinUsecase.NewCheckinService(checkinUsecase.Dependencies{
		Checkins:     checkinRepo,
		Participants: eventRepo,
		Freezes:      freezeRepo,
		Boards:       boards,
		Publisher:    hub,
		Metrics:      collector,
		Logger:       s.logger,
	})
	freezeService := freezeUsecase.NewService(freezeRepo, eventRepo, s.logger)

	// ----- Initialize Super Admin -----
	if err := s.initializeSuperAdmin(ctx, authService); err != nil {
		// Don't fail startup, just log the error
		s.logger.Error("failed to initialize super admin", zap.Error(err))
	}

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService, s.cfg.SessionCookieName)

	guardCfg := middleware.RouteGuardConfig{CookieName: s.cfg.SessionCookieName, SecureCookie: s.cfg.CookieSecure}
	if s.cfg.GuardValidateSession {
		guardCfg.Validator = authService
	}

	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger, collector),
		middleware.SecurityMiddleware(s.cfg.IsProduction()),
		middleware.CORSMiddleware(s.cfg.CORSAllowedOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler: authHandler.NewAuthHandler(authService, authHandler.CookieConfig{
			Name:   s.cfg.SessionCookieName,
			Domain: s.cfg.CookieDomain,
			Secure: s.cfg.CookieSecure,
		}, s.logger),
		UserHandler:    userHandler.NewUserHandler(userService, s.logger),
		EventHandler:   eventHandler.NewEventHandler(eventService, s.logger),
		CheckinHandler: checkinHandler.NewCheckinHandler(checkinService, s.logger),
		FreezeHandler:  checkinHandler.NewFreezeHandler(freezeService),
		WSHandler:      wsHandler.NewWebSocketHandler(hubCtx, hub, s.cfg.CORSAllowedOrigins, s.cfg.SessionCookieName, s.logger),
		Health: NewHealthHandler(version, map[string]Pinger{
			"postgres": pool,
			"redis":    PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		}),
		Metrics:        metrics.Handler(registry),
		Web:            NewWebShell(s.cfg.WebRoot, middleware.NewRouteGuard(guardCfg)),
		AuthMiddleware: authMiddleware,
	})

	// ----- Start HTTP -----
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr), zap.String("env", s.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initializeSuperAdmin creates the configured admin if none exists
func (s *Server) initializeSuperAdmin(ctx context.Context, authService *authUsecase.AuthService) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.cfg.SuperAdminPassword != "" && len(s.cfg.SuperAdminPassword) < 8 {
		return fmt.Errorf("super admin password must be at least 8 characters")
	}

	if err := authService.EnsureSuperAdminExists(ctx, s.cfg.SuperAdminEmail, s.cfg.SuperAdminPassword, s.cfg.SuperAdminUsername); err != nil {
		return fmt.Errorf("failed to ensure super admin exists: %w", err)
	}
	return nil
}
