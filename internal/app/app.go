package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"domus-api/internal/config"
	"domus-api/internal/database"
	"domus-api/internal/event"
	"domus-api/internal/handler"
	"domus-api/internal/middleware"
	"domus-api/internal/repository"
	"domus-api/internal/router"
	"domus-api/internal/security"
	"domus-api/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	slog.Info("database ready")

	hasher := security.NewPasswordHasher()
	signer := security.NewTokenSigner(cfg.AuthPrivateKey, cfg.AuthIssuer, cfg.AuthAudience, cfg.AccessTTL)
	verifier := security.NewTokenVerifier(cfg.AuthPublicKey, cfg.AuthIssuer, cfg.AuthAudience)

	bus := event.NewBus()
	authService := service.NewAuthService(userRepo, tokenRepo, hasher, signer, bus, cfg.AccessTTL, cfg.RefreshTTL)
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	authHandler := handler.NewAuthHandler(authService)

	appRouter := router.New(cfg, authMiddleware, authHandler)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go runTokenCleanup(cleanupCtx, tokenRepo, cfg.TokenCleanupInterval)
	go runAuditLog(cleanupCtx, bus)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			cleanupCancel,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}

// runAuditLog drains auth lifecycle events into the structured log. A
// dedicated SIEM sink could subscribe here instead.
func runAuditLog(ctx context.Context, bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			slog.Info("auth event",
				"type", e.Type,
				"user_id", e.UserID,
				"email", e.Email,
				"occurred_at", e.OccurredAt.Format(time.RFC3339),
			)
		}
	}
}

// runTokenCleanup periodically removes expired refresh token rows. Expiry is
// always checked at redemption time; this only keeps the table from growing.
func runTokenCleanup(ctx context.Context, tokenRepo *repository.TokenRepository, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokenRepo.CleanExpired(ctx)
			if err != nil {
				slog.Error("refresh token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("removed expired refresh tokens", "count", removed)
			}
		}
	}
}
