package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions" // cookie session store for the page routes
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/checklistpro/internal/config"   // Internal config loader
	"github.com/iliyamo/checklistpro/internal/database" // connection + migrations
	"github.com/iliyamo/checklistpro/internal/handler"
	"github.com/iliyamo/checklistpro/internal/middleware"
	"github.com/iliyamo/checklistpro/internal/repository"
	"github.com/iliyamo/checklistpro/internal/router" // Internal router setup
	"github.com/iliyamo/checklistpro/internal/seed"
	"github.com/iliyamo/checklistpro/internal/service"
	"github.com/iliyamo/checklistpro/pkg/logging"
)

func main() {
	logging.Setup()      // LOG_LEVEL driven slog + tint
	cfg := config.Load() // Load environment config

	db, err := openDB(cfg)
	if err != nil {
		slog.Error("open database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	// repositories
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	checklistRepo := repository.NewChecklistRepo(db)
	templateRepo := repository.NewTemplateRepo(db)

	if n, err := templateRepo.RebuildSearchText(context.Background()); err != nil {
		slog.Error("rebuild template search text", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Info("template search text rebuilt", "rows", n)
	}

	if cfg.SeedTemplates {
		n, err := seed.Run(context.Background(), templateRepo)
		if err != nil {
			slog.Error("seed system templates", "error", err)
			os.Exit(1)
		}
		slog.Info("system templates seeded", "inserted", n)
	}

	// services
	authSvc := service.NewAuthService(cfg, userRepo, tokenRepo)
	categorySvc := service.NewCategoryService(categoryRepo)
	checklistSvc := service.NewChecklistService(checklistRepo, categoryRepo, templateRepo)
	templateSvc := service.NewTemplateService(templateRepo, checklistRepo, categoryRepo)

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.AccessTTLMin * 60,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	rdb := config.NewRedisClient() // nil when redis is disabled or unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestLogger(slog.Default()), middleware.Metrics(), echomw.Recover())

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	g := router.Guards{
		API:        middleware.RequireAPIAuth(authSvc, store),
		Page:       middleware.RequirePageAuth(authSvc, store),
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:      cache.Middleware(),
		Invalidate: cache.Invalidate(),
	}

	categoryH := handler.NewCategoryHandler(categorySvc)
	checklistH := handler.NewChecklistHandler(checklistSvc)

	router.RegisterRoutes(e, db, rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, store), g)
	router.RegisterTemplates(e, handler.NewTemplateHandler(templateSvc), g)
	router.RegisterAPIReads(e, checklistH, categoryH, g)
	router.RegisterPages(e, handler.NewDashboardHandler(categorySvc, checklistSvc), checklistH, categoryH, g)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepTokens(ctx, authSvc, time.Hour)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server exited")
}

// sweepTokens drops long-expired refresh tokens until ctx ends.
func sweepTokens(ctx context.Context, auth *service.AuthService, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := auth.PurgeTokens(ctx)
			if err != nil {
				slog.Warn("token sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired refresh tokens purged", "count", n)
			}
		}
	}
}

// openDB connects to the driver selected by DB_DRIVER.
func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == database.DriverSQLite {
		return database.OpenSQLite(cfg.DBPath)
	}
	return database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
