package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aJLaxzzz/foodgram-st/config"
	"github.com/aJLaxzzz/foodgram-st/internal/api"
	"github.com/aJLaxzzz/foodgram-st/internal/database"
	"github.com/aJLaxzzz/foodgram-st/internal/logger"
	"github.com/aJLaxzzz/foodgram-st/internal/middleware"
	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/router"
	"github.com/aJLaxzzz/foodgram-st/internal/server"
	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/telemetry"
)

func main() {
	root := &cobra.Command{
		Use:          "foodgram-api",
		Short:        "Foodgram recipe sharing API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return err
	}
	if _, err := logger.Init(cfg.Env.Verbose(), cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return err
	}
	defer logger.Sync()

	logger.Info("starting foodgram api", zap.String("environment", string(cfg.Env)))

	models.SetBounds(models.Bounds{
		MinCookingTime:      cfg.Limits.MinCookingTime,
		MaxCookingTime:      cfg.Limits.MaxCookingTime,
		MinIngredientAmount: cfg.Limits.MinIngredientAmount,
		MaxIngredientAmount: cfg.Limits.MaxIngredientAmount,
	})

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return err
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Error("failed to run migrations", zap.Error(err))
		return err
	}

	rdb, err := database.NewRedisClient(cfg)
	if err != nil {
		// Redis only backs caches and the rate limiter, so run without it.
		logger.Warn("redis unavailable, continuing without it", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store, err := service.NewStorage(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize media storage", zap.Error(err))
		return err
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTelEndpoint, string(cfg.Env))
	if err != nil {
		logger.Error("failed to initialize tracing", zap.Error(err))
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: string(cfg.Env),
		}); err != nil {
			logger.Error("failed to initialize sentry", zap.Error(err))
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	var revoker service.TokenRevoker = service.NewDBRevoker(db)
	if rdb != nil {
		revoker = service.NewRedisRevoker(rdb)
	}

	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, revoker)
	users := service.NewUserService(db, store)
	links := service.NewShortLinkService(db, rdb)
	svc := api.Services{
		Auth:          auth,
		Users:         users,
		Subscriptions: service.NewSubscriptionService(db, users),
		Recipes:       service.NewRecipeService(db, store, links),
		Shopping:      service.NewShoppingListService(db),
		Links:         links,
		Catalog:       service.NewCatalogService(db),
	}

	var limiter *middleware.RateLimiter
	if cfg.RecipeRateLimit > 0 {
		limiter = middleware.NewRecipeCreationRateLimiter(rdb, cfg.RecipeRateLimit)
	}

	opts := router.Options{
		DB:          db,
		Services:    svc,
		Pages:       api.Pagination{DefaultLimit: cfg.PageSize, MaxLimit: cfg.MaxPageSize},
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		MediaURL:    cfg.MediaURL,
		Sentry:      cfg.SentryDSN != "",
		Tracing:     cfg.OTelEndpoint != "",
	}
	if local, ok := store.(*service.LocalStorage); ok {
		opts.MediaRoot = local.Root()
	}

	srv := server.New(cfg.Addr(), router.SetupRouter(opts))
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
