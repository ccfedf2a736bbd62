package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/delivergaz-api/internal/api/http"
	"github.com/spec-kit/delivergaz-api/internal/api/http/handlers"
	"github.com/spec-kit/delivergaz-api/internal/auth"
	"github.com/spec-kit/delivergaz-api/internal/config"
	"github.com/spec-kit/delivergaz-api/internal/events"
	"github.com/spec-kit/delivergaz-api/internal/observability"
	"github.com/spec-kit/delivergaz-api/internal/persistence"
	"github.com/spec-kit/delivergaz-api/internal/repository"
	"github.com/spec-kit/delivergaz-api/internal/service"
	"github.com/spec-kit/delivergaz-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	})
	cartService := service.NewCartService(cfg.Cart, service.CartDependencies{
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		Dispatcher:  dispatcher,
	}, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	rateLimiter := auth.NewUserRateLimiter(cfg.Auth.RateLimitMaxRequests, cfg.Auth.RateLimitWindow())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, cartService, logger),
		Users:          handlers.NewUsersHandler(userRepo),
		Products:       handlers.NewProductsHandler(productRepo),
		Carts:          handlers.NewCartHandler(cartService),
		Orders:         handlers.NewOrdersHandler(),
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
	})

	reaper := worker.NewCartReaper(cartService, metrics, logger, cfg.Cart.CleanupInterval())
	go reaper.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
