package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/merchant-console/internal/api/http"
	"github.com/spec-kit/merchant-console/internal/api/http/handlers"
	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/config"
	"github.com/spec-kit/merchant-console/internal/events"
	"github.com/spec-kit/merchant-console/internal/menu"
	"github.com/spec-kit/merchant-console/internal/observability"
	"github.com/spec-kit/merchant-console/internal/persistence"
	"github.com/spec-kit/merchant-console/internal/repository"
	"github.com/spec-kit/merchant-console/internal/service"
	"github.com/spec-kit/merchant-console/internal/upstream"
	"github.com/spec-kit/merchant-console/internal/worker"
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

	sessions, dependencies, closeStore := openSessionStore(ctx, cfg, logger)
	defer closeStore()

	nodes, err := menu.Load(cfg.Menu.File)
	if err != nil {
		logger.Fatal("failed to load menu", zap.String("file", cfg.Menu.File), zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, logger, 0)
	worker.StartAuditWorker(audit)

	codec := auth.NewTokenCodec(logger)
	oracle := auth.NewOracle(codec, dispatcher, logger)
	guard := auth.NewGuard(oracle, metrics, logger)

	sessionMiddleware := auth.NewSessionMiddleware(sessions, cfg.Session, logger)
	client := upstream.NewClient(cfg.Upstream, logger)
	authService := service.NewAuthService(client, codec, dispatcher, logger)
	console := service.NewConsoleService(nodes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dependencies = append(dependencies, handlers.Dependency{Name: "upstream", Pinger: client})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies...),
		Auth:    handlers.NewAuthHandler(authService, sessionMiddleware),
		Menu:    handlers.NewMenuHandler(console),
		Shell:   handlers.NewShellHandler(console, oracle),
		Proxy:   handlers.NewProxyHandler(client),
		Admin:   handlers.NewAdminHandler(metrics, audit),
		Session: sessionMiddleware,
		Guard:   guard,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openSessionStore connects the configured session backend and returns the repository,
// the dependencies readiness should check and a cleanup func.
func openSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SessionRepository, []handlers.Dependency, func()) {
	switch cfg.Session.Backend {
	case config.SessionBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repo := repository.NewPostgresSessionRepository(pg.Pool, cfg.Session.Retention())
		return repo, []handlers.Dependency{{Name: "postgres", Pinger: pg}}, pg.Close

	case config.SessionBackendMemory:
		logger.Warn("using in-memory sessions; they are lost on restart")
		return repository.NewMemorySessionRepository(), nil, func() {}

	default:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		repo := repository.NewRedisSessionRepository(redis.Client, cfg.Session.KeyPrefix, cfg.Session.Retention())
		return repo, []handlers.Dependency{{Name: "redis", Pinger: redis}}, redis.Close
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
