package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/ai"
	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notification"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/storage"
	"github.com/spec-kit/support-desk/internal/worker"
)

// repositories groups the backend-specific repository implementations.
type repositories struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	categories  repository.CategoryRepository
	pinger      handlers.Pinger
	close       func()
}

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

	metrics := observability.NewMetrics()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer repos.close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	store, err := storage.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		logger.Fatal("failed to prepare attachment storage", zap.Error(err))
	}
	logger.Info("attachment storage ready", zap.String("root", store.Root()))

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAttachmentCleanupWorker(dispatcher, store, logger)

	var mailer service.TicketMailer
	if cfg.Notification.Enabled {
		d, err := notification.NewDispatcher(cfg.SMTP, store, logger)
		if err != nil {
			logger.Warn("ticket notifications disabled", zap.Error(err))
		} else {
			mailer = d
		}
	}
	notifier := service.NewNotificationService(mailer, logger, metrics, cfg.Notification)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repos.tickets,
		AttachmentRepo: repos.attachments,
		CategoryRepo:   repos.categories,
		Store:          store,
		Notifier:       notifier,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
		Config:         cfg.Tickets,
	})

	suggestionDeps := service.SuggestionDependencies{
		Cache:    redis.Cache(),
		CacheTTL: cfg.Redis.SuggestionCacheTTL,
		Logger:   logger,
		Metrics:  metrics,
	}
	aiClient, err := ai.NewClient(cfg.AI, logger, ai.WithAttemptObserver(metrics.RecordAIAttempt))
	if err != nil {
		logger.Warn("AI suggestions disabled", zap.Error(err))
	} else {
		suggestionDeps.Client = aiClient
	}
	suggestionService := service.NewSuggestionService(suggestionDeps)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimit(),
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			cfg.Store.Driver: repos.pinger,
			"redis":          redis,
		}),
		Tickets:     handlers.NewTicketsHandler(ticketService),
		Suggestions: handlers.NewSuggestionsHandler(suggestionService),
		Metrics:     metrics.Handler(),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories, error) {
	if cfg.Store.Driver == config.StorePostgres {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		pool := pg.PoolHandle()
		return &repositories{
			tickets:     repository.NewTicketRepository(pool),
			attachments: repository.NewAttachmentRepository(pool),
			categories:  repository.NewCategoryRepository(pool),
			pinger:      pg,
			close:       pg.Close,
		}, nil
	}

	db, err := persistence.NewBolt(cfg.Bolt, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.InitBoltBuckets(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &repositories{
		tickets:     repository.NewBoltTicketRepository(db.DB),
		attachments: repository.NewBoltAttachmentRepository(db.DB),
		categories:  repository.NewBoltCategoryRepository(db.DB),
		pinger:      db,
		close:       db.Close,
	}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
