package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/provider"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
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
	resetRepo := repository.NewPasswordResetRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)
	messageRepo := repository.NewChannelMessageRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewTicketCommentRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	slaRepo := repository.NewSLARepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	factoryOpts := []provider.FactoryOption{
		provider.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Provider.HTTPTimeoutSeconds) * time.Second}),
	}
	if cfg.Provider.CacheTTLMinutes > 0 {
		factoryOpts = append(factoryOpts, provider.WithEvictionPolicy(provider.MaxAgeEviction{
			TTL: time.Duration(cfg.Provider.CacheTTLMinutes) * time.Minute,
		}))
	}
	factory := provider.NewFactory(logger, factoryOpts...)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	orgService := service.NewOrgService(service.OrgDependencies{
		CompanyRepo:    companyRepo,
		DepartmentRepo: departmentRepo,
		TeamRepo:       teamRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		CustomerRepo: customerRepo,
		UserRepo:     userRepo,
		TeamRepo:     teamRepo,
		SLARepo:      slaRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	intakeService := service.NewTicketIntakeService(service.IntakeDependencies{
		CustomerRepo:  customerRepo,
		TicketRepo:    ticketRepo,
		TicketService: ticketService,
		Logger:        logger,
	})
	channelService := service.NewChannelService(service.ChannelDependencies{
		ChannelRepo: channelRepo,
		TicketRepo:  ticketRepo,
		Factory:     factory,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	providerService := service.NewProviderService(service.ProviderDependencies{
		ChannelRepo:    channelRepo,
		MessageRepo:    messageRepo,
		Factory:        factory,
		Intake:         intakeService,
		Redis:          redis,
		Dispatcher:     dispatcher,
		Logger:         logger,
		WebhookBaseURL: cfg.Provider.WebhookBaseURL,
	})
	slaService := service.NewSLAService(slaRepo, ticketRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Org:            handlers.NewOrgHandler(orgService),
		Channels:       handlers.NewChannelsHandler(channelService, messageRepo),
		Providers:      handlers.NewProviderHandler(providerService),
		Webhooks:       handlers.NewWebhooksHandler(providerService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
