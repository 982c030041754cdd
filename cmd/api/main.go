package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/feedlift/feedlift-backend/api/routes"
	"github.com/feedlift/feedlift-backend/internal/assist"
	"github.com/feedlift/feedlift-backend/internal/audit"
	"github.com/feedlift/feedlift-backend/internal/messaging"
	"github.com/feedlift/feedlift-backend/internal/notifications"
	"github.com/feedlift/feedlift-backend/internal/orders"
	"github.com/feedlift/feedlift-backend/internal/payments"
	internalsync "github.com/feedlift/feedlift-backend/internal/sync"
	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/db"
	"github.com/feedlift/feedlift-backend/pkg/evolution"
	"github.com/feedlift/feedlift-backend/pkg/llm"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/mercadopago"
	"github.com/feedlift/feedlift-backend/pkg/migrate"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
	"github.com/feedlift/feedlift-backend/pkg/outbox/idempotency"
	"github.com/feedlift/feedlift-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	replayGuard, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create replay guard", err)
		os.Exit(1)
	}

	mpClient, err := mercadopago.NewClient(context.Background(), cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercadopago client", err)
		os.Exit(1)
	}

	waClient, err := evolution.NewClient(context.Background(), cfg.WhatsApp, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create whatsapp client", err)
		os.Exit(1)
	}

	provider, err := llm.NewFromConfig(cfg.LLM, logg)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			logg.Error(context.Background(), "failed to create llm provider", err)
			os.Exit(1)
		}
		logg.Warn(context.Background(), "llm provider not configured, assist falls back to canned responses")
		provider = nil
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	auditRecorder := audit.NewRecorder(gormDB, logg)
	ordersRepo := orders.NewRepository(gormDB)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:            payments.NewRepository(gormDB),
		Orders:          ordersRepo,
		Tx:              dbClient,
		Outbox:          outboxService,
		Provider:        mpClient,
		Guard:           replayGuard,
		Logger:          logg,
		NotificationURL: cfg.MercadoPago.NotificationURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	syncService, err := internalsync.NewService(internalsync.ServiceParams{
		Repo:    ordersRepo,
		Checker: internalsync.NewSimulatedChecker(0),
		Tx:      dbClient,
		Outbox:  outboxService,
		Audit:   auditRecorder,
		Logger:  logg,
		Config:  cfg.Sync,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	subscriptionsService, err := notifications.NewSubscriptions(notifications.SubscriptionsParams{
		Repo:      notifications.NewRepository(gormDB),
		Audit:     auditRecorder,
		Logger:    logg,
		Retention: cfg.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	assistService, err := assist.NewService(assist.ServiceParams{
		Provider: provider,
		Audit:    auditRecorder,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assist service", err)
		os.Exit(1)
	}

	messagingService, err := messaging.NewService(messaging.ServiceParams{
		Repo:   messaging.NewRepository(gormDB),
		Orders: ordersRepo,
		Sender: waClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create messaging service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg,
			routes.Dependencies{DB: dbClient, Redis: redisClient},
			routes.Services{
				Orders:        ordersService,
				Payments:      paymentsService,
				Sync:          syncService,
				Subscriptions: subscriptionsService,
				Assist:        assistService,
				Messaging:     messagingService,
			},
			mpClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
