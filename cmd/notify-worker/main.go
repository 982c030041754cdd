package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/feedlift/feedlift-backend/internal/audit"
	"github.com/feedlift/feedlift-backend/internal/notifications"
	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/db"
	"github.com/feedlift/feedlift-backend/pkg/evolution"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/outbox/idempotency"
	"github.com/feedlift/feedlift-backend/pkg/pubsub"
	"github.com/feedlift/feedlift-backend/pkg/push"
	"github.com/feedlift/feedlift-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notify-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "notify-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notify-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	pushClient, err := push.NewClient(context.Background(), cfg.WebPush, logg)
	requireResource(ctx, logg, "push client", err)

	waClient, err := evolution.NewClient(context.Background(), cfg.WhatsApp, logg)
	requireResource(ctx, logg, "whatsapp client", err)

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:     notifications.NewRepository(dbClient.DB()),
		Push:     pushClient,
		WhatsApp: waClient,
		Audit:    audit.NewRecorder(dbClient.DB(), logg),
		Logger:   logg,
	})
	requireResource(ctx, logg, "notification dispatcher", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	fanout, err := notifications.NewConsumer(dispatcher, pubsubClient.NotificationSubscription(), manager, logg)
	requireResource(ctx, logg, "notification consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "notify worker ready")

	if err := fanout.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notify worker not working", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
