package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/config"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/db"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/mq"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/remote"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/repository"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/service"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/validator"
)

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.ProcessorService,
) (*mq.Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.TriggerQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.TriggerExchange,
		RoutingKey:       cfg.RabbitMQ.TriggerRoutingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: processor.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting sync trigger consumer",
				zap.String("queue", cfg.RabbitMQ.TriggerQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// startScheduler runs full syncs on the configured cron schedule.
// Disabled when SYNC_FULL_CRON is empty; the worker then syncs only on
// trigger messages.
func startScheduler(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	syncService *service.SyncService,
) error {
	if cfg.Sync.FullSyncCron == "" {
		logger.Info("full sync scheduler disabled")
		return nil
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Sync.FullSyncCron, func() {
		logger.Info("scheduled full sync starting", zap.String("cron", cfg.Sync.FullSyncCron))
		if _, err := syncService.RunFullSync(context.Background()); err != nil {
			logger.Error("scheduled full sync failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("full sync scheduler started", zap.String("cron", cfg.Sync.FullSyncCron))
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			logger.Info("full sync scheduler stopped")
			return nil
		},
	})

	return nil
}

// ProvideDBPool creates the central store pool
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideResolver creates the remote config resolver
func ProvideResolver(cfg *config.Config) *remote.Resolver {
	return remote.NewResolver(
		cfg.Remote.User,
		cfg.Remote.Password,
		cfg.Remote.Port,
		cfg.Remote.DomainSuffix,
	)
}

// ProvidePoolRegistry creates the remote pool registry and closes all
// pools at shutdown
func ProvidePoolRegistry(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) *remote.Registry {
	registry := remote.NewRegistry(
		cfg.Remote.MaxOpenConns,
		time.Duration(cfg.Remote.ConnectTimeoutSeconds)*time.Second,
		logger,
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			registry.CloseAll()
			logger.Info("remote pools closed")
			return nil
		},
	})

	return registry
}

// ProvideFetcher creates a new raw data fetcher instance
func ProvideFetcher(registry *remote.Registry) *remote.Fetcher {
	return remote.NewFetcher(registry)
}

// ProvideValidator creates a new trigger validator instance
func ProvideValidator() *validator.Validator {
	return validator.NewValidator()
}

// ProvideSyncService creates a new sync orchestrator instance
func ProvideSyncService(
	repo *repository.Repository,
	fetcher *remote.Fetcher,
	registry *remote.Registry,
	resolver *remote.Resolver,
	logger *zap.Logger,
) *service.SyncService {
	return service.NewSyncService(repo, fetcher, registry, resolver, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
}

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(
	syncService *service.SyncService,
	publisher *mq.Publisher,
	v *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ProcessorService {
	return service.NewProcessorService(syncService, publisher, v, cfg, logger)
}
