package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/traitors/server/internal/app"
	"github.com/traitors/server/internal/infra"
	"github.com/traitors/server/internal/provider"
	"github.com/traitors/server/internal/repository"
	"github.com/traitors/server/internal/repository/memory"
	"github.com/traitors/server/internal/service"
	"github.com/traitors/server/internal/storage"
)

func serve(parent context.Context, cfg *infra.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	store, pool, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	objects, err := openObjectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	var publisher service.EventPublisher
	switch {
	case cfg.EventOutbox && pool != nil:
		outbox := repository.NewOutboxRepository(pool)
		publisher = outbox
		relayDone := infra.NewOutboxRelay(outbox, producer, cfg.OutboxPollInterval, logger).Start(ctx)
		defer func() {
			stop()
			<-relayDone
		}()
	case producer.Enabled():
		publisher = producer
	}

	router := app.NewRouter(app.RouterDeps{
		Store:            store,
		Objects:          objects,
		Random:           provider.NewRandomOrgClient(cfg.RandomOrgAPIKey, logger),
		Publisher:        publisher,
		Logger:           logger,
		SessionSecret:    cfg.SessionSecret,
		SessionTTL:       cfg.SessionTTL,
		CookieSecure:     cfg.CookieSecure,
		GameMasterSecret: cfg.GameMasterSecret,
		CardDrawCooldown: cfg.CardDrawCooldown,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimit:    cfg.AuthRateLimit,
		TrustedProxies:   trustedProxies,
		PublicURL:        cfg.PublicURL,
	})
	if cfg.GameMasterSecret == "" {
		logger.Warn("GAME_MASTER_SECRET is not set; game master registration is disabled")
	}

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr,
			"storage", cfg.StorageBackend,
			"sessions", cfg.SessionBackend,
			"objects", cfg.ObjectStorageBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// openStore builds the repository set for the configured backends. The pool
// is nil unless STORAGE_BACKEND=postgres. The returned cleanup closes
// whatever connections were opened.
func openStore(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (repository.Store, *pgxpool.Pool, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store repository.Store
	var pool *pgxpool.Pool
	switch cfg.StorageBackend {
	case infra.BackendPostgres:
		if cfg.AutoMigrate {
			if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
				return store, nil, cleanup, fmt.Errorf("run migrations: %w", err)
			}
		}
		var err error
		pool, err = infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return store, nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		logger.Info("connected to postgres")
		store = repository.NewPostgresStore(pool)
	default:
		logger.Warn("using in-memory storage; all game state is lost on restart")
		store = memory.NewStore()
	}

	switch cfg.SessionBackend {
	case infra.BackendRedis:
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return store, nil, func() {}, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		logger.Info("connected to redis")
		store.Sessions = repository.NewRedisSessionRepository(client)
	case infra.BackendMemory:
		if cfg.StorageBackend != infra.BackendMemory {
			store.Sessions = memory.NewStore().Sessions
		}
	}

	return store, pool, cleanup, nil
}

func openObjectStore(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if cfg.ObjectStorageBackend == infra.BackendS3 {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3PrivatePrefix,
			UploadTTL: cfg.UploadURLTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 object store: %w", err)
		}
		logger.Info("object storage on s3", "bucket", cfg.S3Bucket)
		return s3Store, nil
	}
	logger.Warn("using in-memory object storage; uploads are lost on restart")
	return storage.NewMemoryStore(cfg.PublicURL, cfg.UploadURLTTL), nil
}
