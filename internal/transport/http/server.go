package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clipfeed/internal/config"
	"clipfeed/internal/database"
	"clipfeed/internal/dispatch"
	"clipfeed/internal/logger"
	"clipfeed/internal/media"
	"clipfeed/internal/metrics"
	"clipfeed/internal/queue"
	"clipfeed/internal/redis"
	"clipfeed/internal/repository"
	"clipfeed/internal/service"
	"clipfeed/internal/worker"
)

const (
	shutdownTimeout  = 15 * time.Second
	sessionPurgeTick = time.Hour
	sessionRetention = 7 * 24 * time.Hour
)

// Run starts the API and blocks until SIGINT or SIGTERM.
func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	log := logger.Named("server")

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to stores
	mongoClient, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.DisconnectMongo(mongoClient)

	mongoDB := mongoClient.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, mongoDB); err != nil {
		return err
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	files, err := media.NewR2Store(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init media store: %w", err)
	}

	stores := Stores{
		Users:         repository.NewUserRepository(mongoDB),
		Videos:        repository.NewVideoRepository(mongoDB),
		Notifications: repository.NewNotificationRepository(mongoDB),
		Sessions:      repository.NewSessionRepository(db),
		Files:         files,
	}

	// 3. Background work
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		stores.Publisher = queue.NewPublisher(rdb.Client)

		manager := worker.NewManager(
			queue.NewConsumer(rdb.Client),
			worker.NewHandler(stores.Videos, stores.Users),
			worker.DefaultManagerConfig(),
		)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start stream workers: %w", err)
		}
		defer manager.Stop()
	} else {
		log.Info("REDIS_URL not set, view counts are written through the dispatch pool")
	}

	pool := dispatch.NewPool(dispatch.PoolConfig{
		Workers:     cfg.DispatchWorkers,
		QueueSize:   cfg.DispatchQueueSize,
		TaskTimeout: cfg.DispatchTaskTimeout,
	}, dispatch.Sinks{
		dispatch.LogSink{Log: logger.Named("dispatch")},
		dispatch.MetricsSink{Metrics: m},
	})
	pool.Start()
	defer pool.Stop()

	app := NewApp(cfg, stores, pool, m)
	go purgeSessions(ctx, app.Auth, log)

	// 4. Serve
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func purgeSessions(ctx context.Context, auth *service.AuthService, log *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.PurgeExpiredSessions(ctx, sessionRetention); err != nil {
				log.Warn("session purge failed", zap.Error(err))
			}
		}
	}
}
