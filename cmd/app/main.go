package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"renewdesk/internal/api"
	"renewdesk/internal/cache"
	"renewdesk/internal/config"
	"renewdesk/internal/dashboard"
	"renewdesk/internal/httpserver"
	"renewdesk/internal/logging"
	"renewdesk/internal/metrics"
	"renewdesk/internal/notice"
	"renewdesk/internal/repo"
	"renewdesk/internal/store"
	"renewdesk/internal/wa"
	"renewdesk/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting renewdesk", "env", cfg.AppEnv, "api", cfg.APIBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)
	loc := cfg.Location()

	repository, err := repo.Open(ctx, repo.Options{
		Driver:      cfg.StateDriver,
		SQLitePath:  cfg.StateSQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		Schema:      cfg.DatabaseSchema,
	}, migrations.Files, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()
	logger.Info("state store ready", "driver", cfg.StateDriver)

	// The flusher writes the last preferences after ctx ends, so it must
	// finish before the repository closes.
	prefs := store.Rehydrate(ctx, repository, cfg.StateProfile, logger)
	flusher := store.NewFlusher(repository, cfg.StateProfile, logger, metricRegistry)
	var flushWG sync.WaitGroup
	flushWG.Add(1)
	go func() {
		defer flushWG.Done()
		flusher.Run(ctx)
	}()
	defer func() {
		stop()
		flushWG.Wait()
	}()

	ui := store.NewUI(prefs, metricRegistry)
	ui.OnPersist(flusher.Publish)
	stores := dashboard.Stores{
		Cache:         store.NewCache(metricRegistry),
		UI:            ui,
		Notifications: store.NewNotifications(store.RealScheduler{}, cfg.NotificationLifetime, metricRegistry),
		Modals:        store.NewModals(),
	}
	defer stores.Notifications.Clear()

	var redisClient *cache.Redis
	if cfg.RedisAddr != "" {
		redisClient = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
	}

	apiClient := api.New(api.Config{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.APITimeout,
		DashboardTTL: cfg.DashboardCacheTTL,
	}, logger, metricRegistry, redisClient)

	session := dashboard.New(apiClient, stores, loc, logger)
	if err := session.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", "error", err)
	}

	var dispatcher *notice.Dispatcher
	if cfg.NoticeEnabled {
		messenger, closeMessenger, err := newMessenger(ctx, cfg, apiClient, ui, metricRegistry, logger)
		if err != nil {
			return err
		}
		defer closeMessenger()

		dispatcher = notice.New(apiClient, messenger, repository, notice.Config{
			Channel: cfg.NoticeChannel,
			Defaults: notice.Defaults{
				Start:    cfg.NoticeWindowStart,
				End:      cfg.NoticeWindowEnd,
				Days:     cfg.NoticeDays,
				Interval: cfg.NoticeInterval,
			},
			Suppression: cfg.NoticeSuppression,
			Location:    loc,
			Metrics:     metricRegistry,
		}, logger)
	}

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.SyncSchedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 2*cfg.APITimeout)
		defer cancel()
		if err := session.Refresh(jobCtx); err != nil {
			logger.Warn("scheduled refresh failed", "error", err)
			metricRegistry.Errors.WithLabelValues("sync").Inc()
		}
	}); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	if dispatcher != nil {
		if _, err := scheduler.AddFunc(cfg.NoticeSchedule, func() {
			if _, err := dispatcher.Run(ctx); err != nil {
				logger.Warn("scheduled notice run failed", "error", err)
				metricRegistry.Errors.WithLabelValues("notice").Inc()
			}
		}); err != nil {
			return fmt.Errorf("schedule notices: %w", err)
		}
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	deps := httpserver.Dependencies{
		Session:    session,
		Dispatches: repository,
	}
	if dispatcher != nil {
		deps.Notices = dispatcher
	}
	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, deps, cfg.HTTPBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

// newMessenger returns the channel notices are sent through and its cleanup.
func newMessenger(ctx context.Context, cfg config.Config, apiClient *api.Client, ui *store.UI, m *metrics.Metrics, logger *slog.Logger) (notice.Messenger, func(), error) {
	if cfg.NoticeChannel != "local" {
		logger.Info("notices go through the remote channel")
		return notice.Remote{API: apiClient}, func() {}, nil
	}

	waClient, err := wa.New(ctx, wa.Config{
		StorePath: cfg.WhatsAppStorePath,
		LogLevel:  cfg.WhatsAppLogLevel,
		Metrics:   m,
	}, ui, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init whatsapp client: %w", err)
	}
	if err := waClient.Start(ctx); err != nil {
		waClient.Close()
		return nil, nil, fmt.Errorf("start whatsapp client: %w", err)
	}
	return waClient, waClient.Close, nil
}
