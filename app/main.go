package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/newsbell/app/api"
	"github.com/lysyi3m/newsbell/app/cfg"
	"github.com/lysyi3m/newsbell/app/database"
	"github.com/lysyi3m/newsbell/app/engine"
	"github.com/lysyi3m/newsbell/app/feed"
	"github.com/lysyi3m/newsbell/app/notify"
	"github.com/lysyi3m/newsbell/app/source"
	"github.com/lysyi3m/newsbell/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if errors.Is(err, cfg.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	setupLogger(appConfig.Debug)

	slog.Info("Starting newsbell", "version", appConfig.Version)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		fatal("Failed to open database", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		fatal("Failed to run migrations", err)
	}
	slog.Debug("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		fatal("Failed to load source configurations", err)
	}

	rules, err := feed.LoadRules(appConfig.RulesFile)
	if err != nil {
		fatal("Failed to load classification rules", err)
	}

	itemRepo := database.NewItemRepository(db)
	sourceRepo := database.NewSourceRepository(db)

	sourceConfigs := configCache.GetEnabledConfigs()
	slog.Info("Sources loaded", "enabled", len(sourceConfigs), "total", configCache.GetConfigCount(), "rules", len(rules))

	if err := tasks.Run(context.Background(), tasks.NewSyncSourcesTask(sourceConfigs, sourceRepo)); err != nil {
		slog.Warn("Failed to sync sources", "error", err)
	}

	sources, timeouts := buildSources(sourceConfigs)

	dispatcher, closeDispatcher := buildDispatcher()
	defer closeDispatcher()

	scheduler := tasks.NewScheduler(
		sources,
		feed.NewNormalizer(),
		engine.New(itemRepo, feed.NewClassifier(rules)),
		itemRepo,
		sourceRepo,
		dispatcher,
		tasks.Options{
			Interval:       appConfig.RefreshInterval,
			SourceTimeout:  appConfig.SourceTimeout,
			SourceTimeouts: timeouts,
			Notify:         appConfig.Notify,
			NotifyLimit:    appConfig.NotifyLimit,
		},
	)

	if appConfig.Once {
		report, _ := scheduler.RunOnce(context.Background(), tasks.TriggerManual)
		if report != nil && report.Err != nil {
			os.Exit(1)
		}
		return
	}

	scheduler.Start()

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)

	if appConfig.Port != "" {
		opener := notify.NewOpener(itemRepo, notify.URLHandlerFunc(func(ctx context.Context, url string) error {
			slog.Info("Opening item", "url", url)
			return nil
		}))
		handler := api.NewHandler(itemRepo, sourceRepo, configCache, opener, scheduler, api.HandlerOptions{
			BaseURL: appConfig.BaseUrl,
			Version: appConfig.Version,
		})

		httpServer = &http.Server{
			Addr:         ":" + appConfig.Port,
			Handler:      api.NewServer(handler, appConfig.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("HTTP server listening", "port", appConfig.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}

	scheduler.Stop()

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func buildSources(configs []*feed.SourceConfig) ([]source.Source, map[string]time.Duration) {
	opts := source.Options{
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		UserAgent:  cfg.Get().UserAgent,
		Extractor:  feed.NewSummaryExtractor(),
	}

	sources := make([]source.Source, 0, len(configs))
	timeouts := make(map[string]time.Duration)

	for _, config := range configs {
		src, err := source.New(config, opts)
		if err != nil {
			slog.Warn("Skipping source", "source", config.Name, "error", err)
			continue
		}
		sources = append(sources, src)

		if config.Settings.Timeout > 0 {
			timeouts[config.Name] = time.Duration(config.Settings.Timeout) * time.Second
		}
	}

	return sources, timeouts
}

// buildDispatcher returns the configured delivery targets. With none, new
// items are only logged.
func buildDispatcher() (notify.Dispatcher, func()) {
	appConfig := cfg.Get()

	var targets notify.Fanout
	closeFn := func() {}

	if appConfig.WebhookURL != "" {
		targets = append(targets, notify.NewWebhookDispatcher(appConfig.WebhookURL, appConfig.UserAgent))
	}

	if appConfig.AMQPURL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(notify.AMQPConfig{
			URL:        appConfig.AMQPURL,
			Exchange:   appConfig.AMQPExchange,
			RoutingKey: appConfig.AMQPRoutingKey,
			QueueName:  appConfig.AMQPQueue,
		})
		if err != nil {
			slog.Warn("RabbitMQ notifications disabled", "error", err)
		} else {
			targets = append(targets, amqpDispatcher)
			closeFn = func() { amqpDispatcher.Close() }
		}
	}

	if len(targets) == 0 {
		slog.Info("No notification targets configured, new items are logged only")
	}

	return notify.NewPaced(targets, appConfig.NotifyInterval, appConfig.NotifyBurst), closeFn
}
