package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-transmission/app/api"
	"github.com/lysyi3m/rss-transmission/app/cfg"
	"github.com/lysyi3m/rss-transmission/app/config"
	"github.com/lysyi3m/rss-transmission/app/database"
	"github.com/lysyi3m/rss-transmission/app/feed"
	"github.com/lysyi3m/rss-transmission/app/metrics"
	"github.com/lysyi3m/rss-transmission/app/seen"
	"github.com/lysyi3m/rss-transmission/app/tasks"
	"github.com/lysyi3m/rss-transmission/app/transmission"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg)

	slog.Info("Starting RSS Transmission",
		"version", appCfg.Version,
		"config", appCfg.ConfigPath,
		"once", appCfg.Once)

	loader := config.NewLoader(appCfg.ConfigPath)
	settings, err := loader.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	seenStore, err := seen.Load(settings.SeenFile, seen.DefaultCapacity)
	if err != nil {
		slog.Error("Failed to load seen store", "path", settings.SeenFile, "error", err)
		os.Exit(1)
	}
	metrics.SetSeenEntries(seenStore.Len())
	slog.Info("Seen store loaded", "path", settings.SeenFile, "entries", seenStore.Len())

	client := transmission.NewClient(transmission.Options{
		URL:       settings.RPCURL(),
		Username:  settings.Login.Username,
		Password:  settings.Login.Password,
		Timeout:   settings.GetTimeout(),
		UserAgent: appCfg.UserAgent,
	})

	deps := &tasks.Dependencies{
		Client:  client,
		Seen:    seenStore,
		Fetcher: feed.NewFetcher(appCfg.UserAgent, settings.GetTimeout()),
		Parser:  feed.NewParser(),
	}

	var (
		feedHistory    api.FeedHistoryReader
		submissionRepo api.SubmissionReader
	)

	if appCfg.DBPath != "" {
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			slog.Error("Failed to open history database", "path", appCfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("History database ready", "path", appCfg.DBPath, "version", version, "dirty", dirty)

		feedRepo := database.NewFeedRepository(db)
		submissions := database.NewSubmissionRepository(db)

		deps.FeedHistory = feedRepo
		deps.Submissions = submissions
		feedHistory = feedRepo
		submissionRepo = submissions
	}

	var notifier tasks.ChangeNotifier
	if appCfg.WatchConfig && !appCfg.Once {
		watcher, err := config.NewWatcher(loader.Path())
		if err != nil {
			slog.Warn("Configuration watcher disabled", "error", err)
		} else {
			defer watcher.Close()
			notifier = watcher
		}
	}

	scheduler := tasks.NewScheduler(loader, settings, deps, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appCfg.Once {
		if err := scheduler.RunOnce(ctx); err != nil {
			slog.Warn("Single run interrupted", "error", err)
		}
		slog.Info("Single run mode, exiting")
		return
	}

	scheduler.Start()

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)

	if appCfg.ListenAddr != "" {
		handler := api.NewHandler(scheduler, seenStore, feedHistory, submissionRepo, appCfg.Version)
		httpServer = &http.Server{
			Addr:         appCfg.ListenAddr,
			Handler:      api.NewServer(handler, appCfg.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "addr", appCfg.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}

	scheduler.Stop()
	slog.Info("Shutdown complete")
}

func setupLogger(appCfg *cfg.Cfg) {
	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if appCfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
