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

	"github.com/huddlehq/huddle/config"
	"github.com/huddlehq/huddle/internal/clients/caldav"
	"github.com/huddlehq/huddle/internal/ics"
	"github.com/huddlehq/huddle/internal/scheduler"
	"github.com/huddlehq/huddle/internal/server"
	"github.com/huddlehq/huddle/internal/service"
	"github.com/huddlehq/huddle/internal/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to init storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	fetcher := ics.NewFetcher(cfg.FetchTimeout)
	if cfg.CalDAVURL != "" {
		fetcher.SetCalDAV(caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword))
	}

	tz := service.NewTimezoneResolver(store, cfg.DefaultTimezone)
	syncSvc := service.NewSyncService(store, fetcher, tz)

	handler := server.NewSyncHandler(syncSvc, store)
	router := server.NewRouter(cfg, handler)

	sched := scheduler.New(cfg, store, syncSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			slog.Error("scheduler error", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("syncd listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error stopping server", "err", err)
	}

	slog.Info("syncd stopped")
}
