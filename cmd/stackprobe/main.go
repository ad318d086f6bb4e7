// Command stackprobe serves the technology-stack fingerprinting API.
//
// Usage:
//
//	stackprobe                          # defaults, SQLite under ./data
//	stackprobe -config stackprobe.yaml  # tuned via YAML
//
// Env overrides: PORT, DB_PATH, CHROME_WS, WEBHOOK_URL, WEBHOOK_SECRET,
// LOG_LEVEL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/stackprobe/jobq"
	"github.com/hazyhaar/stackprobe/notify"
	"github.com/hazyhaar/stackprobe/pipeline"
	"github.com/hazyhaar/stackprobe/rescan"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
	"github.com/hazyhaar/stackprobe/web"
)

func main() {
	configPath := flag.String("config", "", "path to stackprobe.yaml config file")
	flag.Parse()

	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath); err != nil {
		logger.Error("stackprobe: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":" + env("PORT", "8080")
	}
	dbPath := cfg.DBPath
	if v := os.Getenv("DB_PATH"); v != "" {
		dbPath = v
	}
	if dbPath == "" {
		dbPath = "data/stackprobe.db"
	}
	if v := os.Getenv("CHROME_WS"); v != "" {
		cfg.Browser.RemoteURL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notify.URL = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Notify.Secret = v
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	cfg.Queue.Logger = logger
	queue := jobq.New(st.DB(), cfg.Queue)
	if err := queue.EnsureTable(ctx); err != nil {
		return err
	}

	scanner := scan.NewScanner(cfg.Passive, logger)
	cfg.Browser.Logger = logger
	renderer := pipeline.NewBrowserRenderer(cfg.Browser, cfg.Render, cfg.Probe, logger)
	coord := pipeline.New(st, queue, scanner, renderer, logger)

	var notifier rescan.Notifier
	if cfg.Notify.URL != "" {
		wh, err := notify.NewWebhook(cfg.Notify, logger)
		if err != nil {
			return err
		}
		notifier = wh
	}
	worker := rescan.New(cfg.Rescan, st, scanner, notifier, logger)

	go coord.RunRenderWorker(ctx)
	go worker.Run(ctx)

	server := web.NewServer(cfg.Web, coord, st, logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stackprobe: server starting", "addr", addr, "db", dbPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("stackprobe: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("stackprobe: shutdown", "error", err)
	}
	logger.Info("stackprobe: server stopped")
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
