package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tubedesk/backend/internal/config"
	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/handlers"
	"github.com/tubedesk/backend/internal/httpserver"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/middleware"
	"github.com/tubedesk/backend/internal/proxy"
)

// Run bootstraps the TubeDesk backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, seed, or proxy")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	switch args[0] {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		return runMigrations(ctx, cfg, logger, args[1:])
	case "seed":
		return runSeed(ctx, cfg, logger, args[1:])
	case "proxy":
		return serveProxy(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildDependencies(ctx, pool, cfg)
	if err != nil {
		return err
	}
	deps.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	metrics := middleware.NewMetrics(registry)
	handler := middleware.RequestLogger(logger)(metrics.Handler(mux))

	return httpserver.Run(ctx, logger, httpserver.New(cfg.AppPort, handler, httpserver.WithErrorLogger(logger)))
}

func serveProxy(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	forward, err := proxy.New(cfg.ProxyUpstream)
	if err != nil {
		return err
	}

	logger.Info("forwarding api requests", "upstream", cfg.ProxyUpstream)
	handler := middleware.RequestLogger(logger)(forward)
	return httpserver.Run(ctx, logger, httpserver.New(cfg.ProxyPort, handler, httpserver.WithErrorLogger(logger)))
}

func runSeed(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	seedPath, err := seedFile(cfg.SeedDir, args[0])
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", filepath.Base(seedPath), err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply seed %s: %w", filepath.Base(seedPath), err)
	}

	logger.Info("applied seed", "file", seedPath)
	return nil
}

// seedFile resolves "dev" to <dir>/dev_seed.sql relative to the working directory.
func seedFile(dir, name string) (string, error) {
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	if !strings.HasSuffix(name, ".sql") {
		name = fmt.Sprintf("%s_seed.sql", name)
	}
	if filepath.Base(name) != name {
		return "", fmt.Errorf("seed name %q must not contain a path", name)
	}
	return filepath.Join(dir, name), nil
}
