package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/understat-loader/internal/app"
	"github.com/riskibarqy/understat-loader/internal/config"
	"github.com/riskibarqy/understat-loader/internal/observability"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("load config", "error", err)
		return 1
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
	)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return 1
	}
	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := stopProfiling(shutdownCtx); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, err := app.NewLoader(ctx, cfg, logger)
	if err != nil {
		logger.Error("build loader", "error", err)
		return 1
	}
	defer func() {
		if err := loader.Close(); err != nil {
			logger.Warn("close loader", "error", err)
		}
	}()

	start := time.Now()
	result, err := loader.Run(ctx)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "scopes_loaded", len(result.Scopes))
		return 1
	}

	logger.Info("ingestion finished",
		"scopes", len(result.Scopes),
		"table_counts", result.TableCounts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return 0
}
