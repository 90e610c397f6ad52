package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/understat-loader/external/understat"
	"github.com/riskibarqy/understat-loader/internal/config"
	"github.com/riskibarqy/understat-loader/internal/domain/record"
	"github.com/riskibarqy/understat-loader/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/understat-loader/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
	"github.com/riskibarqy/understat-loader/internal/platform/resilience"
	"github.com/riskibarqy/understat-loader/internal/usecase"
)

type tableStore interface {
	record.Sink
	record.Counter
}

// Loader is the wired ingestion process: Understat client, validating loader
// and the configured table sink.
type Loader struct {
	cfg       config.Config
	logger    *logging.Logger
	ingestion *usecase.IngestionService
	closers   []func() error
}

func NewLoader(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Loader, error) {
	if logger == nil {
		logger = logging.Default()
	}

	l := &Loader{cfg: cfg, logger: logger}
	store, err := l.openStore(ctx)
	if err != nil {
		return nil, err
	}

	client := understat.NewClient(understat.ClientConfig{
		BaseURL:    cfg.UnderstatBaseURL,
		Timeout:    cfg.UnderstatTimeout,
		MaxRetries: cfg.UnderstatMaxRetries,
		Workers:    cfg.UnderstatWorkers,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.UnderstatCircuitEnabled,
			FailureThreshold: cfg.UnderstatCircuitFailureCount,
			OpenTimeout:      cfg.UnderstatCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.UnderstatCircuitHalfOpenMaxReq,
		},
	})

	loader := usecase.NewLoaderService(store, logger)
	l.ingestion = usecase.NewIngestionService(client, loader, store, cfg.IngestWorkers, logger)
	return l, nil
}

func (l *Loader) openStore(ctx context.Context) (tableStore, error) {
	switch l.cfg.SinkMode {
	case config.SinkMemory:
		l.logger.Warn("memory sink selected, rows are not persisted")
		return memory.NewTableSink(), nil
	case config.SinkCopy:
		pool, err := postgres.NewPool(ctx, l.cfg.DBURL, l.logger)
		if err != nil {
			return nil, fmt.Errorf("open pgx pool %s: %w", postgres.RedactURL(l.cfg.DBURL), err)
		}
		l.closers = append(l.closers, func() error {
			pool.Close()
			return nil
		})
		l.logger.Info("copy sink ready", "db", postgres.DBNameFromURL(l.cfg.DBURL))
		return postgres.NewCopySink(pool), nil
	case config.SinkInsert, "":
		db, err := postgres.Open(ctx, l.cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", postgres.RedactURL(l.cfg.DBURL), err)
		}
		l.closers = append(l.closers, db.Close)
		l.logger.Info("insert sink ready",
			"db", postgres.DBNameFromURL(l.cfg.DBURL),
			"chunk_size", l.cfg.InsertChunkSize,
		)
		return postgres.NewTableSink(db, l.cfg.InsertChunkSize), nil
	default:
		return nil, fmt.Errorf("unsupported sink mode %q", l.cfg.SinkMode)
	}
}

// Run loads every configured league and season.
func (l *Loader) Run(ctx context.Context) (usecase.IngestionResult, error) {
	l.logger.InfoContext(ctx, "ingestion starting",
		"leagues", l.cfg.Leagues,
		"seasons", l.cfg.Seasons,
		"sink", l.cfg.SinkMode,
	)
	return l.ingestion.Run(ctx, l.cfg.Leagues, l.cfg.Seasons)
}

func (l *Loader) Close() error {
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}
