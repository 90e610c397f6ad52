package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/understat-loader/internal/domain/record"
	"github.com/riskibarqy/understat-loader/internal/domain/tablerule"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

// StatsProvider fetches one league-season worth of records per table.
type StatsProvider interface {
	FetchPlayers(ctx context.Context, league, season string) (*record.Batch, error)
	FetchTeams(ctx context.Context, league, season string) (*record.Batch, error)
	FetchPlayerMatchStats(ctx context.Context, league, season string) (*record.Batch, error)
}

type batchLoader interface {
	ValidateAndInsert(ctx context.Context, batch *record.Batch, rule tablerule.Rule) error
}

type IngestionService struct {
	provider StatsProvider
	loader   batchLoader
	counter  record.Counter
	workers  int
	logger   *logging.Logger
}

// Scope is a single league-season pair.
type Scope struct {
	League string
	Season string
}

func (s Scope) String() string {
	return s.League + " " + s.Season
}

type ScopeResult struct {
	Scope      Scope
	Rows       map[string]int
	DurationMs int64
}

type IngestionResult struct {
	Scopes      []ScopeResult
	TableCounts map[string]int64
}

type scopeBatches struct {
	index   int
	scope   Scope
	batches map[string]*record.Batch
	elapsed time.Duration
}

// NewIngestionService wires the fetch and load steps. counter may be nil.
func NewIngestionService(provider StatsProvider, loader batchLoader, counter record.Counter, workers int, logger *logging.Logger) *IngestionService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		provider: provider,
		loader:   loader,
		counter:  counter,
		workers:  workers,
		logger:   logger.With("component", "ingestion"),
	}
}

// Scopes expands leagues and seasons into league-major pairs, dropping blanks
// and repeats.
func Scopes(leagues, seasons []string) []Scope {
	out := make([]Scope, 0, len(leagues)*len(seasons))
	seen := make(map[Scope]struct{}, len(leagues)*len(seasons))
	for _, league := range leagues {
		league = strings.TrimSpace(league)
		if league == "" {
			continue
		}
		for _, season := range seasons {
			season = strings.TrimSpace(season)
			if season == "" {
				continue
			}
			scope := Scope{League: league, Season: season}
			if _, ok := seen[scope]; ok {
				continue
			}
			seen[scope] = struct{}{}
			out = append(out, scope)
		}
	}
	return out
}

// Run fetches every scope concurrently, then loads them one at a time in scope
// order: players, teams, then player match stats. The first failure aborts the run.
func (s *IngestionService) Run(ctx context.Context, leagues, seasons []string) (IngestionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	defer span.End()

	scopes := Scopes(leagues, seasons)
	if len(scopes) == 0 {
		return IngestionResult{}, fmt.Errorf("%w: at least one league and season are required", ErrInvalidInput)
	}
	span.SetAttributes(attribute.Int("ingestion.scopes", len(scopes)))

	fetched, err := s.fetchAll(ctx, scopes)
	if err != nil {
		span.RecordError(err)
		return IngestionResult{}, err
	}

	result := IngestionResult{Scopes: make([]ScopeResult, 0, len(fetched))}
	for _, item := range fetched {
		start := time.Now()
		row := ScopeResult{Scope: item.scope, Rows: make(map[string]int, len(item.batches))}
		for _, rule := range tablerule.All() {
			batch := item.batches[rule.Name]
			if err := s.loader.ValidateAndInsert(ctx, batch, rule); err != nil {
				span.RecordError(err)
				s.logger.ErrorContext(ctx, "load failed",
					"league", item.scope.League,
					"season", item.scope.Season,
					"table", rule.Table,
					"error", err,
				)
				return result, crerr.Wrapf(err, "load %s for %s", rule.Name, item.scope)
			}
			row.Rows[rule.Table] = batch.Len()
		}
		row.DurationMs = (item.elapsed + time.Since(start)).Milliseconds()
		result.Scopes = append(result.Scopes, row)

		s.logger.InfoContext(ctx, "scope loaded",
			"league", item.scope.League,
			"season", item.scope.Season,
			"players", row.Rows[tablerule.Players().Table],
			"teams", row.Rows[tablerule.Teams().Table],
			"player_match_stats", row.Rows[tablerule.PlayerMatchStats().Table],
			"duration_ms", row.DurationMs,
		)
	}

	result.TableCounts = s.countTables(ctx)
	return result, nil
}

func (s *IngestionService) fetchAll(ctx context.Context, scopes []Scope) ([]scopeBatches, error) {
	p := pool.NewWithResults[scopeBatches]().
		WithContext(ctx).
		WithMaxGoroutines(s.workers).
		WithCancelOnError().
		WithFirstError()

	for idx, scope := range scopes {
		idx, scope := idx, scope
		p.Go(func(ctx context.Context) (scopeBatches, error) {
			return s.fetchScope(ctx, idx, scope)
		})
	}

	out, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out, nil
}

func (s *IngestionService) fetchScope(ctx context.Context, idx int, scope Scope) (scopeBatches, error) {
	start := time.Now()

	players, err := s.provider.FetchPlayers(ctx, scope.League, scope.Season)
	if err != nil {
		return scopeBatches{}, crerr.Wrapf(err, "fetch players for %s", scope)
	}
	teams, err := s.provider.FetchTeams(ctx, scope.League, scope.Season)
	if err != nil {
		return scopeBatches{}, crerr.Wrapf(err, "fetch teams for %s", scope)
	}
	stats, err := s.provider.FetchPlayerMatchStats(ctx, scope.League, scope.Season)
	if err != nil {
		return scopeBatches{}, crerr.Wrapf(err, "fetch player match stats for %s", scope)
	}

	s.logger.DebugContext(ctx, "scope fetched",
		"league", scope.League,
		"season", scope.Season,
		"players", players.Len(),
		"teams", teams.Len(),
		"player_match_stats", stats.Len(),
	)

	return scopeBatches{
		index: idx,
		scope: scope,
		batches: map[string]*record.Batch{
			tablerule.NamePlayers:          players,
			tablerule.NameTeams:            teams,
			tablerule.NamePlayerMatchStats: stats,
		},
		elapsed: time.Since(start),
	}, nil
}

// countTables is informational; a failed count is logged and skipped.
func (s *IngestionService) countTables(ctx context.Context) map[string]int64 {
	if s.counter == nil {
		return nil
	}
	out := make(map[string]int64, len(tablerule.All()))
	for _, rule := range tablerule.All() {
		total, err := s.counter.Count(ctx, rule.Table)
		if err != nil {
			s.logger.WarnContext(ctx, "count table rows failed", "table", rule.Table, "error", err)
			continue
		}
		out[rule.Table] = total
		s.logger.InfoContext(ctx, "table size", "table", rule.Table, "rows", total)
	}
	return out
}
