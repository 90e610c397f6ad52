package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/understat-loader/internal/domain/record"
	"github.com/riskibarqy/understat-loader/internal/domain/tablerule"
	"github.com/riskibarqy/understat-loader/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/require"
)

type fakeStatsProvider struct {
	mu      sync.Mutex
	calls   []string
	players map[Scope]*record.Batch
	teams   map[Scope]*record.Batch
	stats   map[Scope]*record.Batch
	failOn  Scope
	failErr error
}

func (f *fakeStatsProvider) record(call string, scope Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call+":"+scope.String())
	if f.failErr != nil && scope == f.failOn {
		return f.failErr
	}
	return nil
}

func (f *fakeStatsProvider) FetchPlayers(_ context.Context, league, season string) (*record.Batch, error) {
	scope := Scope{League: league, Season: season}
	if err := f.record("players", scope); err != nil {
		return nil, err
	}
	return f.players[scope], nil
}

func (f *fakeStatsProvider) FetchTeams(_ context.Context, league, season string) (*record.Batch, error) {
	scope := Scope{League: league, Season: season}
	if err := f.record("teams", scope); err != nil {
		return nil, err
	}
	return f.teams[scope], nil
}

func (f *fakeStatsProvider) FetchPlayerMatchStats(_ context.Context, league, season string) (*record.Batch, error) {
	scope := Scope{League: league, Season: season}
	if err := f.record("stats", scope); err != nil {
		return nil, err
	}
	return f.stats[scope], nil
}

type orderRecordingLoader struct {
	next  batchLoader
	order []string
}

func (l *orderRecordingLoader) ValidateAndInsert(ctx context.Context, batch *record.Batch, rule tablerule.Rule) error {
	l.order = append(l.order, rule.Name)
	return l.next.ValidateAndInsert(ctx, batch, rule)
}

func playersBatch(t *testing.T, names ...string) *record.Batch {
	t.Helper()
	b := record.MustBatch("understat_id", "player_name")
	for i, name := range names {
		require.NoError(t, b.Append(record.Record{"understat_id": int64(i + 1), "player_name": name}))
	}
	return b
}

func teamsBatch(t *testing.T, names ...string) *record.Batch {
	t.Helper()
	b := record.MustBatch("understat_id", "team_name")
	for i, name := range names {
		require.NoError(t, b.Append(record.Record{"understat_id": int64(100 + i), "team_name": name}))
	}
	return b
}

func statsBatch(t *testing.T, rows ...record.Record) *record.Batch {
	t.Helper()
	return buildBatch(t, playerMatchStatFields(), rows...)
}

func TestScopes(t *testing.T) {
	got := Scopes([]string{"ENG-Premier League", " ", "ESP-La Liga", "ENG-Premier League"}, []string{"2022/2023", "2023/2024", ""})
	want := []Scope{
		{League: "ENG-Premier League", Season: "2022/2023"},
		{League: "ENG-Premier League", Season: "2023/2024"},
		{League: "ESP-La Liga", Season: "2022/2023"},
		{League: "ESP-La Liga", Season: "2023/2024"},
	}
	require.Equal(t, want, got)
}

func TestIngestionService_RunLoadsEveryScopeInOrder(t *testing.T) {
	epl := Scope{League: "ENG-Premier League", Season: "2023/2024"}
	liga := Scope{League: "ESP-La Liga", Season: "2023/2024"}

	provider := &fakeStatsProvider{
		players: map[Scope]*record.Batch{
			epl:  playersBatch(t, "Bukayo Saka", "Erling Haaland"),
			liga: playersBatch(t, "Jude Bellingham"),
		},
		teams: map[Scope]*record.Batch{
			epl:  teamsBatch(t, "Arsenal", "Manchester City"),
			liga: teamsBatch(t, "Real Madrid"),
		},
		stats: map[Scope]*record.Batch{
			epl:  statsBatch(t, playerMatchStatRow(21001, 556, "Marcus Rashford")),
			liga: statsBatch(t),
		},
	}

	sink := memory.NewTableSink()
	loader := &orderRecordingLoader{next: NewLoaderService(sink, nil)}
	service := NewIngestionService(provider, loader, sink, 2, nil)

	result, err := service.Run(context.Background(), []string{epl.League, liga.League}, []string{"2023/2024"})
	require.NoError(t, err)

	require.Equal(t, []string{
		tablerule.NamePlayers, tablerule.NameTeams, tablerule.NamePlayerMatchStats,
		tablerule.NamePlayers, tablerule.NameTeams, tablerule.NamePlayerMatchStats,
	}, loader.order)

	require.Len(t, result.Scopes, 2)
	require.Equal(t, epl, result.Scopes[0].Scope)
	require.Equal(t, liga, result.Scopes[1].Scope)
	require.Equal(t, 2, result.Scopes[0].Rows["players"])
	require.Equal(t, 0, result.Scopes[1].Rows["understat_player_match_stats"])

	require.Equal(t, int64(3), result.TableCounts["players"])
	require.Equal(t, int64(3), result.TableCounts["teams"])
	require.Equal(t, int64(1), result.TableCounts["understat_player_match_stats"])

	players, ok := sink.Snapshot("players")
	require.True(t, ok)
	require.Equal(t, "Bukayo Saka", players.Rows[0][1])
	require.Equal(t, "Jude Bellingham", players.Rows[2][1])
}

func TestIngestionService_FetchFailureLoadsNothing(t *testing.T) {
	epl := Scope{League: "ENG-Premier League", Season: "2023/2024"}
	fetchErr := errors.New("understat unavailable")

	provider := &fakeStatsProvider{failOn: epl, failErr: fetchErr}
	sink := memory.NewTableSink()
	service := NewIngestionService(provider, NewLoaderService(sink, nil), sink, 1, nil)

	_, err := service.Run(context.Background(), []string{epl.League}, []string{epl.Season})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok := sink.Snapshot("players"); ok {
		t.Fatalf("expected nothing to be written")
	}
}

func TestIngestionService_StopsOnFirstValidationFailure(t *testing.T) {
	epl := Scope{League: "ENG-Premier League", Season: "2023/2024"}

	provider := &fakeStatsProvider{
		players: map[Scope]*record.Batch{epl: playersBatch(t, "Bukayo Saka")},
		teams:   map[Scope]*record.Batch{epl: teamsBatch(t, "Arsenal", "Arsenal")},
		stats:   map[Scope]*record.Batch{epl: statsBatch(t, playerMatchStatRow(1, 2, "Kai Havertz"))},
	}
	sink := memory.NewTableSink()
	loader := &orderRecordingLoader{next: NewLoaderService(sink, nil)}
	service := NewIngestionService(provider, loader, sink, 1, nil)

	_, err := service.Run(context.Background(), []string{epl.League}, []string{epl.Season})
	if !errors.Is(err, ErrDuplicateValue) {
		t.Fatalf("expected ErrDuplicateValue, got %v", err)
	}

	require.Equal(t, []string{tablerule.NamePlayers, tablerule.NameTeams}, loader.order)
	players, ok := sink.Snapshot("players")
	require.True(t, ok)
	require.Len(t, players.Rows, 1)
	if _, ok := sink.Snapshot("understat_player_match_stats"); ok {
		t.Fatalf("player match stats must not be loaded after a failure")
	}
}

func TestIngestionService_RequiresScopes(t *testing.T) {
	service := NewIngestionService(&fakeStatsProvider{}, NewLoaderService(memory.NewTableSink(), nil), nil, 1, nil)
	if _, err := service.Run(context.Background(), nil, []string{"2023/2024"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
