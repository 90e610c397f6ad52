package understat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/riskibarqy/understat-loader/internal/domain/record"
)

var (
	playerFields = []string{"understat_id", "player_name", "team_title", "position"}
	teamFields   = []string{"understat_id", "team_name"}

	playerMatchStatFields = []string{
		"game_id", "league_id", "team_id", "season_id", "player_id",
		"player", "team", "game", "season", "league",
		"position", "position_id", "minutes", "goals", "assists", "shots", "key_passes",
		"xg", "xa", "xg_chain", "xg_buildup", "own_goals", "yellow_cards", "red_cards",
	}
)

func playersBatch(data leagueData) (*record.Batch, error) {
	batch := record.MustBatch(playerFields...)
	for idx, item := range data.Players {
		if err := batch.Append(record.Record{
			"understat_id": item.ID.Int64(),
			"player_name":  strings.TrimSpace(item.PlayerName),
			"team_title":   strings.TrimSpace(item.TeamTitle),
			"position":     strings.TrimSpace(item.Position),
		}); err != nil {
			return nil, fmt.Errorf("map player %d: %w", idx, err)
		}
	}
	return batch, nil
}

// teamsBatch emits teams ordered by Understat id.
func teamsBatch(data leagueData) (*record.Batch, error) {
	teams := make([]teamEntry, 0, len(data.Teams))
	for key, item := range data.Teams {
		if item.ID.String() == "" {
			item.ID = flexValue(key)
		}
		teams = append(teams, item)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID.Int64() < teams[j].ID.Int64() })

	batch := record.MustBatch(teamFields...)
	for _, item := range teams {
		if err := batch.Append(record.Record{
			"understat_id": item.ID.Int64(),
			"team_name":    strings.TrimSpace(item.Title),
		}); err != nil {
			return nil, fmt.Errorf("map team %s: %w", item.ID, err)
		}
	}
	return batch, nil
}

// playedMatches keeps matches that have a result, in schedule order.
func playedMatches(data leagueData) []matchEntry {
	out := make([]matchEntry, 0, len(data.Dates))
	for _, item := range data.Dates {
		if item.IsResult {
			out = append(out, item)
		}
	}
	return out
}

type matchRoster struct {
	match matchEntry
	data  matchData
}

func playerMatchStatsBatch(league League, season Season, rosters []matchRoster) (*record.Batch, error) {
	batch := record.MustBatch(playerMatchStatFields...)
	for _, item := range rosters {
		for _, side := range []struct {
			team    string
			entries map[string]rosterEntry
		}{
			{team: item.match.Home.Title, entries: item.data.Rosters.Home},
			{team: item.match.Away.Title, entries: item.data.Rosters.Away},
		} {
			for _, entry := range sortedRoster(side.entries) {
				rec := record.Record{
					"game_id":      item.match.ID.Int64(),
					"league_id":    league.ID,
					"team_id":      entry.TeamID.Int64(),
					"season_id":    int64(season.Year),
					"player_id":    entry.PlayerID.Int64(),
					"player":       strings.TrimSpace(entry.Player),
					"team":         strings.TrimSpace(side.team),
					"game":         item.match.Label(),
					"season":       season.Label(),
					"league":       league.Name,
					"position":     strings.TrimSpace(entry.Position),
					"position_id":  entry.PositionOrder.Int64(),
					"minutes":      entry.Time.Int64(),
					"goals":        entry.Goals.Int64(),
					"assists":      entry.Assists.Int64(),
					"shots":        entry.Shots.Int64(),
					"key_passes":   entry.KeyPasses.Int64(),
					"xg":           entry.XG.Float64(),
					"xa":           entry.XA.Float64(),
					"xg_chain":     entry.XGChain.Float64(),
					"xg_buildup":   entry.XGBuildup.Float64(),
					"own_goals":    entry.OwnGoals.Int64(),
					"yellow_cards": entry.YellowCard.Int64(),
					"red_cards":    entry.RedCard.Int64(),
				}
				if err := batch.Append(rec); err != nil {
					return nil, fmt.Errorf("map roster %s of game %s: %w", entry.ID, item.match.ID, err)
				}
			}
		}
	}
	return batch, nil
}

func sortedRoster(entries map[string]rosterEntry) []rosterEntry {
	out := make([]rosterEntry, 0, len(entries))
	for key, entry := range entries {
		if entry.ID.String() == "" {
			entry.ID = flexValue(key)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Int64() < out[j].ID.Int64() })
	return out
}
