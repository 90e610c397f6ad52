package tablerule

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	NamePlayers          = "players"
	NameTeams            = "teams"
	NamePlayerMatchStats = "player-match-stats"
)

// Rule is the write contract for one destination table.
type Rule struct {
	Name     string     `validate:"required"`
	Table    string     `validate:"required"`
	Required []string   `validate:"required,min=1,unique,dive,required"`
	NonEmpty []string   `validate:"dive,required"`
	Unique   [][]string `validate:"dive,min=1,dive,required"`
	// Project narrows incoming batches to Required before any check runs.
	Project bool
}

var ruleValidator = validator.New()

// Validate checks that the rule is internally consistent: every non-empty and
// unique field must also be required.
func (r Rule) Validate() error {
	if err := ruleValidator.Struct(r); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}

	required := make(map[string]struct{}, len(r.Required))
	for _, field := range r.Required {
		required[field] = struct{}{}
	}
	for _, field := range r.NonEmpty {
		if _, ok := required[field]; !ok {
			return fmt.Errorf("rule %q: non-empty field %q is not required", r.Name, field)
		}
	}
	for _, group := range r.Unique {
		for _, field := range group {
			if _, ok := required[field]; !ok {
				return fmt.Errorf("rule %q: unique field %q is not required", r.Name, field)
			}
		}
	}
	return nil
}

func Players() Rule {
	return Rule{
		Name:     NamePlayers,
		Table:    "players",
		Required: []string{"understat_id", "player_name"},
		NonEmpty: []string{"player_name"},
		Unique:   [][]string{{"understat_id"}},
	}
}

func Teams() Rule {
	return Rule{
		Name:     NameTeams,
		Table:    "teams",
		Required: []string{"understat_id", "team_name"},
		NonEmpty: []string{"team_name"},
		Unique:   [][]string{{"understat_id"}, {"team_name"}},
	}
}

// PlayerMatchStats has no unique groups: re-ingesting a season appends duplicate
// (game_id, player_id) rows.
func PlayerMatchStats() Rule {
	return Rule{
		Name:  NamePlayerMatchStats,
		Table: "understat_player_match_stats",
		Required: []string{
			"game_id", "league_id", "team_id", "season_id", "player_id",
			"player", "team", "game", "season", "league", "position",
			"minutes", "goals", "assists", "shots", "key_passes",
			"xg", "xa", "xg_chain", "xg_buildup",
			"own_goals", "yellow_cards", "red_cards",
		},
		NonEmpty: []string{"player", "team", "game", "league", "position"},
		Project:  true,
	}
}

// All returns the built-in rules in load order.
func All() []Rule {
	return []Rule{Players(), Teams(), PlayerMatchStats()}
}
