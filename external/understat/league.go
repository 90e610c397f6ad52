package understat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// League maps a canonical league name to its Understat path code and numeric id.
type League struct {
	Name string
	Code string
	ID   int64
}

var leagues = map[string]League{
	"ENG-Premier League": {Name: "ENG-Premier League", Code: "EPL", ID: 1},
	"ESP-La Liga":        {Name: "ESP-La Liga", Code: "La_liga", ID: 2},
	"GER-Bundesliga":     {Name: "GER-Bundesliga", Code: "Bundesliga", ID: 3},
	"ITA-Serie A":        {Name: "ITA-Serie A", Code: "Serie_A", ID: 4},
	"FRA-Ligue 1":        {Name: "FRA-Ligue 1", Code: "Ligue_1", ID: 5},
	"RUS-Premier League": {Name: "RUS-Premier League", Code: "RFPL", ID: 6},
}

func LookupLeague(name string) (League, error) {
	league, ok := leagues[strings.TrimSpace(name)]
	if !ok {
		return League{}, fmt.Errorf("unknown league %q: valid leagues are %s", name, strings.Join(LeagueNames(), ", "))
	}
	return league, nil
}

// LeagueNames lists the supported league names sorted by league id.
func LeagueNames() []string {
	out := make([]League, 0, len(leagues))
	for _, league := range leagues {
		out = append(out, league)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	names := make([]string, 0, len(out))
	for _, league := range out {
		names = append(names, league.Name)
	}
	return names
}

// Season is a football season identified by its starting year.
type Season struct {
	Year int
}

// ParseSeason accepts "2023/2024", "2023-2024", "2023/24", "2324" or a start year such as "2023".
func ParseSeason(raw string) (Season, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Season{}, fmt.Errorf("season is required")
	}

	if sep := strings.IndexAny(value, "/-"); sep > 0 {
		start, err := strconv.Atoi(value[:sep])
		if err != nil {
			return Season{}, fmt.Errorf("invalid season %q: %w", raw, err)
		}
		end, err := strconv.Atoi(value[sep+1:])
		if err != nil {
			return Season{}, fmt.Errorf("invalid season %q: %w", raw, err)
		}
		if end < 100 {
			end += start - start%100
		}
		if end != start+1 {
			return Season{}, fmt.Errorf("invalid season %q: years must be consecutive", raw)
		}
		return Season{Year: start}, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || len(value) != 4 {
		return Season{}, fmt.Errorf("invalid season %q", raw)
	}
	// Two-digit start and end years such as "2324". "2021" reads as 2020/2021.
	if start, end := n/100, n%100; (start+1)%100 == end {
		if start >= 50 {
			return Season{Year: 1900 + start}, nil
		}
		return Season{Year: 2000 + start}, nil
	}
	if n < 1900 || n > 2099 {
		return Season{}, fmt.Errorf("invalid season %q: year out of range", raw)
	}
	return Season{Year: n}, nil
}

// Label is the compact season id used in stored rows, e.g. "2324".
func (s Season) Label() string {
	return fmt.Sprintf("%02d%02d", s.Year%100, (s.Year+1)%100)
}

// Name is the canonical display form, e.g. "2023/2024".
func (s Season) Name() string {
	return fmt.Sprintf("%d/%d", s.Year, s.Year+1)
}
