package understat

import (
	"bytes"
	"strconv"
	"strings"
)

// flexValue holds a JSON scalar that Understat sends either quoted or bare.
type flexValue string

func (v *flexValue) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		*v = ""
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		unquoted, err := strconv.Unquote(string(raw))
		if err != nil {
			*v = flexValue(raw[1 : len(raw)-1])
			return nil
		}
		*v = flexValue(unquoted)
		return nil
	}
	*v = flexValue(raw)
	return nil
}

func (v flexValue) String() string {
	return strings.TrimSpace(string(v))
}

func (v flexValue) Int64() int64 {
	s := v.String()
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

func (v flexValue) Float64() float64 {
	f, err := strconv.ParseFloat(v.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

func (d *leagueData) pageVars() []pageVar {
	return []pageVar{
		{name: "teamsData", target: &d.Teams},
		{name: "playersData", target: &d.Players},
		{name: "datesData", target: &d.Dates},
	}
}

func (d *matchData) pageVars() []pageVar {
	return []pageVar{{name: "rostersData", target: &d.Rosters}}
}

type leagueData struct {
	Teams   map[string]teamEntry `json:"teams"`
	Players []playerEntry        `json:"players"`
	Dates   []matchEntry         `json:"dates"`
}

type teamEntry struct {
	ID    flexValue `json:"id"`
	Title string    `json:"title"`
}

type playerEntry struct {
	ID         flexValue `json:"id"`
	PlayerName string    `json:"player_name"`
	TeamTitle  string    `json:"team_title"`
	Position   string    `json:"position"`
}

type matchSide struct {
	ID         flexValue `json:"id"`
	Title      string    `json:"title"`
	ShortTitle string    `json:"short_title"`
}

type matchEntry struct {
	ID       flexValue `json:"id"`
	IsResult bool      `json:"isResult"`
	Home     matchSide `json:"h"`
	Away     matchSide `json:"a"`
	DateTime string    `json:"datetime"`
}

// Date returns the calendar date part of the kickoff time.
func (m matchEntry) Date() string {
	dt := strings.TrimSpace(m.DateTime)
	if idx := strings.IndexByte(dt, ' '); idx > 0 {
		return dt[:idx]
	}
	return dt
}

// Label is the game label stored with each row: "{date} {home}-{away}".
func (m matchEntry) Label() string {
	return m.Date() + " " + m.Home.Title + "-" + m.Away.Title
}

type matchData struct {
	Rosters rosters `json:"rosters"`
}

type rosters struct {
	Home map[string]rosterEntry `json:"h"`
	Away map[string]rosterEntry `json:"a"`
}

type rosterEntry struct {
	ID            flexValue `json:"id"`
	Goals         flexValue `json:"goals"`
	OwnGoals      flexValue `json:"own_goals"`
	Shots         flexValue `json:"shots"`
	XG            flexValue `json:"xG"`
	Time          flexValue `json:"time"`
	PlayerID      flexValue `json:"player_id"`
	TeamID        flexValue `json:"team_id"`
	Position      string    `json:"position"`
	Player        string    `json:"player"`
	HomeAway      string    `json:"h_a"`
	YellowCard    flexValue `json:"yellow_card"`
	RedCard       flexValue `json:"red_card"`
	KeyPasses     flexValue `json:"key_passes"`
	Assists       flexValue `json:"assists"`
	XA            flexValue `json:"xA"`
	XGChain       flexValue `json:"xGChain"`
	XGBuildup     flexValue `json:"xGBuildup"`
	PositionOrder flexValue `json:"positionOrder"`
}
