package domain

import (
	"time"
)

// SchemaVersion is the version of the persisted match model. Cached entries
// written with a different version are treated as unreadable.
const SchemaVersion = 3

// MatchIdentity is the stable key of a demo, derived from its header.
// It never depends on the file path.
type MatchIdentity string

// String returns the identity as a plain string
func (id MatchIdentity) String() string {
	return string(id)
}

// Short returns the first 12 characters, for logs and file names
func (id MatchIdentity) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:12])
}

// Source tags where a demo was recorded
type Source string

const (
	SourceValve   Source = "valve"
	SourceFaceit  Source = "faceit"
	SourceESEA    Source = "esea"
	SourceEBot    Source = "ebot"
	SourcePOV     Source = "pov"
	SourceUnknown Source = "unknown"
)

// Side is the in-game side a team plays in a given round
type Side string

const (
	SideTerrorist        Side = "T"
	SideCounterTerrorist Side = "CT"
	SideNone             Side = ""
)

// Opposite returns the other playing side
func (s Side) Opposite() Side {
	switch s {
	case SideTerrorist:
		return SideCounterTerrorist
	case SideCounterTerrorist:
		return SideTerrorist
	default:
		return SideNone
	}
}

// MatchHeader is the cheap-to-read metadata of a demo file
type MatchHeader struct {
	Identity       MatchIdentity `json:"identity"`
	Path           string        `json:"path,omitempty"`
	MapName        string        `json:"map_name"`
	ServerName     string        `json:"server_name"`
	ClientName     string        `json:"client_name"`
	Source         Source        `json:"source"`
	PlaybackTime   time.Duration `json:"playback_time"`
	PlaybackTicks  int           `json:"playback_ticks"`
	PlaybackFrames int           `json:"playback_frames"`
}

// TickRate returns the recorded ticks per second, 0 when unknown
func (h MatchHeader) TickRate() float64 {
	if h.PlaybackTime <= 0 {
		return 0
	}
	return float64(h.PlaybackTicks) / h.PlaybackTime.Seconds()
}

// Match is the full analysis result for one demo.
//
// WeaponFired and PlayerBlinded are large auxiliary streams; the cache
// persists them separately from the core record.
type Match struct {
	Identity      MatchIdentity `json:"identity"`
	SchemaVersion int           `json:"schema_version"`
	Header        MatchHeader   `json:"header"`
	Source        Source        `json:"source"`
	AnalyzedAt    time.Time     `json:"analyzed_at"`
	Duration      time.Duration `json:"duration"`

	Teams   [2]Team  `json:"teams"`
	Players []Player `json:"players"`
	Rounds  []Round  `json:"rounds"`
	Kills   []Kill   `json:"kills"`

	WeaponFired   []WeaponFire  `json:"-"`
	PlayerBlinded []PlayerBlind `json:"-"`
}

// Team is one of the two competing teams
type Team struct {
	Name           string `json:"name"`
	Score          int    `json:"score"`
	ScoreFirstHalf int    `json:"score_first_half"`
	StartingSide   Side   `json:"starting_side"`
}

// Player is one participant of the match
type Player struct {
	SteamID  uint64 `json:"steam_id"`
	Name     string `json:"name"`
	TeamName string `json:"team_name"`
}

// Round is one played round
type Round struct {
	Number    int           `json:"number"`
	Winner    Side          `json:"winner"`
	EndReason string        `json:"end_reason"`
	StartTick int           `json:"start_tick"`
	EndTick   int           `json:"end_tick"`
	Duration  time.Duration `json:"duration"`
	// TeamOnT is the name of the team playing Terrorist in this round
	TeamOnT string `json:"team_on_t"`
	// TeamOnCT is the name of the team playing Counter-Terrorist in this round
	TeamOnCT string `json:"team_on_ct"`
}

// WinnerTeam returns the name of the team that won the round
func (r Round) WinnerTeam() string {
	switch r.Winner {
	case SideTerrorist:
		return r.TeamOnT
	case SideCounterTerrorist:
		return r.TeamOnCT
	default:
		return ""
	}
}

// Kill is a single frag
type Kill struct {
	Tick         int    `json:"tick"`
	Round        int    `json:"round"`
	KillerID     uint64 `json:"killer_id"`
	KillerName   string `json:"killer_name"`
	KillerSide   Side   `json:"killer_side"`
	KillerTeam   string `json:"killer_team"`
	VictimID     uint64 `json:"victim_id"`
	VictimName   string `json:"victim_name"`
	VictimSide   Side   `json:"victim_side"`
	VictimTeam   string `json:"victim_team"`
	AssisterID   uint64 `json:"assister_id,omitempty"`
	AssisterName string `json:"assister_name,omitempty"`
	Weapon       string `json:"weapon"`
	Headshot     bool   `json:"headshot"`
	Penetrated   int    `json:"penetrated"`
	TradeKill    bool   `json:"trade_kill"`
}

// IsTeamKill reports whether killer and victim played on the same side
func (k Kill) IsTeamKill() bool {
	return k.KillerID != 0 && k.KillerSide == k.VictimSide
}

// WeaponFire is one shot fired
type WeaponFire struct {
	Tick        int    `json:"tick"`
	Round       int    `json:"round"`
	ShooterID   uint64 `json:"shooter_id"`
	ShooterName string `json:"shooter_name"`
	ShooterSide Side   `json:"shooter_side"`
	Weapon      string `json:"weapon"`
}

// PlayerBlind is a flashbang blinding a player
type PlayerBlind struct {
	Tick        int           `json:"tick"`
	Round       int           `json:"round"`
	ThrowerID   uint64        `json:"thrower_id"`
	ThrowerName string        `json:"thrower_name"`
	ThrowerSide Side          `json:"thrower_side"`
	ThrowerTeam string        `json:"thrower_team"`
	VictimID    uint64        `json:"victim_id"`
	VictimName  string        `json:"victim_name"`
	VictimSide  Side          `json:"victim_side"`
	VictimTeam  string        `json:"victim_team"`
	Duration    time.Duration `json:"duration"`
}

// PlayerBySteamID finds a player by steam id
func (m *Match) PlayerBySteamID(id uint64) (Player, bool) {
	for _, p := range m.Players {
		if p.SteamID == id {
			return p, true
		}
	}
	return Player{}, false
}

// TeamOf returns the team name of a player, "" when unknown
func (m *Match) TeamOf(steamID uint64) string {
	if p, ok := m.PlayerBySteamID(steamID); ok {
		return p.TeamName
	}
	return ""
}

// KillsInRound returns the kills of a round in tick order
func (m *Match) KillsInRound(round int) []Kill {
	var kills []Kill
	for _, k := range m.Kills {
		if k.Round == round {
			kills = append(kills, k)
		}
	}
	return kills
}

// RoundByNumber returns the round with the given number
func (m *Match) RoundByNumber(number int) (Round, bool) {
	for _, r := range m.Rounds {
		if r.Number == number {
			return r, true
		}
	}
	return Round{}, false
}

// TeamNames returns the names of both teams in a stable order
func (m *Match) TeamNames() []string {
	return []string{m.Teams[0].Name, m.Teams[1].Name}
}

// WithoutStreams returns a shallow copy of the match with the auxiliary
// streams dropped, for persisting the core record alone.
func (m *Match) WithoutStreams() *Match {
	core := *m
	core.WeaponFired = nil
	core.PlayerBlinded = nil
	return &core
}
