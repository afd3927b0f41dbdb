package demo

import (
	"sort"
	"time"

	"demoreport/pkg/contracts/domain"
)

const (
	// regulationHalf is the number of rounds per regulation half (MR15)
	regulationHalf = 15
	// overtimeHalf is the number of rounds per overtime half (MR3)
	overtimeHalf = 3
	// tradeWindow is how soon after a death a revenge kill counts as a trade
	tradeWindow = 5 * time.Second

	teamALabel = "Team A"
	teamBLabel = "Team B"
)

// participant is a player as seen at the moment of an event
type participant struct {
	ID   uint64
	Name string
	Side domain.Side
	Clan string
}

// collector folds decoded game events into a Match. It knows nothing about
// the demo format, so it can be driven directly from tests.
type collector struct {
	header domain.MatchHeader

	round      int
	inRound    bool
	roundStart int
	teamOnT    string
	teamOnCT   string

	players map[uint64]*domain.Player
	order   []uint64

	rounds  []domain.Round
	kills   []domain.Kill
	fired   []domain.WeaponFire
	blinded []domain.PlayerBlind
}

func newCollector(header domain.MatchHeader) *collector {
	return &collector{
		header:  header,
		players: make(map[uint64]*domain.Player),
	}
}

// reset drops everything seen so far; warmup ends when the match starts
func (c *collector) reset() {
	header := c.header
	*c = *newCollector(header)
}

// sidesSwapped reports whether the team that started on T plays CT in
// the given round. Overtime starts on the sides the second half ended on.
func sidesSwapped(round int) bool {
	if round <= regulationHalf {
		return false
	}
	if round <= 2*regulationHalf {
		return true
	}
	otHalf := (round - 2*regulationHalf - 1) / overtimeHalf
	return otHalf%2 == 0
}

// fallbackTeam names a side's team when the demo carries no clan names
func fallbackTeam(side domain.Side, round int) string {
	startedT := side == domain.SideTerrorist
	if sidesSwapped(round) {
		startedT = !startedT
	}
	if startedT {
		return teamALabel
	}
	return teamBLabel
}

func (c *collector) currentRound() int {
	if c.round == 0 {
		return 1
	}
	return c.round
}

func (c *collector) teamFor(p participant) string {
	if p.Clan != "" {
		return p.Clan
	}
	if player, ok := c.players[p.ID]; ok && player.TeamName != "" {
		return player.TeamName
	}
	switch p.Side {
	case domain.SideTerrorist:
		if c.teamOnT != "" {
			return c.teamOnT
		}
	case domain.SideCounterTerrorist:
		if c.teamOnCT != "" {
			return c.teamOnCT
		}
	}
	return fallbackTeam(p.Side, c.currentRound())
}

// see registers a participant the first time it shows up. Bots have no
// steam id and are not tracked as players.
func (c *collector) see(p participant) {
	if p.ID == 0 {
		return
	}
	if _, ok := c.players[p.ID]; ok {
		return
	}
	c.players[p.ID] = &domain.Player{
		SteamID:  p.ID,
		Name:     p.Name,
		TeamName: c.teamFor(p),
	}
	c.order = append(c.order, p.ID)
}

func (c *collector) onRoundStart(tick int, tClan, ctClan string) {
	c.round++
	c.inRound = true
	c.roundStart = tick

	c.teamOnT = tClan
	if c.teamOnT == "" {
		c.teamOnT = fallbackTeam(domain.SideTerrorist, c.round)
	}
	c.teamOnCT = ctClan
	if c.teamOnCT == "" {
		c.teamOnCT = fallbackTeam(domain.SideCounterTerrorist, c.round)
	}
}

func (c *collector) onRoundEnd(tick int, winner domain.Side, reason string) {
	if !c.inRound {
		return
	}
	c.inRound = false

	r := domain.Round{
		Number:    c.round,
		Winner:    winner,
		EndReason: reason,
		StartTick: c.roundStart,
		EndTick:   tick,
		TeamOnT:   c.teamOnT,
		TeamOnCT:  c.teamOnCT,
	}
	r.Duration = c.ticksToDuration(tick - c.roundStart)
	c.rounds = append(c.rounds, r)
}

func (c *collector) onKill(tick int, killer, victim, assister *participant, weapon string, headshot bool, penetrated int) {
	if c.round == 0 || victim == nil {
		return
	}

	k := domain.Kill{
		Tick:       tick,
		Round:      c.round,
		VictimID:   victim.ID,
		VictimName: victim.Name,
		VictimSide: victim.Side,
		VictimTeam: c.teamFor(*victim),
		Weapon:     weapon,
		Headshot:   headshot,
		Penetrated: penetrated,
	}
	c.see(*victim)

	if killer != nil {
		k.KillerID = killer.ID
		k.KillerName = killer.Name
		k.KillerSide = killer.Side
		k.KillerTeam = c.teamFor(*killer)
		c.see(*killer)
	}
	if assister != nil {
		k.AssisterID = assister.ID
		k.AssisterName = assister.Name
		c.see(*assister)
	}

	c.kills = append(c.kills, k)
}

func (c *collector) onWeaponFire(tick int, shooter participant, weapon string) {
	if c.round == 0 {
		return
	}
	c.see(shooter)
	c.fired = append(c.fired, domain.WeaponFire{
		Tick:        tick,
		Round:       c.round,
		ShooterID:   shooter.ID,
		ShooterName: shooter.Name,
		ShooterSide: shooter.Side,
		Weapon:      weapon,
	})
}

func (c *collector) onPlayerFlashed(tick int, thrower, victim participant, duration time.Duration) {
	if c.round == 0 || duration <= 0 {
		return
	}
	c.see(thrower)
	c.see(victim)
	c.blinded = append(c.blinded, domain.PlayerBlind{
		Tick:        tick,
		Round:       c.round,
		ThrowerID:   thrower.ID,
		ThrowerName: thrower.Name,
		ThrowerSide: thrower.Side,
		ThrowerTeam: c.teamFor(thrower),
		VictimID:    victim.ID,
		VictimName:  victim.Name,
		VictimSide:  victim.Side,
		VictimTeam:  c.teamFor(victim),
		Duration:    duration,
	})
}

func (c *collector) ticksToDuration(ticks int) time.Duration {
	rate := c.header.TickRate()
	if rate <= 0 || ticks <= 0 {
		return 0
	}
	return time.Duration(float64(ticks) / rate * float64(time.Second))
}

// markTrades flags kills that avenged a teammate killed by the same victim
// within the trade window
func (c *collector) markTrades() {
	window := int(tradeWindow.Seconds() * c.header.TickRate())
	if window <= 0 {
		return
	}
	for i := range c.kills {
		k := &c.kills[i]
		if k.KillerID == 0 || k.IsTeamKill() {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			prev := c.kills[j]
			if prev.Round != k.Round || k.Tick-prev.Tick > window {
				break
			}
			if prev.KillerID == k.VictimID && prev.VictimTeam == k.KillerTeam && prev.VictimID != k.KillerID {
				k.TradeKill = true
				break
			}
		}
	}
}

// finish builds the match from everything collected
func (c *collector) finish(analyzedAt time.Time) *domain.Match {
	c.markTrades()

	m := &domain.Match{
		Identity:      c.header.Identity,
		SchemaVersion: domain.SchemaVersion,
		Header:        c.header,
		Source:        c.header.Source,
		AnalyzedAt:    analyzedAt.UTC(),
		Duration:      c.header.PlaybackTime,
		Rounds:        c.rounds,
		Kills:         c.kills,
		WeaponFired:   c.fired,
		PlayerBlinded: c.blinded,
	}

	m.Teams = c.teams()

	m.Players = make([]domain.Player, 0, len(c.order))
	for _, id := range c.order {
		m.Players = append(m.Players, *c.players[id])
	}
	sort.SliceStable(m.Players, func(i, j int) bool {
		if m.Players[i].TeamName != m.Players[j].TeamName {
			return m.Players[i].TeamName < m.Players[j].TeamName
		}
		return m.Players[i].Name < m.Players[j].Name
	})

	return m
}

// teams derives both teams from the round list. The team that played T
// in the first round comes first.
func (c *collector) teams() [2]domain.Team {
	var teams [2]domain.Team
	if len(c.rounds) == 0 {
		teams[0] = domain.Team{Name: teamALabel, StartingSide: domain.SideTerrorist}
		teams[1] = domain.Team{Name: teamBLabel, StartingSide: domain.SideCounterTerrorist}
		return teams
	}

	first := c.rounds[0]
	teams[0] = domain.Team{Name: first.TeamOnT, StartingSide: domain.SideTerrorist}
	teams[1] = domain.Team{Name: first.TeamOnCT, StartingSide: domain.SideCounterTerrorist}

	for _, r := range c.rounds {
		winner := r.WinnerTeam()
		for i := range teams {
			if teams[i].Name != winner {
				continue
			}
			teams[i].Score++
			if r.Number <= regulationHalf {
				teams[i].ScoreFirstHalf++
			}
		}
	}
	return teams
}
