package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demoreport/pkg/contracts/domain"
)

// 64 ticks per second
func testHeader() domain.MatchHeader {
	return domain.MatchHeader{
		Identity:      "abc123",
		MapName:       "de_inferno",
		Source:        domain.SourceValve,
		PlaybackTime:  100 * time.Second,
		PlaybackTicks: 6400,
	}
}

func tPlayer(id uint64, name string) participant {
	return participant{ID: id, Name: name, Side: domain.SideTerrorist}
}

func ctPlayer(id uint64, name string) participant {
	return participant{ID: id, Name: name, Side: domain.SideCounterTerrorist}
}

func TestSidesSwapped(t *testing.T) {
	tests := []struct {
		round int
		want  bool
	}{
		{1, false},
		{15, false},
		{16, true},
		{30, true},
		{31, true},
		{33, true},
		{34, false},
		{36, false},
		{37, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sidesSwapped(tt.round), "round %d", tt.round)
	}
}

func TestFallbackTeam(t *testing.T) {
	assert.Equal(t, teamALabel, fallbackTeam(domain.SideTerrorist, 1))
	assert.Equal(t, teamBLabel, fallbackTeam(domain.SideCounterTerrorist, 1))
	assert.Equal(t, teamBLabel, fallbackTeam(domain.SideTerrorist, 16))
	assert.Equal(t, teamALabel, fallbackTeam(domain.SideCounterTerrorist, 16))
}

func TestCollector_RoundsAndScore(t *testing.T) {
	c := newCollector(testHeader())

	c.onRoundStart(0, "Vitality", "NAVI")
	c.onRoundEnd(640, domain.SideTerrorist, "bomb_exploded")
	c.onRoundStart(700, "Vitality", "NAVI")
	c.onRoundEnd(1340, domain.SideCounterTerrorist, "bomb_defused")
	c.onRoundStart(1400, "Vitality", "NAVI")
	c.onRoundEnd(1464, domain.SideCounterTerrorist, "ct_eliminated_t")
	// a second end without a start is ignored
	c.onRoundEnd(1500, domain.SideTerrorist, "draw")

	m := c.finish(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.Len(t, m.Rounds, 3)
	assert.Equal(t, 1, m.Rounds[0].Number)
	assert.Equal(t, 10*time.Second, m.Rounds[0].Duration)
	assert.Equal(t, "Vitality", m.Rounds[0].WinnerTeam())
	assert.Equal(t, "NAVI", m.Rounds[1].WinnerTeam())

	assert.Equal(t, "Vitality", m.Teams[0].Name)
	assert.Equal(t, domain.SideTerrorist, m.Teams[0].StartingSide)
	assert.Equal(t, 1, m.Teams[0].Score)
	assert.Equal(t, "NAVI", m.Teams[1].Name)
	assert.Equal(t, 2, m.Teams[1].Score)
	assert.Equal(t, 2, m.Teams[1].ScoreFirstHalf)

	assert.Equal(t, domain.MatchIdentity("abc123"), m.Identity)
	assert.Equal(t, domain.SchemaVersion, m.SchemaVersion)
	assert.Equal(t, domain.SourceValve, m.Source)
	assert.Equal(t, 100*time.Second, m.Duration)
}

func TestCollector_KillsAndPlayers(t *testing.T) {
	c := newCollector(testHeader())

	alice, bob := tPlayer(1, "alice"), tPlayer(2, "bob")
	carol, dave := ctPlayer(3, "carol"), ctPlayer(4, "dave")

	// before the first round: warmup noise
	c.onKill(10, &alice, &carol, nil, "AK-47", true, 0)
	c.onWeaponFire(10, alice, "AK-47")

	c.onRoundStart(100, "", "")
	c.onWeaponFire(110, alice, "AK-47")
	c.onKill(120, &alice, &carol, &bob, "AK-47", true, 1)
	// dave avenges carol two seconds later
	c.onKill(248, &dave, &alice, nil, "M4A4", false, 0)
	c.onPlayerFlashed(300, dave, bob, 2*time.Second)
	c.onPlayerFlashed(301, dave, bob, 0)
	c.onRoundEnd(400, domain.SideCounterTerrorist, "ct_eliminated_t")

	m := c.finish(time.Now())

	require.Len(t, m.Kills, 2)
	first := m.Kills[0]
	assert.Equal(t, 1, first.Round)
	assert.Equal(t, "alice", first.KillerName)
	assert.Equal(t, teamALabel, first.KillerTeam)
	assert.Equal(t, teamBLabel, first.VictimTeam)
	assert.Equal(t, uint64(2), first.AssisterID)
	assert.True(t, first.Headshot)
	assert.Equal(t, 1, first.Penetrated)
	assert.False(t, first.TradeKill)

	assert.True(t, m.Kills[1].TradeKill, "revenge within the window is a trade")

	require.Len(t, m.WeaponFired, 1)
	assert.Equal(t, 1, m.WeaponFired[0].Round)

	require.Len(t, m.PlayerBlinded, 1)
	assert.Equal(t, 2*time.Second, m.PlayerBlinded[0].Duration)
	assert.Equal(t, teamBLabel, m.PlayerBlinded[0].ThrowerTeam)

	require.Len(t, m.Players, 4)
	// sorted by team, then name
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"},
		[]string{m.Players[0].Name, m.Players[1].Name, m.Players[2].Name, m.Players[3].Name})
	assert.Equal(t, teamALabel, m.Players[0].TeamName)
	assert.Equal(t, teamBLabel, m.Players[3].TeamName)
}

func TestCollector_TradeWindowExpires(t *testing.T) {
	c := newCollector(testHeader())
	alice, carol, dave := tPlayer(1, "alice"), ctPlayer(3, "carol"), ctPlayer(4, "dave")

	c.onRoundStart(0, "", "")
	c.onKill(100, &alice, &carol, nil, "AK-47", false, 0)
	// 6 seconds later at 64 tick
	c.onKill(100+6*64, &dave, &alice, nil, "M4A4", false, 0)
	c.onRoundEnd(1000, domain.SideCounterTerrorist, "ct_eliminated_t")

	m := c.finish(time.Now())
	require.Len(t, m.Kills, 2)
	assert.False(t, m.Kills[1].TradeKill)
}

func TestCollector_BotsAndWorldKills(t *testing.T) {
	c := newCollector(testHeader())
	bot := participant{ID: 0, Name: "BOT Ted", Side: domain.SideTerrorist}
	carol := ctPlayer(3, "carol")

	c.onRoundStart(0, "", "")
	c.onKill(50, nil, &carol, nil, "World", false, 0)
	c.onKill(60, &carol, &bot, nil, "USP-S", false, 0)
	c.onKill(70, &carol, nil, nil, "USP-S", false, 0)

	m := c.finish(time.Now())
	require.Len(t, m.Kills, 2)
	assert.Zero(t, m.Kills[0].KillerID)
	assert.False(t, m.Kills[0].IsTeamKill())
	require.Len(t, m.Players, 1, "bots are not tracked")
	assert.Equal(t, "carol", m.Players[0].Name)
}

func TestCollector_ResetDropsWarmup(t *testing.T) {
	c := newCollector(testHeader())
	alice, carol := tPlayer(1, "alice"), ctPlayer(3, "carol")

	c.onRoundStart(0, "", "")
	c.onKill(10, &alice, &carol, nil, "AK-47", false, 0)
	c.onRoundEnd(20, domain.SideTerrorist, "t_eliminated_ct")

	c.reset()
	c.onRoundStart(100, "", "")
	c.onRoundEnd(200, domain.SideCounterTerrorist, "time_expired")

	m := c.finish(time.Now())
	require.Len(t, m.Rounds, 1)
	assert.Equal(t, 1, m.Rounds[0].Number)
	assert.Empty(t, m.Kills)
	assert.Equal(t, domain.MatchIdentity("abc123"), m.Identity)
}

func TestCollector_NoRounds(t *testing.T) {
	m := newCollector(testHeader()).finish(time.Now())
	assert.Equal(t, teamALabel, m.Teams[0].Name)
	assert.Equal(t, teamBLabel, m.Teams[1].Name)
	assert.Empty(t, m.Players)
}
