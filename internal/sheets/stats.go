package sheets

import (
	"math"
	"time"

	"demoreport/pkg/contracts/domain"
)

type playerStats struct {
	Kills          int
	Deaths         int
	Assists        int
	Headshots      int
	TeamKills      int
	TradeKills     int
	ShotsFired     int
	FlashesThrown  int
	EnemiesFlashed int
	EntryKills     int
	EntryHoldKills int
}

func (s playerStats) killDeathRatio() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return round2(float64(s.Kills) / float64(s.Deaths))
}

func (s playerStats) headshotPercent() float64 {
	return percent(s.Headshots, s.Kills)
}

// computePlayerStats aggregates per-player counters keyed by steam id
func computePlayerStats(m *domain.Match) map[uint64]*playerStats {
	stats := make(map[uint64]*playerStats, len(m.Players))
	get := func(id uint64) *playerStats {
		s, ok := stats[id]
		if !ok {
			s = &playerStats{}
			stats[id] = s
		}
		return s
	}

	for _, k := range m.Kills {
		if k.VictimID != 0 {
			get(k.VictimID).Deaths++
		}
		if k.AssisterID != 0 {
			get(k.AssisterID).Assists++
		}
		if k.KillerID == 0 || k.KillerID == k.VictimID {
			continue
		}
		s := get(k.KillerID)
		if k.IsTeamKill() {
			s.TeamKills++
			continue
		}
		s.Kills++
		if k.Headshot {
			s.Headshots++
		}
		if k.TradeKill {
			s.TradeKills++
		}
	}

	for _, f := range m.WeaponFired {
		get(f.ShooterID).ShotsFired++
	}

	// one flashbang blinds several players at the same tick
	type throw struct {
		thrower uint64
		tick    int
	}
	seen := make(map[throw]bool)
	for _, b := range m.PlayerBlinded {
		s := get(b.ThrowerID)
		if t := (throw{b.ThrowerID, b.Tick}); !seen[t] {
			seen[t] = true
			s.FlashesThrown++
		}
		if b.ThrowerTeam != b.VictimTeam {
			s.EnemiesFlashed++
		}
	}

	for _, e := range entryKills(m, domain.SideTerrorist) {
		get(e.Kill.KillerID).EntryKills++
	}
	for _, e := range entryKills(m, domain.SideCounterTerrorist) {
		get(e.Kill.KillerID).EntryHoldKills++
	}
	return stats
}

// entryKill is the opening kill of a round
type entryKill struct {
	Round domain.Round
	Kill  domain.Kill
	Won   bool
}

// entryKills returns the rounds whose opening kill was made by side, in
// round order: T openings are entry kills, CT openings entry hold kills.
// Team kills and world damage do not open a round.
func entryKills(m *domain.Match, side domain.Side) []entryKill {
	var out []entryKill
	for _, r := range m.Rounds {
		for _, k := range m.KillsInRound(r.Number) {
			if k.KillerID == 0 || k.IsTeamKill() {
				continue
			}
			if k.KillerSide == side {
				out = append(out, entryKill{Round: r, Kill: k, Won: r.Winner == side})
			}
			break
		}
	}
	return out
}

type outcome struct {
	Total int
	Won   int
}

func (o outcome) Lost() int { return o.Total - o.Won }

func (o outcome) Rate() float64 { return percent(o.Won, o.Total) }

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(100 * float64(n) / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func seconds(d time.Duration) float64 {
	return round2(d.Seconds())
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
