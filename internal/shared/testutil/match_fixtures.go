package testutil

import (
	"time"

	"demoreport/pkg/contracts/domain"
)

// Steam ids of the sample match roster
const (
	SteamAce   uint64 = 76561198000000001
	SteamAsh   uint64 = 76561198000000002
	SteamBolt  uint64 = 76561198000000003
	SteamBlaze uint64 = 76561198000000004
)

// SampleIdentity is the identity of SampleMatch
const SampleIdentity domain.MatchIdentity = "5a3f0c1e9b7d42a6b8e1f0c3d5a7b9e2c4f6a8b0d2e4f6a8c0e2a4b6c8d0e2f4"

// SampleHeader returns the header of SampleMatch
func SampleHeader() *domain.MatchHeader {
	return &domain.MatchHeader{
		Identity:       SampleIdentity,
		Path:           "/demos/alpha-vs-bravo.dem",
		MapName:        "de_dust2",
		ServerName:     "Valve CS:GO EU West",
		ClientName:     "GOTV Demo",
		Source:         domain.SourceValve,
		PlaybackTime:   3 * time.Minute,
		PlaybackTicks:  23040,
		PlaybackFrames: 11520,
	}
}

// SampleMatch returns a three-round match between Alpha (starting T) and
// Bravo (starting CT) with two players each:
//
//	round 1  T win   ace opens on bolt, blaze trades ash, ace kills blaze
//	round 2  CT win  ash team-kills ace, bolt kills ash
//	round 3  T win   ash opens on blaze (HS), bolt kills ash, ace kills bolt
func SampleMatch() *domain.Match {
	h := SampleHeader()
	k := func(tick, round int, killer, victim uint64, weapon string, hs bool) domain.Kill {
		kn, ks, kt := who(killer, round)
		vn, vs, vt := who(victim, round)
		return domain.Kill{
			Tick: tick, Round: round,
			KillerID: killer, KillerName: kn, KillerSide: ks, KillerTeam: kt,
			VictimID: victim, VictimName: vn, VictimSide: vs, VictimTeam: vt,
			Weapon: weapon, Headshot: hs,
		}
	}

	kills := []domain.Kill{
		k(1000, 1, SteamAce, SteamBolt, "AK-47", false),
		k(1100, 1, SteamBlaze, SteamAsh, "M4A4", false),
		k(1200, 1, SteamAce, SteamBlaze, "AK-47", true),
		k(2000, 2, SteamAsh, SteamAce, "Glock-18", false),
		k(2100, 2, SteamBolt, SteamAsh, "USP-S", false),
		k(3000, 3, SteamAsh, SteamBlaze, "Desert Eagle", true),
		k(3050, 3, SteamBolt, SteamAsh, "AWP", false),
		k(3100, 3, SteamAce, SteamBolt, "AK-47", false),
	}
	kills[1].TradeKill = true
	kills[2].AssisterID = SteamAsh
	kills[2].AssisterName = "ash"

	fire := func(tick, round int, shooter uint64, weapon string) domain.WeaponFire {
		n, s, _ := who(shooter, round)
		return domain.WeaponFire{Tick: tick, Round: round, ShooterID: shooter, ShooterName: n, ShooterSide: s, Weapon: weapon}
	}
	blind := func(tick, round int, thrower, victim uint64, d time.Duration) domain.PlayerBlind {
		tn, ts, tt := who(thrower, round)
		vn, vs, vt := who(victim, round)
		return domain.PlayerBlind{
			Tick: tick, Round: round,
			ThrowerID: thrower, ThrowerName: tn, ThrowerSide: ts, ThrowerTeam: tt,
			VictimID: victim, VictimName: vn, VictimSide: vs, VictimTeam: vt,
			Duration: d,
		}
	}

	return &domain.Match{
		Identity:      SampleIdentity,
		SchemaVersion: domain.SchemaVersion,
		Header:        *h,
		Source:        h.Source,
		AnalyzedAt:    time.Date(2024, 5, 4, 18, 30, 0, 0, time.UTC),
		Duration:      3 * time.Minute,
		Teams: [2]domain.Team{
			{Name: "Alpha", Score: 2, ScoreFirstHalf: 2, StartingSide: domain.SideTerrorist},
			{Name: "Bravo", Score: 1, ScoreFirstHalf: 1, StartingSide: domain.SideCounterTerrorist},
		},
		Players: []domain.Player{
			{SteamID: SteamAce, Name: "ace", TeamName: "Alpha"},
			{SteamID: SteamAsh, Name: "ash", TeamName: "Alpha"},
			{SteamID: SteamBlaze, Name: "blaze", TeamName: "Bravo"},
			{SteamID: SteamBolt, Name: "bolt", TeamName: "Bravo"},
		},
		Rounds: []domain.Round{
			{Number: 1, Winner: domain.SideTerrorist, EndReason: "t_eliminated_ct", StartTick: 900, EndTick: 1300,
				Duration: 50 * time.Second, TeamOnT: "Alpha", TeamOnCT: "Bravo"},
			{Number: 2, Winner: domain.SideCounterTerrorist, EndReason: "ct_eliminated_t", StartTick: 1800, EndTick: 2200,
				Duration: 48 * time.Second, TeamOnT: "Alpha", TeamOnCT: "Bravo"},
			{Number: 3, Winner: domain.SideTerrorist, EndReason: "bomb_exploded", StartTick: 2900, EndTick: 3300,
				Duration: 75500 * time.Millisecond, TeamOnT: "Alpha", TeamOnCT: "Bravo"},
		},
		Kills: kills,
		WeaponFired: []domain.WeaponFire{
			fire(990, 1, SteamAce, "AK-47"),
			fire(995, 1, SteamAce, "AK-47"),
			fire(1190, 1, SteamAce, "AK-47"),
			fire(2090, 2, SteamBolt, "USP-S"),
		},
		PlayerBlinded: []domain.PlayerBlind{
			blind(900, 1, SteamAce, SteamBolt, 2*time.Second),
			blind(900, 1, SteamAce, SteamBlaze, time.Second),
			blind(900, 1, SteamAce, SteamAsh, 500*time.Millisecond),
			blind(1900, 2, SteamBolt, SteamAce, 1500*time.Millisecond),
		},
	}
}

// who returns name, side and team of a roster member; Alpha plays T in
// every sample round
func who(id uint64, round int) (string, domain.Side, string) {
	switch id {
	case SteamAce:
		return "ace", domain.SideTerrorist, "Alpha"
	case SteamAsh:
		return "ash", domain.SideTerrorist, "Alpha"
	case SteamBlaze:
		return "blaze", domain.SideCounterTerrorist, "Bravo"
	case SteamBolt:
		return "bolt", domain.SideCounterTerrorist, "Bravo"
	}
	return "", domain.SideNone, ""
}
