package sheets

import (
	"strconv"

	"demoreport/pkg/contracts/domain"
)

func playersTable(m *domain.Match) ([]string, [][]any) {
	header := []string{
		"Name", "SteamID", "Team", "Kills", "Deaths", "Assists", "K/D",
		"HS", "HS %", "Team kills", "Trade kills", "Shots fired",
		"Flashes thrown", "Enemies flashed", "Entry kills", "Entry hold kills",
	}

	stats := computePlayerStats(m)
	rows := make([][]any, 0, len(m.Players))
	for _, p := range m.Players {
		s := stats[p.SteamID]
		if s == nil {
			s = &playerStats{}
		}
		rows = append(rows, []any{
			p.Name,
			strconv.FormatUint(p.SteamID, 10),
			p.TeamName,
			s.Kills, s.Deaths, s.Assists, s.killDeathRatio(),
			s.Headshots, s.headshotPercent(),
			s.TeamKills, s.TradeKills, s.ShotsFired,
			s.FlashesThrown, s.EnemiesFlashed,
			s.EntryKills, s.EntryHoldKills,
		})
	}
	return header, rows
}
