package sheets

import (
	"time"

	"demoreport/pkg/contracts/domain"
)

// killMatrixTable counts kills per killer (rows) and victim (columns)
func killMatrixTable(m *domain.Match) ([]string, [][]any) {
	counts := make(map[[2]uint64]int)
	for _, k := range m.Kills {
		if k.KillerID != 0 && k.VictimID != 0 {
			counts[[2]uint64{k.KillerID, k.VictimID}]++
		}
	}
	return playerMatrix(m, "Killer \\ Victim", func(row, col uint64) any {
		return counts[[2]uint64{row, col}]
	})
}

// flashPlayersTable sums blind seconds per flasher (rows) and flashed
// player (columns)
func flashPlayersTable(m *domain.Match) ([]string, [][]any) {
	blind := make(map[[2]uint64]time.Duration)
	for _, b := range m.PlayerBlinded {
		blind[[2]uint64{b.ThrowerID, b.VictimID}] += b.Duration
	}
	return playerMatrix(m, "Flasher \\ Flashed", func(row, col uint64) any {
		return seconds(blind[[2]uint64{row, col}])
	})
}

// flashTeamsTable sums blind seconds per flashing team and flashed team
func flashTeamsTable(m *domain.Match) ([]string, [][]any) {
	blind := make(map[[2]string]time.Duration)
	for _, b := range m.PlayerBlinded {
		blind[[2]string{b.ThrowerTeam, b.VictimTeam}] += b.Duration
	}

	teams := m.TeamNames()
	header := append([]string{"Flasher \\ Flashed"}, teams...)
	rows := make([][]any, 0, len(teams))
	for _, from := range teams {
		row := []any{from}
		for _, to := range teams {
			row = append(row, seconds(blind[[2]string{from, to}]))
		}
		rows = append(rows, row)
	}
	return header, rows
}

func playerMatrix(m *domain.Match, corner string, cell func(row, col uint64) any) ([]string, [][]any) {
	header := make([]string, 0, len(m.Players)+1)
	header = append(header, corner)
	for _, p := range m.Players {
		header = append(header, p.Name)
	}

	rows := make([][]any, 0, len(m.Players))
	for _, r := range m.Players {
		row := make([]any, 0, len(m.Players)+1)
		row = append(row, r.Name)
		for _, c := range m.Players {
			row = append(row, cell(r.SteamID, c.SteamID))
		}
		rows = append(rows, row)
	}
	return header, rows
}
