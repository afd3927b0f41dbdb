package sheets

import (
	"demoreport/pkg/contracts/domain"
)

func result(won bool) string {
	if won {
		return "Won"
	}
	return "Lost"
}

func entryRoundsTable(side domain.Side) builder {
	return func(m *domain.Match) ([]string, [][]any) {
		header := []string{
			"Round", "Killer", "Killer team", "Victim", "Victim team", "Weapon", "Headshot", "Result",
		}
		entries := entryKills(m, side)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{
				e.Round.Number,
				e.Kill.KillerName,
				e.Kill.KillerTeam,
				e.Kill.VictimName,
				e.Kill.VictimTeam,
				e.Kill.Weapon,
				yesNo(e.Kill.Headshot),
				result(e.Won),
			})
		}
		return header, rows
	}
}

func entryPlayersTable(side domain.Side) builder {
	return func(m *domain.Match) ([]string, [][]any) {
		header := []string{"Name", "SteamID", "Team", "Total", "Won", "Lost", "Win rate %"}

		byPlayer := make(map[uint64]outcome)
		for _, e := range entryKills(m, side) {
			o := byPlayer[e.Kill.KillerID]
			o.Total++
			if e.Won {
				o.Won++
			}
			byPlayer[e.Kill.KillerID] = o
		}

		rows := make([][]any, 0, len(m.Players))
		for _, p := range m.Players {
			o := byPlayer[p.SteamID]
			rows = append(rows, []any{p.Name, steamID(p.SteamID), p.TeamName, o.Total, o.Won, o.Lost(), o.Rate()})
		}
		return header, rows
	}
}

func entryTeamsTable(side domain.Side) builder {
	return func(m *domain.Match) ([]string, [][]any) {
		header := []string{"Team", "Total", "Won", "Lost", "Win rate %"}

		byTeam := make(map[string]outcome)
		for _, e := range entryKills(m, side) {
			o := byTeam[e.Kill.KillerTeam]
			o.Total++
			if e.Won {
				o.Won++
			}
			byTeam[e.Kill.KillerTeam] = o
		}

		rows := make([][]any, 0, 2)
		for _, name := range m.TeamNames() {
			o := byTeam[name]
			rows = append(rows, []any{name, o.Total, o.Won, o.Lost(), o.Rate()})
		}
		return header, rows
	}
}
