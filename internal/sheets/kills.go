package sheets

import (
	"strconv"

	"demoreport/pkg/contracts/domain"
)

func killsTable(m *domain.Match) ([]string, [][]any) {
	header := []string{
		"Tick", "Round", "Killer", "Killer SteamID", "Killer side", "Killer team",
		"Victim", "Victim SteamID", "Victim side", "Victim team", "Assister",
		"Weapon", "Headshot", "Penetrated objects", "Trade kill", "Team kill",
	}

	rows := make([][]any, 0, len(m.Kills))
	for _, k := range m.Kills {
		rows = append(rows, []any{
			k.Tick,
			k.Round,
			k.KillerName,
			steamID(k.KillerID),
			string(k.KillerSide),
			k.KillerTeam,
			k.VictimName,
			steamID(k.VictimID),
			string(k.VictimSide),
			k.VictimTeam,
			k.AssisterName,
			k.Weapon,
			yesNo(k.Headshot),
			k.Penetrated,
			yesNo(k.TradeKill),
			yesNo(k.IsTeamKill()),
		})
	}
	return header, rows
}

func steamID(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}
