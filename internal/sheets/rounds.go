package sheets

import (
	"demoreport/pkg/contracts/domain"
)

func roundsTable(m *domain.Match) ([]string, [][]any) {
	header := []string{
		"Number", "Winner side", "Winner team", "End reason", "Duration (s)",
		"Team T", "Team CT", "Kills", "Headshots", "Shots fired", "Flashbangs",
	}

	type counts struct{ kills, headshots, shots int }
	perRound := make(map[int]*counts, len(m.Rounds))
	for _, r := range m.Rounds {
		perRound[r.Number] = &counts{}
	}
	for _, k := range m.Kills {
		if c := perRound[k.Round]; c != nil && !k.IsTeamKill() && k.KillerID != 0 {
			c.kills++
			if k.Headshot {
				c.headshots++
			}
		}
	}
	for _, f := range m.WeaponFired {
		if c := perRound[f.Round]; c != nil {
			c.shots++
		}
	}

	flashes := make(map[int]map[[2]uint64]bool)
	for _, b := range m.PlayerBlinded {
		if flashes[b.Round] == nil {
			flashes[b.Round] = make(map[[2]uint64]bool)
		}
		flashes[b.Round][[2]uint64{b.ThrowerID, uint64(b.Tick)}] = true
	}

	rows := make([][]any, 0, len(m.Rounds))
	for _, r := range m.Rounds {
		c := perRound[r.Number]
		rows = append(rows, []any{
			r.Number,
			string(r.Winner),
			r.WinnerTeam(),
			r.EndReason,
			seconds(r.Duration),
			r.TeamOnT,
			r.TeamOnCT,
			c.kills,
			c.headshots,
			c.shots,
			len(flashes[r.Number]),
		})
	}
	return header, rows
}
