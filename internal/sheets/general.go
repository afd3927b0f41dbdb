package sheets

import (
	"path/filepath"
	"time"

	"demoreport/pkg/contracts/domain"
)

func generalTable(m *domain.Match) ([]string, [][]any) {
	header := []string{
		"Filename", "Identity", "Source", "Map", "Server", "Client", "Duration",
		"Tick rate", "Team 1", "Score team 1", "Score 1st half team 1",
		"Team 2", "Score team 2", "Score 1st half team 2", "Winner",
		"Rounds", "Kills", "Headshots", "Shots fired", "Flashbangs", "Analyzed at",
	}

	headshots := 0
	for _, k := range m.Kills {
		if k.Headshot && !k.IsTeamKill() {
			headshots++
		}
	}
	flashes := 0
	for _, s := range computePlayerStats(m) {
		flashes += s.FlashesThrown
	}

	winner := "Draw"
	switch {
	case m.Teams[0].Score > m.Teams[1].Score:
		winner = m.Teams[0].Name
	case m.Teams[1].Score > m.Teams[0].Score:
		winner = m.Teams[1].Name
	}

	filename := ""
	if m.Header.Path != "" {
		filename = filepath.Base(m.Header.Path)
	}

	row := []any{
		filename,
		string(m.Identity),
		string(m.Source),
		m.Header.MapName,
		m.Header.ServerName,
		m.Header.ClientName,
		m.Duration.Round(time.Second).String(),
		round2(m.Header.TickRate()),
		m.Teams[0].Name, m.Teams[0].Score, m.Teams[0].ScoreFirstHalf,
		m.Teams[1].Name, m.Teams[1].Score, m.Teams[1].ScoreFirstHalf,
		winner,
		len(m.Rounds),
		len(m.Kills),
		headshots,
		len(m.WeaponFired),
		flashes,
		m.AnalyzedAt.UTC().Format(time.RFC3339),
	}
	return header, [][]any{row}
}
