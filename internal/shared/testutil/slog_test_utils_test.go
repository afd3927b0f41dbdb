package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demoreport/pkg/contracts/domain"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("cache_hit", slog.String("identity", "abc"))
		logger.Error("export_failed", slog.Int("code", 2))

		assert.Equal(t, 2, handler.Count())
		assert.Equal(t, []string{"cache_hit", "export_failed"}, handler.Messages())
		assert.True(t, handler.ContainsAttr("identity", "abc"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("keeps bound attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "export").WithGroup("run").Info("state_changed", slog.String("to", "done"))

		records := handler.RecordsWithMessage("state_changed")
		require.Len(t, records, 1)
		assert.Equal(t, "export", records[0].Attrs["component"])
		assert.Equal(t, "done", records[0].Attrs["run.to"])
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.With("a", 1).Info("one")
		handler.Clear()
		assert.Zero(t, handler.Count())
	})
}

func TestSampleMatch(t *testing.T) {
	m := SampleMatch()

	assert.Equal(t, SampleIdentity, m.Identity)
	assert.Equal(t, domain.SchemaVersion, m.SchemaVersion)
	assert.Len(t, m.Players, 4)
	assert.Len(t, m.Rounds, 3)
	assert.Len(t, m.KillsInRound(3), 3)
	assert.True(t, m.Kills[3].IsTeamKill())
	assert.Equal(t, "Bravo", m.TeamOf(SteamBolt))

	m.Players[0].Name = "changed"
	assert.Equal(t, "ace", SampleMatch().Players[0].Name, "every call returns a fresh copy")
}
