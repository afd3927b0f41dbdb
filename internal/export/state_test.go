package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateStart, StateIdentityResolved, true},
		{StateStart, StateAnalyzing, false},
		{StateIdentityResolved, StateAnalyzing, true},
		{StateIdentityResolved, StateCacheLoading, true},
		{StateIdentityResolved, StateGenerating, false},
		{StateCacheLoading, StateModelReady, true},
		{StateCacheLoading, StateAnalyzing, true},
		{StateAnalyzing, StateCacheLoading, false},
		{StateModelReady, StateGenerating, true},
		{StateGenerating, StateDone, true},
		{StateGenerating, StateCancelled, true},
		{StateAnalyzing, StateFailed, true},
		{StateDone, StateFailed, false},
		{StateCancelled, StateFailed, false},
		{StateFailed, StateStart, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}
}

func TestRunState_Lifecycle(t *testing.T) {
	run := NewRunState("run-1", "match.dem", fixedClock())
	assert.Equal(t, StateStart, run.Current())

	require.NoError(t, run.Transition(StateIdentityResolved))
	require.NoError(t, run.Transition(StateCacheLoading))
	require.Error(t, run.Transition(StateDone))
	assert.Equal(t, StateCacheLoading, run.Current(), "rejected transition leaves the state unchanged")

	require.NoError(t, run.Transition(StateModelReady))
	run.planSheets([]string{"A", "B"})
	require.NoError(t, run.Transition(StateGenerating))
	run.startSheet(0)
	run.completeSheet(0, 5)
	run.startSheet(1)
	run.completeSheet(1, 2)
	require.NoError(t, run.Transition(StateDone))

	assert.Equal(t, 2, run.SheetsCompleted())
	assert.Equal(t, time.Second, run.Sheets[0].Duration())
	require.NotNil(t, run.EndTime)
	assert.Positive(t, run.Duration())
	assert.Len(t, run.History, 5)

	run.Fail(errors.New("late"))
	assert.Equal(t, StateDone, run.Current(), "terminal states are final")
	assert.Nil(t, run.Error)
}

func TestRunState_FailAndCancel(t *testing.T) {
	run := NewRunState("run-2", "match.dem", nil)
	require.NoError(t, run.Transition(StateIdentityResolved))
	boom := errors.New("boom")
	run.Fail(boom)
	assert.Equal(t, StateFailed, run.Current())
	assert.Equal(t, boom, run.Error)

	run = NewRunState("run-3", "match.dem", nil)
	run.Cancel(context.Canceled)
	assert.Equal(t, StateCancelled, run.Current())
	assert.ErrorIs(t, run.Error, context.Canceled)
}

func TestRunState_CloneIsIndependent(t *testing.T) {
	run := NewRunState("run-4", "match.dem", fixedClock())
	run.planSheets([]string{"A"})
	require.NoError(t, run.Transition(StateIdentityResolved))

	clone := run.Clone()
	run.startSheet(0)
	run.completeSheet(0, 3)
	require.NoError(t, run.Transition(StateAnalyzing))

	assert.Equal(t, StateIdentityResolved, clone.Current())
	assert.Equal(t, SheetStatusPending, clone.Sheets[0].Status)
	assert.Len(t, clone.History, 1)
	assert.Equal(t, []State{StateStart, StateIdentityResolved}, clone.Visited())
}

func TestPercentFor(t *testing.T) {
	assert.Equal(t, 0, percentFor(StateStart, 0, 0))
	assert.Equal(t, 40, percentFor(StateModelReady, 0, 13))
	assert.Equal(t, 40, percentFor(StateGenerating, 0, 13))
	assert.Equal(t, 70, percentFor(StateGenerating, 1, 2))
	assert.Equal(t, 100, percentFor(StateGenerating, 13, 13))
	assert.Equal(t, 100, percentFor(StateDone, 13, 13))
}

func TestMultiObserver(t *testing.T) {
	var got []string
	obs := MultiObserver{
		ObserverFunc(func(_ context.Context, p Progress) { got = append(got, "a:"+string(p.State)) }),
		nil,
		ObserverFunc(func(_ context.Context, p Progress) { got = append(got, "b:"+string(p.State)) }),
	}
	obs.Observe(context.Background(), Progress{State: StateDone})
	assert.Equal(t, []string{"a:done", "b:done"}, got)
}
