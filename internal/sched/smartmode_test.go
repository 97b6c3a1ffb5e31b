package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aircon-schedule-backend/internal/model"
)

func intPtr(v int) *int { return &v }

// runLengths extracts each ON call's run segment length from the auto-off
// timer it carried.
func runLengths(t *testing.T, calls []powerCall) []time.Duration {
	t.Helper()
	var out []time.Duration
	for _, call := range calls {
		if !call.On {
			continue
		}
		require.NotNil(t, call.TimerAt, "smart mode ON calls must carry an auto-off timer")
		out = append(out, call.TimerAt.Sub(call.At))
	}
	return out
}

func TestSmartModeBudgetedCycle(t *testing.T) {
	core, s, disp, clock := newTestCore(t, testStart)
	ctx := context.Background()

	cfg, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{
		RunMinutes:   20,
		PauseMinutes: 10,
		TotalMinutes: intPtr(50),
	})
	require.NoError(t, err)
	assert.True(t, cfg.Active)
	require.NotNil(t, cfg.RemainingMinutes)
	assert.Equal(t, 50, *cfg.RemainingMinutes)

	// First segment starts immediately.
	clock.Advance(0)
	require.Len(t, disp.Calls(), 1)

	got, err := s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.PhasePaused, got.Phase)
	assert.Equal(t, 30, *got.RemainingMinutes)

	// Second segment at +30m (20 run + 10 pause).
	clock.Advance(30 * time.Minute)
	require.Len(t, disp.Calls(), 2)
	got, err = s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, *got.RemainingMinutes)

	// Final segment is capped by the 10 minutes left, then the program
	// deactivates itself.
	clock.Advance(30 * time.Minute)
	require.Len(t, disp.Calls(), 3)
	got, err = s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, model.PhaseIdle, got.Phase)
	assert.Equal(t, 0, *got.RemainingMinutes)

	assert.Equal(t,
		[]time.Duration{20 * time.Minute, 20 * time.Minute, 10 * time.Minute},
		runLengths(t, disp.Calls()),
		"run segments must sum to the budget exactly")

	// Nothing further fires once the budget is spent.
	clock.Advance(24 * time.Hour)
	assert.Len(t, disp.Calls(), 3)
}

func TestSmartModeRejectsOverlappingProgram(t *testing.T) {
	core, _, _, _ := newTestCore(t, testStart)
	ctx := context.Background()

	_, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 20, PauseMinutes: 10})
	require.NoError(t, err)

	_, err = core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 30, PauseMinutes: 5})
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestSmartModeParamValidation(t *testing.T) {
	core, _, _, _ := newTestCore(t, testStart)
	ctx := context.Background()

	_, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 0, PauseMinutes: 10})
	assert.Error(t, err)

	_, err = core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 10, PauseMinutes: -1})
	assert.Error(t, err)

	_, err = core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 10, TotalMinutes: intPtr(0)})
	assert.Error(t, err)
}

func TestSmartModeIndefiniteUntilStopped(t *testing.T) {
	core, s, disp, clock := newTestCore(t, testStart)
	ctx := context.Background()

	_, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 15, PauseMinutes: 5})
	require.NoError(t, err)

	// Without a budget the cycle keeps going.
	clock.Advance(0)
	clock.Advance(20 * time.Minute)
	clock.Advance(20 * time.Minute)
	assert.Len(t, disp.Calls(), 3)

	got, err := s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.Active)

	turnedOff, err := core.StopSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, turnedOff)

	got, err = s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, model.PhaseIdle, got.Phase)

	// The pending transition was disarmed along with the stop; only the
	// best-effort power-off call is added.
	clock.Advance(24 * time.Hour)
	calls := disp.Calls()
	assert.Len(t, calls, 4)
	assert.False(t, calls[3].On)
}

func TestSmartModeDispatchFailureStopsProgram(t *testing.T) {
	core, s, disp, clock := newTestCore(t, testStart)
	ctx := context.Background()

	_, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 15, PauseMinutes: 5})
	require.NoError(t, err)
	clock.Advance(0)
	require.Len(t, disp.Calls(), 1)

	// Break the upstream before the next segment; the program must stop
	// rather than loop on a failing vendor.
	disp.SetErr(errors.New("vendor down"))
	clock.Advance(20 * time.Minute)
	require.Len(t, disp.Calls(), 2)

	got, err := s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, got.Active)

	clock.Advance(24 * time.Hour)
	assert.Len(t, disp.Calls(), 2)
}

func TestSmartModeDelayedStart(t *testing.T) {
	core, _, disp, clock := newTestCore(t, testStart)
	ctx := context.Background()

	startAt := testStart.Add(15 * time.Minute)
	_, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{
		RunMinutes:   10,
		PauseMinutes: 0,
		StartAt:      &startAt,
	})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	assert.Empty(t, disp.Calls(), "must wait for startAt")

	clock.Advance(5 * time.Minute)
	require.Len(t, disp.Calls(), 1)
	assert.Equal(t, startAt, disp.Calls()[0].At)
}

func TestSmartModeStopRace(t *testing.T) {
	core, s, disp, clock := newTestCore(t, testStart)
	ctx := context.Background()

	_, err := core.SetSmartMode(ctx, "user-1", SmartModeParams{RunMinutes: 10, PauseMinutes: 10})
	require.NoError(t, err)

	// Deactivate in the store without disarming the timer; the fired
	// step must observe the stop on its re-read and do nothing.
	require.NoError(t, s.UpdateSmartMode(ctx, "user-1", map[string]any{"active": false}))
	clock.Advance(time.Minute)
	assert.Empty(t, disp.Calls())
}

func TestSmartModeBootResume(t *testing.T) {
	core, s, disp, clock := newTestCore(t, testStart)
	ctx := context.Background()

	// A program persisted mid-flight by a previous process: 10 minutes
	// of budget left, next segment already due.
	past := testStart.Add(-5 * time.Minute)
	require.NoError(t, s.UpsertSmartMode(ctx, &model.SmartModeConfig{
		UserID:           "user-1",
		RunMinutes:       20,
		PauseMinutes:     10,
		TotalMinutes:     intPtr(50),
		RemainingMinutes: intPtr(10),
		StartAt:          &past,
		Active:           true,
		Phase:            model.PhasePaused,
	}))

	require.NoError(t, core.BootRecovery(ctx))
	clock.Advance(0)

	calls := disp.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []time.Duration{10 * time.Minute}, runLengths(t, calls),
		"resume must use the persisted remaining budget, not restart it")

	got, err := s.GetSmartMode(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, got.Active, "budget exhausted on resume")
	assert.Equal(t, 0, *got.RemainingMinutes)
}
