package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/model"
	"aircon-schedule-backend/internal/store"
)

// ErrAlreadyActive is returned by SetConfig while a user's previous
// program is still active.
var ErrAlreadyActive = errors.New("smart mode already active for user")

// SmartModeParams are the caller-supplied knobs of a duty-cycle program.
type SmartModeParams struct {
	RunMinutes   int
	PauseMinutes int
	TotalMinutes *int
	StartAt      *time.Time
}

func (p SmartModeParams) validate() error {
	if p.RunMinutes <= 0 {
		return errors.New("runMinutes must be > 0")
	}
	if p.PauseMinutes < 0 {
		return errors.New("pauseMinutes must be >= 0")
	}
	if p.TotalMinutes != nil && *p.TotalMinutes <= 0 {
		return errors.New("totalMinutes must be > 0 if provided")
	}
	return nil
}

// SmartModeManager drives the per-user run/pause duty cycle. Progress is
// persisted at every transition so an interrupted program resumes after a
// restart with its remaining budget intact instead of starting over.
type SmartModeManager struct {
	store      store.Store
	dispatcher dispatch.Dispatcher
	clock      Clock

	mu     sync.Mutex
	timers map[string]Timer // userID -> pending transition timer
}

// NewSmartModeManager creates a manager with no armed transitions.
func NewSmartModeManager(s store.Store, d dispatch.Dispatcher, clock Clock) *SmartModeManager {
	return &SmartModeManager{
		store:      s,
		dispatcher: d,
		clock:      clock,
		timers:     make(map[string]Timer),
	}
}

// Start resumes every program that was active when the process last
// stopped, using the persisted remainingMinutes and start instant.
func (m *SmartModeManager) Start(ctx context.Context) error {
	active, err := m.store.ListActiveSmartModes(ctx)
	if err != nil {
		return fmt.Errorf("smart mode start: %w", err)
	}
	for i := range active {
		m.planNext(ctx, active[i].UserID)
	}
	logger.Infof("smart mode manager resumed %d active program(s)", len(active))
	return nil
}

// SetConfig creates a new duty-cycle program for the user. It refuses to
// overlap a still-active program; callers stop the current one first.
func (m *SmartModeManager) SetConfig(ctx context.Context, userID string, p SmartModeParams) (*model.SmartModeConfig, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	existing, err := m.store.GetSmartMode(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Active {
		return nil, ErrAlreadyActive
	}

	cfg := &model.SmartModeConfig{
		UserID:       userID,
		RunMinutes:   p.RunMinutes,
		PauseMinutes: p.PauseMinutes,
		TotalMinutes: p.TotalMinutes,
		StartAt:      p.StartAt,
		Active:       true,
		Phase:        model.PhaseIdle,
	}
	if p.TotalMinutes != nil {
		remaining := *p.TotalMinutes
		cfg.RemainingMinutes = &remaining
	}
	if err := m.store.UpsertSmartMode(ctx, cfg); err != nil {
		return nil, err
	}

	m.planNext(ctx, userID)
	return cfg, nil
}

// Stop disarms the pending transition and deactivates the program. A
// transition that already began executing will notice on its re-read of
// the config and abort before dispatching.
func (m *SmartModeManager) Stop(ctx context.Context, userID string) error {
	m.mu.Lock()
	if t, ok := m.timers[userID]; ok {
		t.Stop()
		delete(m.timers, userID)
	}
	m.mu.Unlock()

	err := m.store.UpdateSmartMode(ctx, userID, map[string]any{
		"active":  false,
		"phase":   model.PhaseIdle,
		"next_at": nil,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// planNext arms the timer for the next transition: the configured start
// instant for a fresh program, or immediately when that is in the past.
func (m *SmartModeManager) planNext(ctx context.Context, userID string) {
	cfg, err := m.store.GetSmartMode(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Errorf("smart mode %s: load for planning: %v", userID, err)
		}
		return
	}
	if !cfg.Active {
		return
	}

	now := m.clock.Now()
	next := now
	if cfg.StartAt != nil && cfg.StartAt.After(now) {
		next = *cfg.StartAt
	}

	m.mu.Lock()
	if prev, ok := m.timers[userID]; ok {
		prev.Stop()
	}
	m.timers[userID] = m.clock.AfterFunc(next.Sub(now), func() { m.step(userID) })
	m.mu.Unlock()

	if err := m.store.UpdateSmartMode(ctx, userID, map[string]any{"next_at": next.UTC()}); err != nil {
		logger.Errorf("smart mode %s: persist nextAt: %v", userID, err)
	}
}

// step performs one duty-cycle transition: start a run segment capped by
// the remaining budget, hand the auto-off to the vendor, then persist the
// pause and plan the next segment. A dispatch failure stops the program
// outright so a broken upstream is never retried in a loop.
func (m *SmartModeManager) step(userID string) {
	m.mu.Lock()
	delete(m.timers, userID)
	m.mu.Unlock()

	ctx := context.Background()
	cfg, err := m.store.GetSmartMode(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Errorf("smart mode %s: load for step: %v", userID, err)
		}
		return
	}
	if !cfg.Active {
		// Stopped between arming and firing.
		return
	}

	run := cfg.RunMinutes
	if run < 1 {
		run = 1
	}
	pause := cfg.PauseMinutes
	if pause < 0 {
		pause = 0
	}

	thisRun := run
	if cfg.RemainingMinutes != nil {
		remaining := *cfg.RemainingMinutes
		if remaining < 0 {
			remaining = 0
		}
		if remaining < thisRun {
			thisRun = remaining
		}
	}
	if thisRun <= 0 {
		if err := m.Stop(ctx, userID); err != nil {
			logger.Errorf("smart mode %s: stop on exhausted budget: %v", userID, err)
		}
		return
	}

	now := m.clock.Now()
	ends := now.Add(time.Duration(thisRun) * time.Minute)
	if err := m.store.UpdateSmartMode(ctx, userID, map[string]any{
		"phase":      model.PhaseRunning,
		"started_at": now.UTC(),
		"ends_at":    ends.UTC(),
	}); err != nil {
		logger.Errorf("smart mode %s: persist running phase: %v", userID, err)
		return
	}

	if err := m.dispatcher.SetPower(ctx, userID, true, &ends); err != nil {
		logger.Warnf("smart mode %s: dispatch failed, stopping program: %v", userID, err)
		if stopErr := m.Stop(ctx, userID); stopErr != nil {
			logger.Errorf("smart mode %s: stop after dispatch failure: %v", userID, stopErr)
		}
		return
	}

	nextStart := ends.Add(time.Duration(pause) * time.Minute)
	phase := model.PhaseIdle
	if pause > 0 {
		phase = model.PhasePaused
	}
	fields := map[string]any{
		"phase":    phase,
		"next_at":  nextStart.UTC(),
		"start_at": nextStart.UTC(),
	}
	var nextRemaining *int
	if cfg.RemainingMinutes != nil {
		nr := *cfg.RemainingMinutes - thisRun
		if nr < 0 {
			nr = 0
		}
		nextRemaining = &nr
		fields["remaining_minutes"] = nr
	}
	if err := m.store.UpdateSmartMode(ctx, userID, fields); err != nil {
		logger.Errorf("smart mode %s: persist cycle progress: %v", userID, err)
		return
	}

	if nextRemaining != nil && *nextRemaining <= 0 {
		if err := m.Stop(ctx, userID); err != nil {
			logger.Errorf("smart mode %s: stop on finished budget: %v", userID, err)
		}
		return
	}
	m.planNext(ctx, userID)
}
