package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/model"
	"aircon-schedule-backend/internal/store"
)

// ErrNotPending is returned when canceling an action that already left
// the pending state.
var ErrNotPending = errors.New("action is not pending")

// Core bundles the three scheduling components behind the operations the
// API layer consumes. BootRecovery must run exactly once at process
// start, before new work is accepted.
type Core struct {
	store      store.Store
	dispatcher dispatch.Dispatcher
	clock      Clock

	Actions   *ActionScheduler
	SmartMode *SmartModeManager
	Weekly    *WeeklyWatcher
}

// NewCore wires the scheduling components around one store and
// dispatcher.
func NewCore(s store.Store, d dispatch.Dispatcher, clock Clock, watchInterval time.Duration, loc *time.Location) *Core {
	return &Core{
		store:      s,
		dispatcher: d,
		clock:      clock,
		Actions:    NewActionScheduler(s, d, clock),
		SmartMode:  NewSmartModeManager(s, d, clock),
		Weekly:     NewWeeklyWatcher(s, d, clock, watchInterval, loc),
	}
}

// BootRecovery reconstructs all outstanding timers from the store:
// pending one-off actions and active smart-mode programs.
func (c *Core) BootRecovery(ctx context.Context) error {
	if err := c.Actions.Start(ctx); err != nil {
		return err
	}
	return c.SmartMode.Start(ctx)
}

// CreateAndSchedule persists a new pending action and arms its timer.
func (c *Core) CreateAndSchedule(ctx context.Context, userID string, typ model.ActionType, payload model.Payload, scheduledAt time.Time) (*model.ScheduledAction, error) {
	if !model.ValidActionType(typ) {
		return nil, fmt.Errorf("invalid action type %q", typ)
	}
	action := &model.ScheduledAction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        typ,
		Payload:     payload,
		ScheduledAt: scheduledAt.UTC(),
		Status:      model.StatusPending,
	}
	if err := c.store.CreateAction(ctx, action); err != nil {
		return nil, err
	}
	c.Actions.Schedule(action)
	return action, nil
}

// CancelAction disarms and cancels a pending action owned by the user.
// Returns store.ErrNotFound for unknown or foreign ids and ErrNotPending
// when the action already left the pending state.
func (c *Core) CancelAction(ctx context.Context, userID, id string) error {
	action, err := c.store.GetAction(ctx, id)
	if err != nil {
		return err
	}
	if action.UserID != userID {
		return store.ErrNotFound
	}
	if action.Status != model.StatusPending {
		return ErrNotPending
	}

	c.Actions.Cancel(id)
	// The record is marked canceled under the same pending guard the
	// firing path claims with, so exactly one side wins the race.
	ok, err := c.store.TransitionActionStatus(ctx, id, model.StatusPending, model.StatusCanceled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPending
	}
	return nil
}

// ListActions returns the user's actions, oldest schedule first.
func (c *Core) ListActions(ctx context.Context, userID string) ([]model.ScheduledAction, error) {
	return c.store.ListActionsByUser(ctx, userID)
}

// SetSmartMode starts a duty-cycle program for the user.
func (c *Core) SetSmartMode(ctx context.Context, userID string, p SmartModeParams) (*model.SmartModeConfig, error) {
	return c.SmartMode.SetConfig(ctx, userID, p)
}

// GetSmartMode returns the user's program, or store.ErrNotFound.
func (c *Core) GetSmartMode(ctx context.Context, userID string) (*model.SmartModeConfig, error) {
	return c.store.GetSmartMode(ctx, userID)
}

// StopSmartMode stops the user's program and makes a best-effort attempt
// to switch the unit off, reporting whether the power-off went through.
func (c *Core) StopSmartMode(ctx context.Context, userID string) (turnedOff bool, err error) {
	if err := c.SmartMode.Stop(ctx, userID); err != nil {
		return false, err
	}
	if err := c.dispatcher.SetPower(ctx, userID, false, nil); err != nil {
		if dispatch.IsConflict(err) {
			return true, nil
		}
		logger.Debugf("stop smart mode %s: power off skipped: %v", userID, err)
		return false, nil
	}
	return true, nil
}

// UpsertWeeklyPlan replaces the user's weekly plan wholesale and drops
// the watcher's cached state so the new plan applies on the next tick.
func (c *Core) UpsertWeeklyPlan(ctx context.Context, userID string, mode model.WeeklyMode, slots model.SlotVector) (*model.WeeklySchedule, error) {
	if !model.ValidWeeklyMode(mode) {
		return nil, fmt.Errorf("invalid weekly mode %q", mode)
	}
	if err := slots.Validate(); err != nil {
		return nil, err
	}
	plan := &model.WeeklySchedule{UserID: userID, Mode: mode, Slots: slots}
	if err := c.store.UpsertWeeklySchedule(ctx, plan); err != nil {
		return nil, err
	}
	c.Weekly.Invalidate(userID)
	return plan, nil
}

// GetWeeklyPlan returns the user's plan, or store.ErrNotFound.
func (c *Core) GetWeeklyPlan(ctx context.Context, userID string) (*model.WeeklySchedule, error) {
	return c.store.GetWeeklySchedule(ctx, userID)
}
