package sched

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/model"
	"aircon-schedule-backend/internal/store"
)

// ActionScheduler arms one-shot timers for pending scheduled actions and
// drives each to a terminal status when its timer fires. At most one
// timer exists per action id; re-scheduling an id disarms the previous
// timer first.
type ActionScheduler struct {
	store      store.Store
	dispatcher dispatch.Dispatcher
	clock      Clock

	mu     sync.Mutex
	timers map[string]Timer
}

// NewActionScheduler creates a scheduler with no armed timers.
func NewActionScheduler(s store.Store, d dispatch.Dispatcher, clock Clock) *ActionScheduler {
	return &ActionScheduler{
		store:      s,
		dispatcher: d,
		clock:      clock,
		timers:     make(map[string]Timer),
	}
}

// Start re-arms every pending action from the store. This is the crash
// recovery path: actions whose scheduledAt already passed fire
// immediately, with the delay clamped to zero.
func (a *ActionScheduler) Start(ctx context.Context) error {
	pending, err := a.store.ListPendingActions(ctx)
	if err != nil {
		return fmt.Errorf("action scheduler start: %w", err)
	}
	for i := range pending {
		a.Schedule(&pending[i])
	}
	logger.Infof("action scheduler armed %d pending action(s)", len(pending))
	return nil
}

// Schedule arms (or re-arms) the timer for a pending action. Terminal and
// canceled actions are never armed.
func (a *ActionScheduler) Schedule(action *model.ScheduledAction) {
	if action.Status != model.StatusPending {
		return
	}
	id := action.ID
	delay := action.ScheduledAt.Sub(a.clock.Now())
	if delay < 0 {
		delay = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.timers[id]; ok {
		prev.Stop()
	}
	a.timers[id] = a.clock.AfterFunc(delay, func() { a.fire(id) })
}

// Cancel disarms the timer for an action id, if one is armed. It does not
// touch the persisted record; callers mark the record canceled so that a
// timer that already began executing observes the cancellation when it
// re-checks the store.
func (a *ActionScheduler) Cancel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[id]; ok {
		t.Stop()
		delete(a.timers, id)
	}
}

func (a *ActionScheduler) forget(id string) {
	a.mu.Lock()
	delete(a.timers, id)
	a.mu.Unlock()
}

// fire executes one action: claim it, re-read it, dispatch, record the
// outcome. The timer handle is discarded no matter how execution ends.
func (a *ActionScheduler) fire(id string) {
	defer a.forget(id)
	ctx := context.Background()

	claimed, err := a.store.TransitionActionStatus(ctx, id, model.StatusPending, model.StatusRunning)
	if err != nil {
		logger.Errorf("action %s: claim failed: %v", id, err)
		return
	}
	if !claimed {
		// Canceled (or otherwise moved on) between arming and firing.
		logger.Debugf("action %s no longer pending, skipping", id)
		return
	}

	action, err := a.store.GetAction(ctx, id)
	if err != nil {
		logger.Errorf("action %s: reload failed: %v", id, err)
		return
	}

	execErr := a.execute(ctx, action)
	now := a.clock.Now().UTC()
	if execErr != nil {
		logger.Warnf("action %s (%s) failed: %v", id, action.Type, execErr)
		if err := a.store.FinishAction(ctx, id, model.StatusFailed, now, execErr.Error()); err != nil {
			logger.Errorf("action %s: record failure: %v", id, err)
		}
		return
	}
	if err := a.store.FinishAction(ctx, id, model.StatusCompleted, now, ""); err != nil {
		logger.Errorf("action %s: record completion: %v", id, err)
	}
}

// execute maps the action type onto a single dispatcher call. Failures
// are terminal for the action; there is no automatic retry.
func (a *ActionScheduler) execute(ctx context.Context, action *model.ScheduledAction) error {
	switch action.Type {
	case model.ActionPowerOn:
		return a.dispatcher.SetPower(ctx, action.UserID, true, nil)
	case model.ActionPowerOff:
		return a.dispatcher.SetPower(ctx, action.UserID, false, nil)
	case model.ActionSetTimer:
		// Turn on with an upstream auto-off computed from the payload.
		// Without a usable future instant the unit simply stays on.
		timerAt := timerFromPayload(action.Payload, a.clock.Now())
		return a.dispatcher.SetPower(ctx, action.UserID, true, timerAt)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

// timerFromPayload resolves an auto-off instant from a set_timer payload:
// an "endDate" timestamp wins when it is in the future, otherwise a
// positive "minutes" count is added to now.
func timerFromPayload(p model.Payload, now time.Time) *time.Time {
	if p == nil {
		return nil
	}
	if v, ok := p["endDate"].(string); ok {
		if at, err := time.Parse(time.RFC3339, v); err == nil && at.After(now) {
			return &at
		}
	}
	if minutes := payloadInt(p["minutes"]); minutes > 0 {
		at := now.Add(time.Duration(minutes) * time.Minute)
		return &at
	}
	return nil
}

func payloadInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}
