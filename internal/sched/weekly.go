package sched

import (
	"context"
	"sync"
	"time"

	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/store"
)

// WeeklyWatcher reconciles every user's 168-slot weekly plan against the
// unit power state. It polls on a short interval but performs work once
// per hour bucket, and calls the dispatcher only when the desired state
// diverges from the last state it successfully applied.
//
// The lastApplied cache is in-memory only. After a restart the watcher
// issues at most one corrective call per user on its first tick, an
// accepted bounded inconsistency.
type WeeklyWatcher struct {
	store      store.Store
	dispatcher dispatch.Dispatcher
	clock      Clock
	interval   time.Duration
	loc        *time.Location

	mu           sync.Mutex
	applied      map[string]bool
	lastBucket   time.Time
	retryPending bool
}

// NewWeeklyWatcher creates a watcher polling at the given interval,
// resolving plan slots in the given location.
func NewWeeklyWatcher(s store.Store, d dispatch.Dispatcher, clock Clock, interval time.Duration, loc *time.Location) *WeeklyWatcher {
	if loc == nil {
		loc = time.Local
	}
	return &WeeklyWatcher{
		store:      s,
		dispatcher: d,
		clock:      clock,
		interval:   interval,
		applied:    make(map[string]bool),
		loc:        loc,
	}
}

// Run polls until the context is canceled.
func (w *WeeklyWatcher) Run(ctx context.Context) {
	logger.Infof("weekly watcher running, interval %s", w.interval)
	w.Tick(ctx)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("weekly watcher shutting down")
			return
		case <-timer.C:
			w.Tick(ctx)
			timer.Reset(w.interval)
		}
	}
}

// Invalidate drops the cached applied state for a user so an updated plan
// is re-evaluated on the next tick instead of at the next hour boundary.
func (w *WeeklyWatcher) Invalidate(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.applied, userID)
	w.lastBucket = time.Time{}
}

// Tick performs one reconciliation pass. Per-user dispatch errors are
// logged and retried on a later tick; they never end the loop.
func (w *WeeklyWatcher) Tick(ctx context.Context) {
	now := w.clock.Now().In(w.loc)
	bucket := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, w.loc)

	w.mu.Lock()
	skip := bucket.Equal(w.lastBucket) && !w.retryPending
	w.mu.Unlock()
	if skip {
		return
	}

	plans, err := w.store.ListWeeklySchedules(ctx)
	if err != nil {
		logger.Errorf("weekly watcher: list plans: %v", err)
		return
	}

	failed := false
	for i := range plans {
		plan := &plans[i]
		desired := plan.DesiredOn(now)

		w.mu.Lock()
		last, known := w.applied[plan.UserID]
		w.mu.Unlock()
		if known && last == desired {
			continue
		}

		err := w.dispatcher.SetPower(ctx, plan.UserID, desired, nil)
		switch {
		case err == nil:
		case dispatch.IsConflict(err):
			// The unit is already where the plan wants it.
			logger.Debugf("weekly watcher: user %s already reconciled: %v", plan.UserID, err)
		default:
			// Leave the cache untouched so a later tick retries.
			logger.Warnf("weekly watcher: user %s: apply desiredOn=%t: %v", plan.UserID, desired, err)
			failed = true
			continue
		}

		w.mu.Lock()
		w.applied[plan.UserID] = desired
		w.mu.Unlock()
	}

	w.mu.Lock()
	w.lastBucket = bucket
	w.retryPending = failed
	w.mu.Unlock()
}
