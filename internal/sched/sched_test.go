package sched

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/model"
	"aircon-schedule-backend/internal/store"
)

// newTestStore opens an isolated on-disk SQLite database for one test.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sched_test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.ScheduledAction{},
		&model.SmartModeConfig{},
		&model.WeeklySchedule{},
		&model.Credential{},
	))
	return store.NewGormStore(db)
}

// fakeTimer and fakeClock let tests drive the schedulers step by step
// without real sleeps. Advance runs due callbacks synchronously, in
// deadline order, including timers armed by the callbacks themselves.
type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	fn       func()
	done     bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		next.done = true
		fn := next.fn
		c.mu.Unlock()
		fn()
	}
}

// powerCall records one dispatcher invocation.
type powerCall struct {
	UserID  string
	On      bool
	TimerAt *time.Time
	At      time.Time
}

// fakeDispatcher records SetPower calls and fails with Err when set.
type fakeDispatcher struct {
	mu    sync.Mutex
	clock *fakeClock
	Err   error
	calls []powerCall
}

func (f *fakeDispatcher) SetPower(_ context.Context, userID string, on bool, timerAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var at time.Time
	if f.clock != nil {
		at = f.clock.Now()
	}
	f.calls = append(f.calls, powerCall{UserID: userID, On: on, TimerAt: timerAt, At: at})
	return f.Err
}

func (f *fakeDispatcher) GetPower(context.Context, string) (dispatch.PowerState, error) {
	return dispatch.PowerUnknown, nil
}

func (f *fakeDispatcher) Calls() []powerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]powerCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeDispatcher) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}
