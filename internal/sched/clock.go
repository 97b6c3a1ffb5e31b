// Package sched contains the scheduling core: one-off action timers, the
// smart-mode duty cycle, and the weekly plan reconciliation watcher. All
// components keep their timers in-memory only; the store is the
// authoritative state and Start reconstructs outstanding work at boot.
package sched

import "time"

// Timer is a one-shot handle that can be disarmed.
type Timer interface {
	// Stop disarms the timer; it reports false when the timer already
	// fired or was stopped.
	Stop() bool
}

// Clock abstracts wall-clock reads and timer arming so the scheduling
// components can be driven step by step in tests without real sleeps.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall-clock backed Clock used in production.
func SystemClock() Clock { return realClock{} }
