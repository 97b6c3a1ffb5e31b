// Package janitor purges terminal scheduled actions past their retention
// window on a cron schedule. Pending and running records are never
// touched.
package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"aircon-schedule-backend/config"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/store"
)

// Janitor owns the cron runner for the retention sweep.
type Janitor struct {
	store     store.Store
	retention time.Duration
	spec      string
	cron      *cron.Cron
}

// New creates a janitor from config.
func New(cfg *config.JanitorConfig, s store.Store) *Janitor {
	return &Janitor{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		spec:      cfg.CronSpec,
		cron:      cron.New(),
	}
}

// Start registers the sweep and begins the cron loop.
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.spec, func() { j.Sweep(context.Background()) })
	if err != nil {
		return err
	}
	j.cron.Start()
	logger.Infof("janitor scheduled with spec %q, retention %s", j.spec, j.retention)
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes terminal actions older than the retention window.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	purged, err := j.store.PurgeTerminalActions(ctx, cutoff)
	if err != nil {
		logger.Errorf("janitor sweep: %v", err)
		return
	}
	if purged > 0 {
		logger.Infof("janitor purged %d terminal action(s) older than %s", purged, cutoff.Format(time.RFC3339))
	}
}
