package model

import "time"

// SmartModePhase is the current position of a duty-cycle program.
type SmartModePhase string

const (
	PhaseIdle    SmartModePhase = "idle"
	PhaseRunning SmartModePhase = "running"
	PhasePaused  SmartModePhase = "paused"
)

// SmartModeConfig is the one duty-cycle program a user may have. The
// userId primary key enforces at most one live program per user; Active
// marks whether it is currently driving the unit.
//
// RemainingMinutes counts down only when TotalMinutes is set. Persisting
// it together with the next start instant makes the cycle resumable
// across restarts without losing or double-counting run time.
type SmartModeConfig struct {
	UserID           string         `gorm:"primaryKey;size:64" json:"userId"`
	RunMinutes       int            `gorm:"not null" json:"runMinutes"`
	PauseMinutes     int            `gorm:"not null" json:"pauseMinutes"`
	TotalMinutes     *int           `json:"totalMinutes,omitempty"`
	StartAt          *time.Time     `json:"startAt,omitempty"`
	Active           bool           `gorm:"not null;index" json:"active"`
	RemainingMinutes *int           `json:"remainingMinutes,omitempty"`
	Phase            SmartModePhase `gorm:"size:16;not null" json:"phase"`
	NextAt           *time.Time     `json:"nextAt,omitempty"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	EndsAt           *time.Time     `json:"endsAt,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updatedAt"`
}
