package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionType enumerates the power intents a scheduled action can carry.
type ActionType string

const (
	ActionPowerOn  ActionType = "power_on"
	ActionPowerOff ActionType = "power_off"
	ActionSetTimer ActionType = "set_timer"
)

// ValidActionType reports whether t is one of the known action types.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionPowerOn, ActionPowerOff, ActionSetTimer:
		return true
	}
	return false
}

// ActionStatus is the lifecycle state of a scheduled action.
type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusRunning   ActionStatus = "running"
	StatusCompleted ActionStatus = "completed"
	StatusFailed    ActionStatus = "failed"
	StatusCanceled  ActionStatus = "canceled"
)

// Terminal reports whether s is a final state that can never be re-armed.
func (s ActionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Payload is an opaque JSON object attached to an action. It may carry a
// group id and, for set_timer actions, a "minutes" or "endDate" field.
type Payload map[string]any

// Value implements driver.Valuer, storing the payload as a JSON blob.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(src any) error {
	if src == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("payload: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(raw, p)
}

// ScheduledAction is a single future power intent owned by the action
// scheduler from creation until it reaches a terminal status.
type ScheduledAction struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"index;size:64;not null" json:"userId"`
	Type        ActionType `gorm:"size:16;not null" json:"type"`
	Payload     Payload    `gorm:"type:text" json:"payload,omitempty"`
	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduledAt"`
	Status      ActionStatus `gorm:"size:16;not null;index" json:"status"`
	LastError   string     `json:"lastError,omitempty"`
	ExecutedAt  *time.Time `json:"executedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}
