// Package dispatch adapts power intents into calls against the vendor
// prepaid AC API and normalizes the vendor's response conventions into
// errors the scheduling core can act on.
package dispatch

import (
	"context"
	"errors"
	"time"
)

// PowerState is the unit power state as reported by the vendor.
type PowerState string

const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerUnknown PowerState = "unknown"
)

var (
	// ErrNoCredential means no vendor token is stored for the user.
	ErrNoCredential = errors.New("no vendor credential stored for user")
	// ErrCredential means the stored vendor token was rejected upstream
	// (expired or revoked session).
	ErrCredential = errors.New("vendor credential rejected")
	// ErrAlreadyInState is the vendor's "aircon already turned on/off"
	// conflict, distinguishable from a generic upstream failure.
	ErrAlreadyInState = errors.New("unit already in requested power state")
)

// Dispatcher is the narrow contract the scheduling core depends on. The
// core is write-only with respect to desired state; GetPower exists for
// the status-viewing API layer.
type Dispatcher interface {
	// SetPower turns the unit on or off. When turning on, a non-nil
	// timerAt attaches an upstream auto-off timer at that instant.
	SetPower(ctx context.Context, userID string, on bool, timerAt *time.Time) error
	// GetPower probes the current unit power state.
	GetPower(ctx context.Context, userID string) (PowerState, error)
}
