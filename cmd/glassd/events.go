package main

import (
	"time"

	"glassd/internal/gesture"
)

// ==============================
// Events
// ==============================

// Event is the input to the reducer: a tick, a decoded gesture, a user action,
// or an observation/failure reported by the effects layer.
type Event interface {
	eventMarker()
}

// Tick is emitted by the daemon loop at the touch poll cadence.
// Dt is wall-clock delta in seconds between ticks.
type Tick struct {
	Now time.Time
	Dt  float64
}

func (Tick) eventMarker() {}

// GestureDecoded is produced by the polling step when the classifier has a
// gesture ready, or by an injected gesture action.
type GestureDecoded struct {
	Kind   gesture.Kind
	At     time.Time
	Source string // "touch" or "inject"
}

func (GestureDecoded) eventMarker() {}

// ActionEvent wraps an Action with the time the daemon received it.
type ActionEvent struct {
	Action Action
	At     time.Time
}

func (ActionEvent) eventMarker() {}

// DisplayObserved is emitted after the display accepted a power change.
type DisplayObserved struct {
	On bool
	At time.Time
}

func (DisplayObserved) eventMarker() {}

// DisplayTextObserved is emitted after text was drawn.
type DisplayTextObserved struct {
	Text string
	At   time.Time
}

func (DisplayTextObserved) eventMarker() {}

// MuteObserved is emitted after a successful GetMute/SetMute/ToggleMute.
type MuteObserved struct {
	Muted bool
	At    time.Time
}

func (MuteObserved) eventMarker() {}

// PowerModeObserved is emitted after a power mode was applied.
type PowerModeObserved struct {
	Mode PowerMode
	At   time.Time
}

func (PowerModeObserved) eventMarker() {}

// BatteryObserved carries per-cell charge estimates in percent.
// An empty Levels slice means no battery was found.
type BatteryObserved struct {
	Levels []int
	At     time.Time
}

func (BatteryObserved) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// RequestStateSnapshot asks the loop for a coherent copy of the state.
// The reply is delivered by the effects layer so the reducer stays pure.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}
