package main

import (
	"time"

	"glassd/internal/gesture"
)

// DaemonState is the top-level, daemon-owned state container. Only the daemon
// goroutine reads or writes it; other goroutines get a StateSnapshot.
type DaemonState struct {
	Display  DisplayState
	Audio    AudioState
	Power    PowerState
	Gestures GestureStats

	// LastError is the most recent command failure, for status reporting.
	LastError   string
	LastErrorAt time.Time

	Intent DaemonIntent
}

// DisplayState is what the display last confirmed.
type DisplayState struct {
	On        bool
	Known     bool
	Text      string
	ChangedAt time.Time

	// LastActivity drives the idle auto-off.
	LastActivity time.Time
}

// AudioState is the last observed mute state from the audio backend.
type AudioState struct {
	Muted     bool
	MuteKnown bool
	MuteAt    time.Time
}

// PowerState tracks the applied power mode and the battery estimate.
type PowerState struct {
	Mode      PowerMode
	ModeKnown bool
	ModeAt    time.Time

	BatteryPct    int // worst cell
	BatteryLevels []int
	BatteryKnown  bool
	BatteryAt     time.Time

	// NextCheckAt schedules the next battery read; zero means "on next tick".
	NextCheckAt time.Time

	// LowWarned is set once the low-battery warning was shown and cleared when
	// the level recovers, so the warning is not repeated every check.
	LowWarned bool
}

// GestureStats counts dispatched gestures.
type GestureStats struct {
	Last   gesture.Kind
	LastAt time.Time
	Counts [4]int // indexed by gesture.Kind
}

// DaemonIntent captures pending changes that are flushed into Commands on the
// next Tick (coalesced, latest-wins).
type DaemonIntent struct {
	DesiredDisplay *bool
	Text           *string

	// MuteTogglePending flips on every toggle request, so two toggles inside
	// one tick cancel out.
	MuteTogglePending bool
	DesiredMute       *bool

	DesiredPowerMode *PowerMode
}

// displayTarget is the display power the daemon is heading to.
func (s *DaemonState) displayTarget() bool {
	if s.Intent.DesiredDisplay != nil {
		return *s.Intent.DesiredDisplay
	}
	return s.Display.On
}

func (s *DaemonState) setDesiredDisplay(on bool) {
	s.Intent.DesiredDisplay = &on
}

func (s *DaemonState) setText(text string) {
	s.Intent.Text = &text
}

// requestToggleMute records a mute toggle. An explicit desired mute absorbs the
// toggle so the ordering of set and toggle is kept.
func (s *DaemonState) requestToggleMute() {
	if s.Intent.DesiredMute != nil {
		m := !*s.Intent.DesiredMute
		s.Intent.DesiredMute = &m
		return
	}
	s.Intent.MuteTogglePending = !s.Intent.MuteTogglePending
}

func (s *DaemonState) setDesiredMute(muted bool) {
	s.Intent.MuteTogglePending = false
	s.Intent.DesiredMute = &muted
}

// powerTarget is the power mode the daemon is heading to.
func (s *DaemonState) powerTarget() PowerMode {
	if s.Intent.DesiredPowerMode != nil {
		return *s.Intent.DesiredPowerMode
	}
	if s.Power.Mode == "" {
		return PowerNormal
	}
	return s.Power.Mode
}

func (s *DaemonState) setDesiredPowerMode(m PowerMode) {
	s.Intent.DesiredPowerMode = &m
}

// StateSnapshot is an immutable copy of DaemonState for other goroutines.
type StateSnapshot struct {
	DisplayOn    bool   `json:"display_on"`
	DisplayKnown bool   `json:"display_known"`
	DisplayText  string `json:"display_text"`

	Muted     bool      `json:"muted"`
	MuteKnown bool      `json:"mute_known"`
	MuteAt    time.Time `json:"mute_at"`

	PowerMode     PowerMode `json:"power_mode"`
	BatteryPct    int       `json:"battery_pct"`
	BatteryLevels []int     `json:"battery_levels,omitempty"`
	BatteryKnown  bool      `json:"battery_known"`
	BatteryAt     time.Time `json:"battery_at"`

	LastGesture   gesture.Kind   `json:"last_gesture"`
	LastGestureAt time.Time      `json:"last_gesture_at"`
	GestureCounts map[string]int `json:"gesture_counts"`

	LastError string `json:"last_error,omitempty"`
}

// Snapshot copies the state. Slices are cloned so the caller can hand the
// snapshot to another goroutine.
func (s *DaemonState) Snapshot() StateSnapshot {
	counts := make(map[string]int, 3)
	for _, k := range []gesture.Kind{gesture.SingleTap, gesture.DoubleTap, gesture.LongPress} {
		counts[k.String()] = s.Gestures.Counts[k]
	}
	var levels []int
	if len(s.Power.BatteryLevels) > 0 {
		levels = append([]int(nil), s.Power.BatteryLevels...)
	}
	return StateSnapshot{
		DisplayOn:     s.Display.On,
		DisplayKnown:  s.Display.Known,
		DisplayText:   s.Display.Text,
		Muted:         s.Audio.Muted,
		MuteKnown:     s.Audio.MuteKnown,
		MuteAt:        s.Audio.MuteAt,
		PowerMode:     s.Power.Mode,
		BatteryPct:    s.Power.BatteryPct,
		BatteryLevels: levels,
		BatteryKnown:  s.Power.BatteryKnown,
		BatteryAt:     s.Power.BatteryAt,
		LastGesture:   s.Gestures.Last,
		LastGestureAt: s.Gestures.LastAt,
		GestureCounts: counts,
		LastError:     s.LastError,
	}
}
