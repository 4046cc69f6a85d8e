package main

import (
	"time"

	"glassd/internal/gesture"
)

// StateBroadcast is a reducer-emitted, externally visible state change. The
// daemon hands these to the WS broadcaster; they never carry internal state.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastGesture announces a dispatched gesture.
type BroadcastGesture struct {
	Kind   gesture.Kind
	Source string
	At     time.Time
}

// BroadcastDisplayChanged announces a confirmed display power change.
type BroadcastDisplayChanged struct {
	On bool
	At time.Time
}

// BroadcastMuteChanged announces a confirmed mute change.
type BroadcastMuteChanged struct {
	Muted bool
	At    time.Time
}

// BroadcastPowerModeChanged announces an applied power mode.
type BroadcastPowerModeChanged struct {
	Mode PowerMode
	At   time.Time
}

// BroadcastBatteryChanged announces a new worst-cell battery estimate.
type BroadcastBatteryChanged struct {
	Percent int
	Levels  []int
	At      time.Time
}

func (BroadcastGesture) broadcastMarker()          {}
func (BroadcastDisplayChanged) broadcastMarker()   {}
func (BroadcastMuteChanged) broadcastMarker()      {}
func (BroadcastPowerModeChanged) broadcastMarker() {}
func (BroadcastBatteryChanged) broadcastMarker()   {}
