package main

import (
	"fmt"
	"time"

	"glassd/internal/gesture"
)

// ==============================
// Commands (side effects)
// ==============================

// Command is an external side effect requested by the reducer and executed by
// the effects layer.
type Command interface {
	commandMarker()
	String() string
}

// CmdSetDisplay powers the display on or off.
type CmdSetDisplay struct {
	On bool
}

func (CmdSetDisplay) commandMarker()   {}
func (c CmdSetDisplay) String() string { return fmt.Sprintf("CmdSetDisplay(on=%v)", c.On) }

// CmdShowText draws word-wrapped text.
type CmdShowText struct {
	Text string
}

func (CmdShowText) commandMarker()   {}
func (c CmdShowText) String() string { return fmt.Sprintf("CmdShowText(%q)", c.Text) }

// CmdToggleMute toggles the audio mute.
type CmdToggleMute struct{}

func (CmdToggleMute) commandMarker() {}
func (CmdToggleMute) String() string { return "CmdToggleMute()" }

// CmdSetMute sets the audio mute explicitly.
type CmdSetMute struct {
	Muted bool
}

func (CmdSetMute) commandMarker()   {}
func (c CmdSetMute) String() string { return fmt.Sprintf("CmdSetMute(muted=%v)", c.Muted) }

// CmdGetMute reads the current mute state from the audio backend.
type CmdGetMute struct{}

func (CmdGetMute) commandMarker() {}
func (CmdGetMute) String() string { return "CmdGetMute()" }

// CmdApplyPowerMode applies CPU frequency caps for a power mode.
type CmdApplyPowerMode struct {
	Mode PowerMode
}

func (CmdApplyPowerMode) commandMarker() {}
func (c CmdApplyPowerMode) String() string {
	return fmt.Sprintf("CmdApplyPowerMode(mode=%s)", c.Mode)
}

// CmdReadBattery samples the battery cells.
type CmdReadBattery struct{}

func (CmdReadBattery) commandMarker() {}
func (CmdReadBattery) String() string { return "CmdReadBattery()" }

// CmdRecordGesture appends a gesture to the journal.
type CmdRecordGesture struct {
	Kind   gesture.Kind
	At     time.Time
	Source string
}

func (CmdRecordGesture) commandMarker() {}
func (c CmdRecordGesture) String() string {
	return fmt.Sprintf("CmdRecordGesture(kind=%s, source=%s)", c.Kind, c.Source)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
