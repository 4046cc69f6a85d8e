package main

import (
	"fmt"
	"slices"
	"time"

	"glassd/internal/gesture"
)

// The reducer computes next state, Commands and Broadcasts from one Event. It
// performs no I/O; the daemon loop executes Commands and feeds observations
// back in as Events.

// ReducerConfig holds the policy knobs the reducer needs.
type ReducerConfig struct {
	DisplayTimeout       time.Duration // 0 disables auto-off
	BatteryCheckInterval time.Duration
	LowBatteryPct        int
	CriticalBatteryPct   int
}

// ReduceResult is the output of Reduce.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer. It must not perform I/O or block.
func Reduce(s *DaemonState, e Event, cfg ReducerConfig) ReduceResult {
	if s == nil {
		s = &DaemonState{}
	}

	var cmds []Command
	var bcasts []StateBroadcast

	switch ev := e.(type) {
	case Tick:
		cmds = append(cmds, reduceTick(s, ev, cfg)...)

	case GestureDecoded:
		cmds, bcasts = reduceGesture(s, ev)

	case ActionEvent:
		var c []Command
		c, bcasts = reduceAction(s, ev)
		cmds = append(cmds, c...)

	case DisplayObserved:
		changed := !s.Display.Known || s.Display.On != ev.On
		s.Display.On = ev.On
		s.Display.Known = true
		s.Display.ChangedAt = ev.At
		if ev.On {
			s.Display.LastActivity = ev.At
		}
		if changed {
			bcasts = append(bcasts, BroadcastDisplayChanged{On: ev.On, At: ev.At})
		}

	case DisplayTextObserved:
		s.Display.Text = ev.Text
		s.Display.LastActivity = ev.At

	case MuteObserved:
		changed := !s.Audio.MuteKnown || s.Audio.Muted != ev.Muted
		s.Audio.Muted = ev.Muted
		s.Audio.MuteKnown = true
		s.Audio.MuteAt = ev.At
		if changed {
			bcasts = append(bcasts, BroadcastMuteChanged{Muted: ev.Muted, At: ev.At})
		}

	case PowerModeObserved:
		changed := !s.Power.ModeKnown || s.Power.Mode != ev.Mode
		s.Power.Mode = ev.Mode
		s.Power.ModeKnown = true
		s.Power.ModeAt = ev.At
		if changed {
			bcasts = append(bcasts, BroadcastPowerModeChanged{Mode: ev.Mode, At: ev.At})
		}

	case BatteryObserved:
		bcasts = reduceBattery(s, ev, cfg)

	case CommandFailed:
		if ev.Err != nil {
			s.LastError = fmt.Sprintf("%s: %v", ev.Command, ev.Err)
		} else {
			s.LastError = ev.Command.String()
		}
		s.LastErrorAt = ev.At
		switch ev.Command.(type) {
		case CmdToggleMute, CmdSetMute:
			if s.displayTarget() {
				s.setText(errorScreenTitle + "\nAudio unavailable")
			}
		}

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: s.Snapshot(),
		})

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcasts,
	}
}

// reduceTick runs time-driven policy and flushes intents into Commands.
func reduceTick(s *DaemonState, ev Tick, cfg ReducerConfig) []Command {
	var cmds []Command

	// Display idle timeout.
	if cfg.DisplayTimeout > 0 && s.Display.On && s.Intent.DesiredDisplay == nil && s.Intent.Text == nil &&
		!s.Display.LastActivity.IsZero() && ev.Now.Sub(s.Display.LastActivity) > cfg.DisplayTimeout {
		s.setDesiredDisplay(false)
	}

	// Battery schedule.
	if cfg.BatteryCheckInterval > 0 && !ev.Now.Before(s.Power.NextCheckAt) {
		s.Power.NextCheckAt = ev.Now.Add(cfg.BatteryCheckInterval)
		cmds = append(cmds, CmdReadBattery{})
	}

	// Text wakes the display, so power goes first.
	if s.Intent.Text != nil && !s.displayTarget() {
		s.setDesiredDisplay(true)
	}
	if s.Intent.DesiredDisplay != nil {
		on := *s.Intent.DesiredDisplay
		s.Intent.DesiredDisplay = nil
		if !s.Display.Known || on != s.Display.On {
			cmds = append(cmds, CmdSetDisplay{On: on})
		}
	}
	if s.Intent.Text != nil {
		t := *s.Intent.Text
		s.Intent.Text = nil
		cmds = append(cmds, CmdShowText{Text: t})
	}

	if s.Intent.MuteTogglePending {
		s.Intent.MuteTogglePending = false
		cmds = append(cmds, CmdToggleMute{})
	}
	if s.Intent.DesiredMute != nil {
		m := *s.Intent.DesiredMute
		s.Intent.DesiredMute = nil
		cmds = append(cmds, CmdSetMute{Muted: m})
	}

	if s.Intent.DesiredPowerMode != nil {
		m := *s.Intent.DesiredPowerMode
		s.Intent.DesiredPowerMode = nil
		if !s.Power.ModeKnown || m != s.Power.Mode {
			cmds = append(cmds, CmdApplyPowerMode{Mode: m})
		}
	}

	return cmds
}

// reduceGesture records a gesture and dispatches it:
// single tap toggles the display, double tap toggles mute, long press cycles
// the power mode.
func reduceGesture(s *DaemonState, ev GestureDecoded) ([]Command, []StateBroadcast) {
	if ev.Kind == gesture.None || int(ev.Kind) >= len(s.Gestures.Counts) {
		return nil, nil
	}

	s.Gestures.Last = ev.Kind
	s.Gestures.LastAt = ev.At
	s.Gestures.Counts[ev.Kind]++
	s.Display.LastActivity = ev.At

	switch ev.Kind {
	case gesture.SingleTap:
		s.setDesiredDisplay(!s.displayTarget())
	case gesture.DoubleTap:
		s.requestToggleMute()
	case gesture.LongPress:
		s.setDesiredPowerMode(s.powerTarget().Next())
	}

	cmds := []Command{CmdRecordGesture{Kind: ev.Kind, At: ev.At, Source: ev.Source}}
	bcasts := []StateBroadcast{BroadcastGesture{Kind: ev.Kind, Source: ev.Source, At: ev.At}}
	return cmds, bcasts
}

func reduceAction(s *DaemonState, ev ActionEvent) ([]Command, []StateBroadcast) {
	switch a := ev.Action.(type) {
	case InjectGesture:
		return reduceGesture(s, GestureDecoded{Kind: a.Gesture, At: ev.At, Source: "inject"})

	case ToggleDisplay:
		s.Display.LastActivity = ev.At
		s.setDesiredDisplay(!s.displayTarget())

	case SetDisplay:
		s.Display.LastActivity = ev.At
		s.setDesiredDisplay(a.On)

	case ShowText:
		s.Display.LastActivity = ev.At
		s.setText(a.Text)

	case ToggleMute:
		s.requestToggleMute()

	case SetMute:
		s.setDesiredMute(a.Muted)

	case CyclePowerMode:
		s.setDesiredPowerMode(s.powerTarget().Next())

	case SetPowerMode:
		s.setDesiredPowerMode(a.Mode)
	}
	return nil, nil
}

// reduceBattery updates the estimate and applies the automatic downgrade.
// The daemon never upgrades the power mode on its own.
func reduceBattery(s *DaemonState, ev BatteryObserved, cfg ReducerConfig) []StateBroadcast {
	if len(ev.Levels) == 0 {
		return nil
	}
	pct := slices.Min(ev.Levels)

	changed := !s.Power.BatteryKnown || s.Power.BatteryPct != pct
	s.Power.BatteryPct = pct
	s.Power.BatteryLevels = append(s.Power.BatteryLevels[:0], ev.Levels...)
	s.Power.BatteryKnown = true
	s.Power.BatteryAt = ev.At

	target := s.powerTarget()
	switch {
	case pct < cfg.CriticalBatteryPct && target != PowerUltraLow:
		s.setDesiredPowerMode(PowerUltraLow)
	case pct < cfg.LowBatteryPct && target == PowerNormal:
		s.setDesiredPowerMode(PowerEco)
	}

	if pct < cfg.LowBatteryPct {
		if !s.Power.LowWarned {
			s.Power.LowWarned = true
			s.setText(lowBatteryText)
		}
	} else {
		s.Power.LowWarned = false
	}

	if !changed {
		return nil
	}
	return []StateBroadcast{BroadcastBatteryChanged{Percent: pct, Levels: slices.Clone(ev.Levels), At: ev.At}}
}
