package main

import (
	"context"
	"log/slog"
	"time"

	"glassd/internal/gesture"
)

// runDaemon is the single control loop. Every tick it:
//   - polls the touch classifier and drains at most one gesture
//   - reduces the resulting events plus a Tick into (state, commands)
//   - executes commands and feeds observations back into the reducer
//
// Actions from IPC/HTTP arrive on events and are reduced immediately.
// Reducer broadcasts are forwarded to broadcasts without blocking.
//
// Exits when ctx is canceled or events is closed.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	touch *gesture.Classifier,
	clock gesture.Clock,
	backends Backends,
	cfg ReducerConfig,
	state *DaemonState,
	initial []Command,
	pollInterval time.Duration,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollIntervalMS * time.Millisecond
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	statusTicker := time.NewTicker(statusLogInterval)
	defer statusTicker.Stop()

	lastTick := time.Now()

	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}
	publish := func(bs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bs {
			select {
			case broadcasts <- b:
			default:
				logger.Debug("broadcast channel full; dropping", "type", broadcastType(b))
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(ctx, backends, cmd, logger, enqueueEvent)
			flushEvents()
		}
	}

	// Bring backends to a known state before the first tick.
	cmdQueue = append(cmdQueue, initial...)
	flushCommands()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			if a, isAction := ev.(Action); isAction {
				ev = ActionEvent{Action: a, At: time.Now()}
			}
			enqueueEvent(ev)
			flushEvents()
			flushCommands()

		case now := <-ticker.C:
			if touch != nil {
				touch.Poll(clock.Now())
				if k := touch.TakeGesture(); k != gesture.None {
					logger.Info("gesture", "kind", k.String())
					enqueueEvent(GestureDecoded{Kind: k, At: now, Source: "touch"})
				}
			}
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			enqueueEvent(Tick{Now: now, Dt: dt})
			flushEvents()
			flushCommands()

		case <-statusTicker.C:
			logStatus(state, logger)
		}
	}
}

// logStatus writes the periodic one-line status report.
func logStatus(s *DaemonState, logger *slog.Logger) {
	attrs := []any{
		"display_on", s.Display.On,
		"muted", s.Audio.Muted,
		"power_mode", s.Power.Mode,
		"gestures", s.Gestures.Counts[gesture.SingleTap] + s.Gestures.Counts[gesture.DoubleTap] + s.Gestures.Counts[gesture.LongPress],
	}
	if s.Power.BatteryKnown {
		attrs = append(attrs, "battery_pct", s.Power.BatteryPct)
	}
	if s.LastError != "" {
		attrs = append(attrs, "last_error", s.LastError)
	}
	logger.Info("status", attrs...)
}

// initialCommands syncs every backend at startup. The battery is read on the
// first tick.
func initialCommands(mode PowerMode) []Command {
	return []Command{
		CmdSetDisplay{On: true},
		CmdShowText{Text: readyText},
		CmdGetMute{},
		CmdApplyPowerMode{Mode: mode},
	}
}
