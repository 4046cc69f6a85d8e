package main

import (
	"context"
	"log/slog"
	"time"
)

// PowerControl applies power modes and samples the battery.
type PowerControl interface {
	Apply(mode PowerMode) error
	ReadBattery() ([]int, error)
}

// GestureJournal persists dispatched gestures.
type GestureJournal interface {
	Record(ctx context.Context, rec GestureRecord) (int64, error)
}

// Backends are the external systems Commands run against. A nil field means
// the backend is absent; commands for it fail with errNoBackend, except the
// journal, which is optional.
type Backends struct {
	Display Display
	Audio   Audio
	Power   PowerControl
	Journal GestureJournal
}

// runEffect executes one reducer-emitted Command and reports the outcome as
// an observation Event via onEvent. It never calls Reduce.
func runEffect(
	ctx context.Context,
	b Backends,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	now := time.Now()
	fail := func(err error) {
		onEvent(CommandFailed{Command: cmd, Err: err, At: now})
	}

	switch c := cmd.(type) {
	case CmdSetDisplay:
		if b.Display == nil {
			fail(errNoBackend{name: "display"})
			return
		}
		if err := b.Display.SetPower(c.On); err != nil {
			logger.Error("display power failed", "error", err, "on", c.On)
			fail(err)
			return
		}
		onEvent(DisplayObserved{On: c.On, At: now})

	case CmdShowText:
		if b.Display == nil {
			fail(errNoBackend{name: "display"})
			return
		}
		if err := b.Display.ShowText(c.Text); err != nil {
			logger.Error("display text failed", "error", err)
			fail(err)
			return
		}
		onEvent(DisplayTextObserved{Text: c.Text, At: now})

	case CmdToggleMute:
		if b.Audio == nil {
			fail(errNoBackend{name: "audio"})
			return
		}
		muted, err := b.Audio.ToggleMute()
		if err != nil {
			logger.Error("toggle mute failed", "error", err)
			fail(err)
			return
		}
		onEvent(MuteObserved{Muted: muted, At: now})

	case CmdSetMute:
		if b.Audio == nil {
			fail(errNoBackend{name: "audio"})
			return
		}
		if err := b.Audio.SetMute(c.Muted); err != nil {
			logger.Error("set mute failed", "error", err, "muted", c.Muted)
			fail(err)
			return
		}
		onEvent(MuteObserved{Muted: c.Muted, At: now})

	case CmdGetMute:
		if b.Audio == nil {
			fail(errNoBackend{name: "audio"})
			return
		}
		muted, err := b.Audio.GetMute()
		if err != nil {
			logger.Error("get mute failed", "error", err)
			fail(err)
			return
		}
		onEvent(MuteObserved{Muted: muted, At: now})

	case CmdApplyPowerMode:
		if b.Power == nil {
			fail(errNoBackend{name: "power"})
			return
		}
		if err := b.Power.Apply(c.Mode); err != nil {
			// Without cpufreq the mode is still tracked; the caps are advisory.
			logger.Warn("power mode applied without frequency caps", "mode", c.Mode, "error", err)
		}
		onEvent(PowerModeObserved{Mode: c.Mode, At: now})

	case CmdReadBattery:
		if b.Power == nil {
			fail(errNoBackend{name: "power"})
			return
		}
		levels, err := b.Power.ReadBattery()
		if err != nil {
			logger.Warn("battery read failed", "error", err)
			fail(err)
			return
		}
		onEvent(BatteryObserved{Levels: levels, At: now})

	case CmdRecordGesture:
		if b.Journal == nil {
			return
		}
		rec := GestureRecord{Kind: c.Kind, At: c.At, Source: c.Source}
		if _, err := b.Journal.Record(ctx, rec); err != nil {
			logger.Error("journal write failed", "error", err, "gesture", c.Kind)
			fail(err)
		}

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		fail(errUnknownCommand{cmd: cmd})
	}
}

// errNoBackend reports a command for a backend that is not configured.
type errNoBackend struct{ name string }

func (e errNoBackend) Error() string { return "no " + e.name + " backend" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
