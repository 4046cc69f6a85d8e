package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"glassd/internal/gesture"
)

// mockDisplay records what the daemon asked the screen to do.
type mockDisplay struct {
	mu       sync.Mutex
	on       bool
	powerLog []bool
	texts    []string
}

func (m *mockDisplay) SetPower(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = on
	m.powerLog = append(m.powerLog, on)
	return nil
}

func (m *mockDisplay) ShowText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockDisplay) Close() error { return nil }

func (m *mockDisplay) state() (on bool, switches int, texts []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on, len(m.powerLog), append([]string(nil), m.texts...)
}

// mockAudio is a softMute that counts calls and can be told to fail.
type mockAudio struct {
	softMute
	toggles atomic.Int32
	fail    atomic.Bool
}

func (m *mockAudio) ToggleMute() (bool, error) {
	if m.fail.Load() {
		return false, errors.New("dsp offline")
	}
	m.toggles.Add(1)
	return m.softMute.ToggleMute()
}

// mockPower records applied modes and returns fixed battery levels.
type mockPower struct {
	mu      sync.Mutex
	applied []PowerMode
	levels  []int
	reads   int
}

func (m *mockPower) Apply(mode PowerMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, mode)
	return nil
}

func (m *mockPower) ReadBattery() ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return append([]int(nil), m.levels...), nil
}

func (m *mockPower) state() (applied []PowerMode, reads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PowerMode(nil), m.applied...), m.reads
}

type mockJournal struct {
	mu   sync.Mutex
	recs []GestureRecord
}

func (m *mockJournal) Record(_ context.Context, rec GestureRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return int64(len(m.recs)), nil
}

func (m *mockJournal) records() []GestureRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GestureRecord(nil), m.recs...)
}

// stepClock advances by step on every read, so each daemon poll sees a fixed
// amount of touch time pass regardless of scheduler jitter.
type stepClock struct {
	now  atomic.Uint32
	step uint32
}

func (c *stepClock) Now() gesture.Millis { return gesture.Millis(c.now.Add(c.step)) }

func (c *stepClock) current() gesture.Millis { return gesture.Millis(c.now.Load()) }

// scriptedPad reports contact while the clock is inside one of the windows.
type scriptedPad struct {
	clock   *stepClock
	windows [][2]gesture.Millis
}

func (p *scriptedPad) Sample() gesture.Sample {
	now := p.clock.current()
	for _, w := range p.windows {
		if now >= w[0] && now < w[1] {
			return 0
		}
	}
	return 100
}

type daemonHarness struct {
	events  chan Event
	display *mockDisplay
	audio   *mockAudio
	power   *mockPower
	journal *mockJournal
	bcasts  chan StateBroadcast
	cancel  context.CancelFunc
	done    chan struct{}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// startDaemon runs runDaemon with mock backends. windows scripts the touch pad
// in classifier milliseconds; every 5ms poll advances the clock by 10ms.
func startDaemon(t *testing.T, windows ...[2]gesture.Millis) *daemonHarness {
	t.Helper()

	clock := &stepClock{step: 10}
	touch, err := gesture.New(gesture.DefaultConfig(), &scriptedPad{clock: clock, windows: windows})
	if err != nil {
		t.Fatalf("gesture.New: %v", err)
	}

	h := &daemonHarness{
		events:  make(chan Event, 16),
		display: &mockDisplay{},
		audio:   &mockAudio{},
		power:   &mockPower{levels: []int{90}},
		journal: &mockJournal{},
		bcasts:  make(chan StateBroadcast, 256),
		done:    make(chan struct{}),
	}
	backends := Backends{Display: h.display, Audio: h.audio, Power: h.power, Journal: h.journal}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		runDaemon(ctx, h.events, touch, clock, backends, testReducerCfg, &DaemonState{},
			initialCommands(PowerNormal), 5*time.Millisecond, h.bcasts, testLogger())
	}()
	t.Cleanup(h.stop)
	return h
}

func (h *daemonHarness) stop() {
	h.cancel()
	<-h.done
}

func TestDaemon_InitialCommandsSyncBackends(t *testing.T) {
	h := startDaemon(t)

	waitUntil(t, time.Second, func() bool {
		on, _, texts := h.display.state()
		applied, reads := h.power.state()
		return on && len(texts) > 0 && len(applied) > 0 && reads > 0
	}, "backends not synced")

	_, _, texts := h.display.state()
	if texts[0] != readyText {
		t.Fatalf("first text = %q, want %q", texts[0], readyText)
	}
	applied, _ := h.power.state()
	if applied[0] != PowerNormal {
		t.Fatalf("first power mode = %s, want normal", applied[0])
	}
}

func TestDaemon_TouchSingleTapTogglesDisplay(t *testing.T) {
	// 80ms contact starting at 200ms: a tap, confirmed 300ms after release.
	h := startDaemon(t, [2]gesture.Millis{200, 280})

	waitUntil(t, 3*time.Second, func() bool {
		on, switches, _ := h.display.state()
		return !on && switches >= 2
	}, "display not toggled off by single tap")

	recs := h.journal.records()
	if len(recs) != 1 || recs[0].Kind != gesture.SingleTap || recs[0].Source != "touch" {
		t.Fatalf("journal = %+v, want one touch single_tap", recs)
	}
}

func TestDaemon_TouchDoubleTapTogglesMute(t *testing.T) {
	h := startDaemon(t, [2]gesture.Millis{200, 280}, [2]gesture.Millis{400, 460})

	waitUntil(t, 3*time.Second, func() bool {
		return h.audio.toggles.Load() == 1
	}, "mute not toggled by double tap")

	muted, _ := h.audio.GetMute()
	if !muted {
		t.Fatalf("expected muted after double tap")
	}
	on, _, _ := h.display.state()
	if !on {
		t.Fatalf("double tap must not touch the display")
	}
}

func TestDaemon_TouchLongPressCyclesPower(t *testing.T) {
	h := startDaemon(t, [2]gesture.Millis{200, 1000})

	waitUntil(t, 3*time.Second, func() bool {
		applied, _ := h.power.state()
		return len(applied) >= 2
	}, "power mode not cycled by long press")

	applied, _ := h.power.state()
	if applied[1] != PowerEco {
		t.Fatalf("applied modes = %v, want [normal eco]", applied)
	}
	recs := h.journal.records()
	if len(recs) != 1 || recs[0].Kind != gesture.LongPress {
		t.Fatalf("journal = %+v, want one long_press", recs)
	}
}

func TestDaemon_InjectedGestureAndSnapshot(t *testing.T) {
	h := startDaemon(t)

	h.events <- InjectGesture{Gesture: gesture.DoubleTap}
	waitUntil(t, time.Second, func() bool {
		return h.audio.toggles.Load() == 1
	}, "injected double tap not dispatched")

	recs := h.journal.records()
	if len(recs) != 1 || recs[0].Source != "inject" {
		t.Fatalf("journal = %+v, want one inject record", recs)
	}

	snap, err := requestSnapshot(context.Background(), h.events)
	if err != nil {
		t.Fatalf("requestSnapshot: %v", err)
	}
	if !snap.Muted || snap.GestureCounts["double_tap"] != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.PowerMode != PowerNormal || !snap.DisplayOn {
		t.Fatalf("snapshot power/display = %s/%v", snap.PowerMode, snap.DisplayOn)
	}
}

func TestDaemon_MuteFailureShowsErrorScreen(t *testing.T) {
	h := startDaemon(t)
	h.audio.fail.Store(true)

	h.events <- ToggleMute{}
	waitUntil(t, time.Second, func() bool {
		_, _, texts := h.display.state()
		return len(texts) > 0 && texts[len(texts)-1] == errorScreenTitle+"\nAudio unavailable"
	}, "error screen not shown")
}

func TestDaemon_BroadcastsGesture(t *testing.T) {
	h := startDaemon(t)

	h.events <- InjectGesture{Gesture: gesture.LongPress}
	deadline := time.After(time.Second)
	for {
		select {
		case b := <-h.bcasts:
			if g, ok := b.(BroadcastGesture); ok {
				if g.Kind != gesture.LongPress || g.Source != "inject" {
					t.Fatalf("gesture broadcast = %+v", g)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for gesture broadcast")
		}
	}
}

func TestDaemon_StopsWhenEventsClosed(t *testing.T) {
	events := make(chan Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(context.Background(), events, nil, &stepClock{step: 10}, Backends{}, testReducerCfg,
			&DaemonState{}, nil, 5*time.Millisecond, nil, testLogger())
	}()
	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop after events closed")
	}
}

func TestRunEffect_MissingBackendFails(t *testing.T) {
	var got []Event
	runEffect(context.Background(), Backends{}, CmdToggleMute{}, testLogger(), func(e Event) { got = append(got, e) })
	if len(got) != 1 {
		t.Fatalf("expected one event, got %v", got)
	}
	cf, ok := got[0].(CommandFailed)
	if !ok {
		t.Fatalf("expected CommandFailed, got %T", got[0])
	}
	var nb errNoBackend
	if !errors.As(cf.Err, &nb) || nb.name != "audio" {
		t.Fatalf("err = %v, want errNoBackend(audio)", cf.Err)
	}

	// A missing journal is silently skipped.
	got = nil
	runEffect(context.Background(), Backends{}, CmdRecordGesture{Kind: gesture.SingleTap}, testLogger(), func(e Event) { got = append(got, e) })
	if len(got) != 0 {
		t.Fatalf("expected no events for missing journal, got %v", got)
	}
}

func TestRunEffect_PowerApplyErrorStillObserved(t *testing.T) {
	p := &failingPower{}
	var got []Event
	runEffect(context.Background(), Backends{Power: p}, CmdApplyPowerMode{Mode: PowerEco}, testLogger(), func(e Event) { got = append(got, e) })
	if len(got) != 1 {
		t.Fatalf("expected one event, got %v", got)
	}
	if obs, ok := got[0].(PowerModeObserved); !ok || obs.Mode != PowerEco {
		t.Fatalf("expected PowerModeObserved(eco), got %#v", got[0])
	}
}

type failingPower struct{}

func (failingPower) Apply(PowerMode) error       { return errNoCPUFreq }
func (failingPower) ReadBattery() ([]int, error) { return nil, nil }
