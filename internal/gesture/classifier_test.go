package gesture

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func touch(ms Millis) Segment   { return Segment{Contact: true, DurationMS: ms} }
func release(ms Millis) Segment { return Segment{Contact: false, DurationMS: ms} }

func raw(v Sample, ms Millis) Segment { return Segment{Value: &v, DurationMS: ms} }

func replayOrFail(t *testing.T, cfg Config, trace Trace, start Millis) []Detection {
	t.Helper()
	got, err := Replay(cfg, trace, 10, start)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return got
}

func expectDetections(t *testing.T, got []Detection, want ...Detection) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("detections = %v, want %v", got, want)
	}
}

// fakeSampler returns whatever the test last stored.
type fakeSampler struct {
	v Sample
}

func (f *fakeSampler) Sample() Sample { return f.v }

func newTestClassifier(t *testing.T) (*Classifier, *fakeSampler) {
	t.Helper()
	s := &fakeSampler{v: 100}
	c, err := New(DefaultConfig(), s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, s
}

// TestReplay_SingleTap tests that a lone short contact is confirmed once the
// pairing window closes, and that the zero lastTap of a fresh classifier
// never pairs with it.
func TestReplay_SingleTap(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(100), release(500)}, 0)
	expectDetections(t, got, Detection{Kind: SingleTap, At: 400})
}

// TestReplay_DoubleTap replays two short contacts 120ms apart.
func TestReplay_DoubleTap(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(80), release(120), touch(60), release(500)}, 0)
	expectDetections(t, got, Detection{Kind: DoubleTap, At: 260})
}

// TestReplay_DoubleTapSlowSecondContact tests that pairing depends on the gap
// before the second contact, not on when that contact is released.
func TestReplay_DoubleTapSlowSecondContact(t *testing.T) {
	cases := []struct {
		name  string
		trace Trace
		at    Millis
	}{
		{"gap 200 second 140", Trace{touch(80), release(200), touch(140), release(600)}, 420},
		{"gap 280 second 140", Trace{touch(80), release(280), touch(140), release(600)}, 500},
		{"gap 120 second 140", Trace{touch(80), release(120), touch(140), release(600)}, 340},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := replayOrFail(t, DefaultConfig(), tc.trace, 0)
			expectDetections(t, got, Detection{Kind: DoubleTap, At: tc.at})
		})
	}
}

// TestReplay_LongPress tests that a long press fires while contact is still
// held and that the release afterwards produces nothing.
func TestReplay_LongPress(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(600), release(400)}, 0)
	// First 10ms tick strictly past 500ms.
	expectDetections(t, got, Detection{Kind: LongPress, At: 510})
}

func TestReplay_StuckSensor(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(5000)}, 0)
	expectDetections(t, got, Detection{Kind: LongPress, At: 510})
}

// TestReplay_MediumHold tests that a contact between the tap and long-press
// durations is not a gesture.
func TestReplay_MediumHold(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(300), release(500)}, 0)
	expectDetections(t, got)
}

func TestReplay_TapsOutsideWindow(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(80), release(400), touch(60), release(500)}, 0)
	expectDetections(t, got,
		Detection{Kind: SingleTap, At: 380},
		Detection{Kind: SingleTap, At: 840},
	)
}

// TestReplay_ReleaseBounce tests that contact inside the settle window after a
// tap release is ignored.
func TestReplay_ReleaseBounce(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(80), release(20), touch(10), release(400)}, 0)
	expectDetections(t, got, Detection{Kind: SingleTap, At: 380})
}

// TestReplay_TapThenMediumHold tests that a too-long second contact cancels
// the pending tap without emitting anything.
func TestReplay_TapThenMediumHold(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(80), release(120), touch(200), release(500)}, 0)
	expectDetections(t, got)
}

func TestReplay_TapThenLongPress(t *testing.T) {
	got := replayOrFail(t, DefaultConfig(), Trace{touch(80), release(120), touch(700), release(100)}, 0)
	expectDetections(t, got, Detection{Kind: LongPress, At: 710})
}

// TestReplay_Wraparound runs the basic gestures with the clock about to wrap.
func TestReplay_Wraparound(t *testing.T) {
	start := Millis(math.MaxUint32 - 50)
	cfg := DefaultConfig()

	got := replayOrFail(t, cfg, Trace{touch(100), release(500)}, start)
	expectDetections(t, got, Detection{Kind: SingleTap, At: 400})

	got = replayOrFail(t, cfg, Trace{touch(80), release(120), touch(60), release(500)}, start)
	expectDetections(t, got, Detection{Kind: DoubleTap, At: 260})

	got = replayOrFail(t, cfg, Trace{touch(600), release(100)}, start)
	expectDetections(t, got, Detection{Kind: LongPress, At: 510})
}

func TestReplay_ActiveHigh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Polarity = ActiveHigh

	got := replayOrFail(t, cfg, Trace{touch(80), release(120), touch(60), release(500)}, 0)
	expectDetections(t, got, Detection{Kind: DoubleTap, At: 260})
}

// TestReplay_InvalidSamples tests that the disconnected sentinel and readings
// above the ceiling never count as contact, even with active-high polarity.
func TestReplay_InvalidSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Polarity = ActiveHigh
	cfg.SampleCeiling = 1000

	got := replayOrFail(t, cfg, Trace{raw(InvalidSample, 1000)}, 0)
	expectDetections(t, got)

	got = replayOrFail(t, cfg, Trace{raw(1500, 100), release(500)}, 0)
	expectDetections(t, got)

	got = replayOrFail(t, cfg, Trace{raw(999, 100), release(500)}, 0)
	expectDetections(t, got, Detection{Kind: SingleTap, At: 400})
}

func TestReplay_Errors(t *testing.T) {
	if _, err := Replay(DefaultConfig(), Trace{touch(10)}, 0, 0); err == nil {
		t.Errorf("expected error for zero tick")
	}
	if _, err := Replay(DefaultConfig(), nil, 10, 0); err == nil {
		t.Errorf("expected error for empty trace")
	}
	huge := Trace{release(math.MaxUint32 - 5), release(10)}
	if _, err := Replay(DefaultConfig(), huge, 10, 0); !errors.Is(err, ErrTraceTooLong) {
		t.Errorf("overflowing trace: got %v, want ErrTraceTooLong", err)
	}
	edge := Trace{release(math.MaxUint32 - 5)}
	if _, err := Replay(DefaultConfig(), edge, 10, 0); !errors.Is(err, ErrTraceTooLong) {
		t.Errorf("trace at the clock limit: got %v, want ErrTraceTooLong", err)
	}

	bad := DefaultConfig()
	bad.TapDuration = 0
	if _, err := Replay(bad, Trace{touch(10)}, 10, 0); !errors.Is(err, ErrNonPositiveDuration) {
		t.Errorf("expected ErrNonPositiveDuration, got %v", err)
	}
}

func TestClassifier_TakeGestureIdempotent(t *testing.T) {
	c, s := newTestClassifier(t)

	if k := c.TakeGesture(); k != None {
		t.Fatalf("fresh classifier returned %v", k)
	}

	s.v = 0
	c.Poll(0)
	s.v = 100
	c.Poll(50)
	if c.Phase() != ReleasedPending {
		t.Fatalf("phase = %v, want released_pending", c.Phase())
	}
	c.Poll(350)

	if k := c.TakeGesture(); k != SingleTap {
		t.Fatalf("first take = %v, want single_tap", k)
	}
	if k := c.TakeGesture(); k != None {
		t.Fatalf("second take = %v, want none", k)
	}
}

// TestClassifier_PendingFreezesPoll tests that an undrained gesture is never
// overwritten by later activity.
func TestClassifier_PendingFreezesPoll(t *testing.T) {
	c, s := newTestClassifier(t)

	s.v = 0
	c.Poll(0)
	s.v = 100
	c.Poll(50)
	c.Poll(350)
	if c.Pending() != SingleTap {
		t.Fatalf("pending = %v, want single_tap", c.Pending())
	}

	// Contact long enough to be a long press, but nobody drains.
	s.v = 0
	for now := Millis(360); now < 2000; now += 10 {
		c.Poll(now)
	}
	if c.Pending() != SingleTap {
		t.Fatalf("pending overwritten: %v", c.Pending())
	}
	if c.Phase() != Idle {
		t.Fatalf("phase = %v, want idle while frozen", c.Phase())
	}

	c.TakeGesture()
	c.Poll(2000)
	if c.Phase() != Touching {
		t.Fatalf("phase = %v, want touching after drain", c.Phase())
	}
	c.Poll(2510)
	if k := c.TakeGesture(); k != LongPress {
		t.Fatalf("take = %v, want long_press", k)
	}
}

func TestClassifier_LongPressFiresOnce(t *testing.T) {
	c, s := newTestClassifier(t)
	s.v = 0

	var fired int
	for now := Millis(0); now <= 3000; now += 20 {
		c.Poll(now)
		if c.TakeGesture() == LongPress {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("long press fired %d times, want 1", fired)
	}

	s.v = 100
	c.Poll(3020)
	if k := c.TakeGesture(); k != None {
		t.Fatalf("release after long press emitted %v", k)
	}
	if c.Phase() != Idle {
		t.Fatalf("phase = %v, want idle", c.Phase())
	}
}

func TestConfig_Contact(t *testing.T) {
	low := DefaultConfig()
	if !low.contact(39) || low.contact(40) || low.contact(InvalidSample) {
		t.Errorf("active-low threshold handling wrong")
	}

	high := DefaultConfig()
	high.Polarity = ActiveHigh
	if !high.contact(41) || high.contact(40) || high.contact(InvalidSample) {
		t.Errorf("active-high threshold handling wrong")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero long press", func(c *Config) { c.LongPressDuration = 0 }, ErrNonPositiveDuration},
		{"zero confirm", func(c *Config) { c.ConfirmDelay = 0 }, ErrNonPositiveDuration},
		{"tap equals double", func(c *Config) { c.TapDuration = 300 }, ErrTapNotBelowDouble},
		{"long equals tap", func(c *Config) { c.LongPressDuration = 150 }, ErrLongNotAboveTap},
		{"confirm too long", func(c *Config) { c.ConfirmDelay = 300 }, ErrConfirmTooLong},
		{"bad polarity", func(c *Config) { c.Polarity = 7 }, ErrBadPolarity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"tap":        SingleTap,
		"single_tap": SingleTap,
		"double-tap": DoubleTap,
		"LONG_PRESS": LongPress,
		"hold":       LongPress,
		"":           None,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("swipe"); err == nil {
		t.Errorf("expected error for unknown gesture")
	}

	var k Kind
	if err := k.UnmarshalText([]byte("double_tap")); err != nil || k != DoubleTap {
		t.Errorf("UnmarshalText = %v, %v", k, err)
	}
}

func TestMillis_SinceWraps(t *testing.T) {
	earlier := Millis(math.MaxUint32 - 9)
	if d := Millis(10).Since(earlier); d != 20 {
		t.Fatalf("Since across wrap = %d, want 20", d)
	}
}
