package gesture

import (
	"errors"
	"fmt"
	"math"
)

// Segment is one constant stretch of a synthetic touch trace.
type Segment struct {
	Contact    bool   `yaml:"contact" json:"contact"`
	DurationMS Millis `yaml:"duration_ms" json:"duration_ms"`
	// Value, when set, is reported verbatim instead of a value derived from
	// Contact. Useful for noisy or invalid readings.
	Value *Sample `yaml:"value,omitempty" json:"value,omitempty"`
}

// Trace is a sequence of segments starting at time zero.
type Trace []Segment

// ErrTraceTooLong is returned for traces that do not fit the 32-bit clock.
var ErrTraceTooLong = errors.New("gesture: trace longer than the millisecond clock range")

// Duration is the total length of the trace.
func (t Trace) Duration() (Millis, error) {
	var d uint64
	for _, s := range t {
		d += uint64(s.DurationMS)
	}
	if d > math.MaxUint32 {
		return 0, ErrTraceTooLong
	}
	return Millis(d), nil
}

// Detection is a gesture drained from the classifier during a replay.
type Detection struct {
	Kind Kind   `json:"gesture"`
	At   Millis `json:"at_ms"` // relative to the start of the trace
}

func (d Detection) String() string { return fmt.Sprintf("%s@%dms", d.Kind, d.At) }

// traceSampler reports the trace value at the current replay time. Past the
// end of the trace the last segment is held.
type traceSampler struct {
	cfg   Config
	trace Trace
	now   Millis
}

func (ts *traceSampler) Sample() Sample {
	var end Millis
	for i, s := range ts.trace {
		end += s.DurationMS
		if ts.now < end || i == len(ts.trace)-1 {
			return ts.value(s)
		}
	}
	return ts.level(false)
}

func (ts *traceSampler) value(s Segment) Sample {
	if s.Value != nil {
		return *s.Value
	}
	return ts.level(s.Contact)
}

func (ts *traceSampler) level(contact bool) Sample {
	if ts.cfg.Polarity == ActiveHigh {
		if contact {
			return ts.cfg.Threshold + 1
		}
		return 0
	}
	if contact {
		return 0
	}
	return ts.cfg.Threshold
}

// Replay drives a fresh classifier through trace, polling every tick and
// draining after each poll the way the daemon loop does. start offsets the
// absolute clock, which lets callers exercise counter wraparound.
func Replay(cfg Config, trace Trace, tick, start Millis) ([]Detection, error) {
	if tick == 0 {
		return nil, fmt.Errorf("replay: tick must be positive")
	}
	if len(trace) == 0 {
		return nil, fmt.Errorf("replay: empty trace")
	}
	ts := &traceSampler{cfg: cfg, trace: trace}
	c, err := New(cfg, ts)
	if err != nil {
		return nil, err
	}

	total, err := trace.Duration()
	if err != nil {
		return nil, err
	}
	// The last step past total must not wrap the tick counter.
	if uint64(total)+uint64(tick) > math.MaxUint32 {
		return nil, ErrTraceTooLong
	}

	var out []Detection
	for t := Millis(0); ; t += tick {
		ts.now = t
		c.Poll(start + t)
		if k := c.TakeGesture(); k != None {
			out = append(out, Detection{Kind: k, At: t})
		}
		if t >= total {
			break
		}
	}
	return out, nil
}
