// Package gesture turns a continuously sampled capacitive-touch signal into
// discrete gestures (single tap, double tap, long press).
//
// The classifier is driven by cooperative polling only: the owner calls Poll
// once per control-loop tick and drains the result with TakeGesture. There is
// no internal goroutine, timer or lock.
package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a decoded gesture.
type Kind uint8

const (
	None Kind = iota
	SingleTap
	DoubleTap
	LongPress
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case SingleTap:
		return "single_tap"
	case DoubleTap:
		return "double_tap"
	case LongPress:
		return "long_press"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses the String form of a Kind. Dashes are accepted in place of
// underscores so CLI spellings like "double-tap" work.
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "none", "":
		return None, nil
	case "single_tap", "tap":
		return SingleTap, nil
	case "double_tap":
		return DoubleTap, nil
	case "long_press", "hold":
		return LongPress, nil
	default:
		return None, fmt.Errorf("unknown gesture: %q", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Phase is the externally visible state of the classifier.
type Phase uint8

const (
	Idle Phase = iota
	Touching
	ReleasedPending
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Touching:
		return "touching"
	case ReleasedPending:
		return "released_pending"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Sample is a raw touch-intensity reading.
type Sample uint16

// InvalidSample is what a platform sampler reports when the sensor could not be
// read (bus error, disconnected pad). It never counts as contact.
const InvalidSample Sample = 0xFFFF

// Sampler reads the current touch signal. Sample must not block for longer
// than a bus transaction.
type Sampler interface {
	Sample() Sample
}

// SamplerFunc adapts a plain function to a Sampler.
type SamplerFunc func() Sample

func (f SamplerFunc) Sample() Sample { return f() }

// Millis is a wrapping millisecond counter.
type Millis uint32

// Since returns the elapsed time from earlier to m. Unsigned subtraction keeps
// the result correct across counter wraparound.
func (m Millis) Since(earlier Millis) Millis { return m - earlier }

// Clock supplies monotonic timestamps.
type Clock interface {
	Now() Millis
}

// Polarity selects which side of the threshold means contact.
type Polarity uint8

const (
	// ActiveLow: contact pulls the reading below the threshold (ESP32 touchRead,
	// MPR121 filtered data).
	ActiveLow Polarity = iota
	// ActiveHigh: contact raises the reading above the threshold (digital pads).
	ActiveHigh
)

func (p Polarity) String() string {
	if p == ActiveHigh {
		return "active_high"
	}
	return "active_low"
}

// ParsePolarity parses "active_low"/"low" or "active_high"/"high".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "active_low", "low", "":
		return ActiveLow, nil
	case "active_high", "high":
		return ActiveHigh, nil
	default:
		return ActiveLow, fmt.Errorf("unknown polarity: %q (must be active_low or active_high)", s)
	}
}

// Config holds the classifier tunables. All durations are milliseconds.
type Config struct {
	// Threshold separates contact from no contact.
	Threshold Sample
	Polarity  Polarity

	// TapDuration is the exclusive ceiling for a contact to count as a tap.
	TapDuration Millis
	// DoubleTapInterval is the pairing window measured from the end of the
	// first tap. A lone tap is confirmed once this window passes quietly.
	DoubleTapInterval Millis
	// LongPressDuration is the hold time after which LongPress fires while
	// contact is still ongoing.
	LongPressDuration Millis
	// ConfirmDelay is the settle time after a tap release. Contact seen inside
	// it is treated as release bounce and ignored.
	ConfirmDelay Millis

	// SampleCeiling, when non-zero, marks readings at or above it as invalid.
	SampleCeiling Sample
}

// DefaultConfig returns the stock tuning for an ESP32-style touch pad.
func DefaultConfig() Config {
	return Config{
		Threshold:         40,
		Polarity:          ActiveLow,
		TapDuration:       150,
		DoubleTapInterval: 300,
		LongPressDuration: 500,
		ConfirmDelay:      50,
	}
}

var (
	ErrNonPositiveDuration = errors.New("gesture: durations must be positive")
	ErrTapNotBelowDouble   = errors.New("gesture: tap duration must be less than double-tap interval")
	ErrLongNotAboveTap     = errors.New("gesture: long-press duration must exceed tap duration")
	ErrConfirmTooLong      = errors.New("gesture: confirm delay must be less than double-tap interval")
	ErrBadPolarity         = errors.New("gesture: unknown polarity")
)

// Validate checks the invariants the state machine relies on.
func (c Config) Validate() error {
	if c.TapDuration == 0 || c.DoubleTapInterval == 0 || c.LongPressDuration == 0 || c.ConfirmDelay == 0 {
		return ErrNonPositiveDuration
	}
	if c.TapDuration >= c.DoubleTapInterval {
		return ErrTapNotBelowDouble
	}
	if c.LongPressDuration <= c.TapDuration {
		return ErrLongNotAboveTap
	}
	if c.ConfirmDelay >= c.DoubleTapInterval {
		return ErrConfirmTooLong
	}
	if c.Polarity != ActiveLow && c.Polarity != ActiveHigh {
		return ErrBadPolarity
	}
	return nil
}

// contact reports whether s counts as contact under this config.
func (c Config) contact(s Sample) bool {
	if s == InvalidSample {
		return false
	}
	if c.SampleCeiling != 0 && s >= c.SampleCeiling {
		return false
	}
	if c.Polarity == ActiveHigh {
		return s > c.Threshold
	}
	return s < c.Threshold
}
