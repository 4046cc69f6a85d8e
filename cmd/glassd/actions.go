package main

import (
	"encoding/json"
	"fmt"

	"glassd/internal/gesture"
)

// ============================================================================
// Actions
// ============================================================================
// Actions represent intent from outside the touch loop (IPC, HTTP, CLI).
// They travel as JSON in a {type, data} envelope.
// ============================================================================

// Action is an Event that can be sent by a client.
type Action interface {
	Event
	actionType() string
}

// InjectGesture feeds a gesture into dispatch as if it had been decoded.
type InjectGesture struct {
	Gesture gesture.Kind `json:"gesture"`
}

// ToggleDisplay flips the display power.
type ToggleDisplay struct{}

// SetDisplay sets the display power explicitly.
type SetDisplay struct {
	On bool `json:"on"`
}

// ShowText draws word-wrapped text and wakes the display.
type ShowText struct {
	Text string `json:"text"`
}

// ToggleMute requests the audio mute state to be toggled.
type ToggleMute struct{}

// SetMute sets the audio mute state explicitly.
type SetMute struct {
	Muted bool `json:"muted"`
}

// CyclePowerMode advances normal -> eco -> ultra_low -> normal.
type CyclePowerMode struct{}

// SetPowerMode selects a power mode directly.
type SetPowerMode struct {
	Mode PowerMode `json:"mode"`
}

func (InjectGesture) eventMarker()  {}
func (ToggleDisplay) eventMarker()  {}
func (SetDisplay) eventMarker()     {}
func (ShowText) eventMarker()       {}
func (ToggleMute) eventMarker()     {}
func (SetMute) eventMarker()        {}
func (CyclePowerMode) eventMarker() {}
func (SetPowerMode) eventMarker()   {}

func (InjectGesture) actionType() string  { return "inject_gesture" }
func (ToggleDisplay) actionType() string  { return "toggle_display" }
func (SetDisplay) actionType() string     { return "set_display" }
func (ShowText) actionType() string       { return "show_text" }
func (ToggleMute) actionType() string     { return "toggle_mute" }
func (SetMute) actionType() string        { return "set_mute" }
func (CyclePowerMode) actionType() string { return "cycle_power_mode" }
func (SetPowerMode) actionType() string   { return "set_power_mode" }

// EventEnvelope wraps an action with a type discriminator for JSON.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalAction decodes a JSON envelope into a concrete Action and checks
// its payload.
func UnmarshalAction(data []byte) (Action, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var a Action
	switch env.Type {
	case "inject_gesture":
		var v InjectGesture
		if err := decodeData(env, &v); err != nil {
			return nil, err
		}
		if v.Gesture == gesture.None {
			return nil, fmt.Errorf("inject_gesture: gesture is required")
		}
		a = v
	case "toggle_display":
		a = ToggleDisplay{}
	case "set_display":
		var v SetDisplay
		if err := decodeData(env, &v); err != nil {
			return nil, err
		}
		a = v
	case "show_text":
		var v ShowText
		if err := decodeData(env, &v); err != nil {
			return nil, err
		}
		a = v
	case "toggle_mute":
		a = ToggleMute{}
	case "set_mute":
		var v SetMute
		if err := decodeData(env, &v); err != nil {
			return nil, err
		}
		a = v
	case "cycle_power_mode":
		a = CyclePowerMode{}
	case "set_power_mode":
		var v SetPowerMode
		if err := decodeData(env, &v); err != nil {
			return nil, err
		}
		m, err := ParsePowerMode(string(v.Mode))
		if err != nil {
			return nil, fmt.Errorf("set_power_mode: %w", err)
		}
		a = SetPowerMode{Mode: m}
	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
	return a, nil
}

func decodeData(env EventEnvelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return nil
}

// MarshalAction serializes an Action into its JSON envelope.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil action")
	}
	env := EventEnvelope{Type: a.actionType()}

	switch a.(type) {
	case ToggleDisplay, ToggleMute, CyclePowerMode:
		// no payload
	default:
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}
