package main

import (
	"strings"
	"testing"
)

func TestFormatMessage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"type":"gesture","ts":"2026-03-01T12:00:00Z","data":{"gesture":"double_tap","source":"touch"}}`, "[GESTURE] double_tap (touch)"},
		{`{"type":"display_changed","ts":"2026-03-01T12:00:00Z","data":{"on":false}}`, "[DISPLAY] OFF"},
		{`{"type":"mute_changed","ts":"2026-03-01T12:00:00Z","data":{"muted":true}}`, "[MUTE] MUTED"},
		{`{"type":"power_mode_changed","ts":"2026-03-01T12:00:00Z","data":{"mode":"ultra_low"}}`, "[POWER] ULTRA_LOW"},
		{`{"type":"battery_changed","ts":"2026-03-01T12:00:00Z","data":{"percent":42,"levels":[42,60]}}`, "[BATTERY] 42% [42 60]"},
		{`{"type":"state_init","ts":"2026-03-01T12:00:00Z","data":{"muted":false}}`, "[STATE_INIT]\n{\n  \"muted\": false\n}"},
		{`hello`, "[TEXT] hello"},
	}
	for _, tc := range cases {
		if got := formatMessage([]byte(tc.in)); !strings.Contains(got, tc.want) {
			t.Fatalf("formatMessage(%s) = %q, want it to contain %q", tc.in, got, tc.want)
		}
	}
}
