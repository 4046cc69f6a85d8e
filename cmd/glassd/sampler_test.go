package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"glassd/internal/gesture"
)

func TestParseSerialSample(t *testing.T) {
	cases := []struct {
		line string
		want gesture.Sample
		ok   bool
	}{
		{"42", 42, true},
		{"  17\r", 17, true},
		{"touch: 23", 23, true},
		{"T0:5", 5, true},
		{"", 0, false},
		{"boot ok", 0, false},
		{"-3", 0, false},
		{"65534", 65534, true},
		{"65535", 65534, true},
		{"touch: 70000", 65534, true},
		{"5000000000", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseSerialSample(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseSerialSample(%q) = %d, %v; want %d, %v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

// TestSerialPad_WideReadings tests that ESP32-S3 sized readings keep the pad
// live instead of being dropped as unparseable.
func TestSerialPad_WideReadings(t *testing.T) {
	p := newSerialPad(nil, 500*time.Millisecond)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	if err := p.consume(strings.NewReader("31000\n98000\n"), testLogger()); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got := p.Sample(); got != gesture.InvalidSample-1 {
		t.Fatalf("Sample = %d, want %d", got, gesture.InvalidSample-1)
	}
}

func TestSerialPad_LatestAndStale(t *testing.T) {
	p := newSerialPad(nil, 500*time.Millisecond)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	if got := p.Sample(); got != gesture.InvalidSample {
		t.Fatalf("Sample before any reading = %d, want InvalidSample", got)
	}

	stream := "boot\n80\ntouch: 12\n"
	if err := p.consume(strings.NewReader(stream), testLogger()); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got := p.Sample(); got != 12 {
		t.Fatalf("Sample = %d, want 12", got)
	}

	now = now.Add(400 * time.Millisecond)
	if got := p.Sample(); got != 12 {
		t.Fatalf("Sample within stale limit = %d, want 12", got)
	}
	now = now.Add(200 * time.Millisecond)
	if got := p.Sample(); got != gesture.InvalidSample {
		t.Fatalf("stale Sample = %d, want InvalidSample", got)
	}
}

func TestNoneSampler(t *testing.T) {
	src := openTouchSource(context.Background(), TouchConfig{Source: "none"}, testLogger())
	if got := src.Sample(); got != gesture.InvalidSample {
		t.Fatalf("none Sample = %d, want InvalidSample", got)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
