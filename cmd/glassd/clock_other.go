//go:build !linux

package main

import (
	"time"

	"glassd/internal/gesture"
)

// monoClock counts from process start using the monotonic reading carried by
// time.Time.
type monoClock struct {
	start time.Time
}

func (c monoClock) Now() gesture.Millis {
	return gesture.Millis(uint32(time.Since(c.start).Milliseconds()))
}

func newClock() gesture.Clock { return monoClock{start: time.Now()} }
