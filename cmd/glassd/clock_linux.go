//go:build linux

package main

import (
	"golang.org/x/sys/unix"

	"glassd/internal/gesture"
)

// monoClock reads CLOCK_MONOTONIC, which is immune to wall-clock steps.
type monoClock struct{}

func (monoClock) Now() gesture.Millis {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	ms := uint64(ts.Sec)*1000 + uint64(ts.Nsec)/1e6
	return gesture.Millis(uint32(ms))
}

func newClock() gesture.Clock { return monoClock{} }
