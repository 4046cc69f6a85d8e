package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"glassd/internal/gesture"
)

// serialPad consumes touch readings streamed by a microcontroller, one
// decimal value per line (for example an ESP32 printing touchRead).
type serialPad struct {
	port  serial.Port
	stale time.Duration

	latest atomic.Uint32 // last sample
	seenAt atomic.Int64  // unix nanos of the last sample, 0 if none
	now    func() time.Time
	done   chan struct{}
}

func openSerialPad(ctx context.Context, cfg TouchConfig, logger *slog.Logger) (*serialPad, error) {
	port, err := serial.Open(cfg.SerialPort, &serial.Mode{BaudRate: cfg.SerialBaud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.SerialPort, err)
	}
	p := newSerialPad(port, time.Duration(cfg.SerialStaleMS)*time.Millisecond)
	go p.readLoop(ctx, logger)
	return p, nil
}

func newSerialPad(port serial.Port, stale time.Duration) *serialPad {
	return &serialPad{
		port:  port,
		stale: stale,
		now:   time.Now,
		done:  make(chan struct{}),
	}
}

// readLoop parses lines until the port is closed. Closing the port is the
// only way to unblock the scanner, so ctx cancellation closes it.
func (p *serialPad) readLoop(ctx context.Context, logger *slog.Logger) {
	defer close(p.done)

	stop := context.AfterFunc(ctx, func() { _ = p.port.Close() })
	defer stop()

	if err := p.consume(p.port, logger); err != nil && ctx.Err() == nil {
		logger.Warn("serial touch stream ended", "error", err)
	}
}

// consume stores every parseable line of r as the latest sample.
func (p *serialPad) consume(r io.Reader, logger *slog.Logger) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		v, ok := parseSerialSample(sc.Text())
		if !ok {
			logger.Debug("ignoring serial line", "line", sc.Text())
			continue
		}
		p.latest.Store(uint32(v))
		p.seenAt.Store(p.now().UnixNano())
	}
	return sc.Err()
}

// parseSerialSample accepts a bare number or a "label: number" line. ESP32-S3
// touchRead values exceed 16 bits; they saturate just below InvalidSample.
func parseSerialSample(line string) (gesture.Sample, bool) {
	line = strings.TrimSpace(line)
	if i := strings.LastIndexByte(line, ':'); i >= 0 {
		line = strings.TrimSpace(line[i+1:])
	}
	n, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return 0, false
	}
	if n >= uint64(gesture.InvalidSample) {
		return gesture.InvalidSample - 1, true
	}
	return gesture.Sample(n), true
}

// Sample returns the latest reading, or InvalidSample when the stream has
// gone quiet for longer than the stale limit.
func (p *serialPad) Sample() gesture.Sample {
	at := p.seenAt.Load()
	if at == 0 {
		return gesture.InvalidSample
	}
	if p.stale > 0 && p.now().Sub(time.Unix(0, at)) > p.stale {
		return gesture.InvalidSample
	}
	return gesture.Sample(p.latest.Load())
}

func (p *serialPad) Close() error {
	err := p.port.Close()
	<-p.done
	return err
}
