package main

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"

	"glassd/internal/gesture"
)

// MPR121 registers.
const (
	mpr121FilteredData = 0x04 // two bytes per electrode, 10-bit little endian
	mpr121Baseline     = 0x1E // one byte per electrode, upper 8 of 10 bits
	mpr121TouchThresh  = 0x41 // touch/release pairs per electrode
	mpr121ECR          = 0x5E
	mpr121SoftReset    = 0x80

	mpr121ResetMagic   = 0x63
	mpr121TouchLevel   = 12
	mpr121ReleaseLevel = 6
	mpr121MaxCount     = 1023
)

// mpr121 reports how far one electrode's filtered capacitance has dropped
// below the baseline the chip tracks. Contact raises the value, so it pairs
// with active_high polarity and a threshold in the same counts as the chip's
// own touch level.
type mpr121 struct {
	bus       i2c.BusCloser
	dev       *i2c.Dev
	electrode int
	logger    *slog.Logger
	failing   bool
}

func openMPR121(cfg TouchConfig, logger *slog.Logger) (*mpr121, error) {
	if err := initPeriph(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}
	m := &mpr121{
		bus:       bus,
		dev:       &i2c.Dev{Bus: bus, Addr: uint16(cfg.I2CAddr)},
		electrode: cfg.Electrode,
		logger:    logger,
	}
	if err := m.init(); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("init mpr121 at 0x%02x: %w", cfg.I2CAddr, err)
	}
	return m, nil
}

func (m *mpr121) write(reg, v byte) error {
	return m.dev.Tx([]byte{reg, v}, nil)
}

func (m *mpr121) init() error {
	if err := m.write(mpr121SoftReset, mpr121ResetMagic); err != nil {
		return err
	}
	time.Sleep(time.Millisecond)

	// Thresholds may only be written in stop mode.
	if err := m.write(mpr121ECR, 0x00); err != nil {
		return err
	}
	reg := byte(mpr121TouchThresh + 2*m.electrode)
	if err := m.write(reg, mpr121TouchLevel); err != nil {
		return err
	}
	if err := m.write(reg+1, mpr121ReleaseLevel); err != nil {
		return err
	}
	// Run electrodes 0..n with baseline tracking.
	return m.write(mpr121ECR, 0x80|byte(m.electrode+1))
}

func (m *mpr121) Sample() gesture.Sample {
	var filtered [2]byte
	var base [1]byte
	err := m.dev.Tx([]byte{byte(mpr121FilteredData + 2*m.electrode)}, filtered[:])
	if err == nil {
		err = m.dev.Tx([]byte{byte(mpr121Baseline + m.electrode)}, base[:])
	}
	if err != nil {
		if !m.failing {
			m.logger.Warn("mpr121 read failed", "error", err)
			m.failing = true
		}
		return gesture.InvalidSample
	}
	if m.failing {
		m.logger.Info("mpr121 read recovered")
		m.failing = false
	}
	return mpr121Delta(filtered, base[0])
}

// mpr121Delta converts raw register bytes into the drop below baseline.
func mpr121Delta(filtered [2]byte, baseline byte) gesture.Sample {
	value := int(filtered[0]) | int(filtered[1]&0x03)<<8
	delta := int(baseline)<<2 - value
	if delta < 0 {
		return 0
	}
	return gesture.Sample(delta)
}

func (m *mpr121) Close() error {
	if err := m.write(mpr121ECR, 0x00); err != nil {
		m.logger.Debug("mpr121 stop failed", "error", err)
	}
	return m.bus.Close()
}
