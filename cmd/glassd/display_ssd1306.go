package main

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
)

// ssd1306Display drives a monochrome OLED over I2C.
type ssd1306Display struct {
	mu     sync.Mutex
	bus    i2c.BusCloser
	dev    *ssd1306.Dev
	on     bool
	logger *slog.Logger
}

const ssd1306Contrast = 0xCF

func openSSD1306(cfg DisplayConfig, logger *slog.Logger) (*ssd1306Display, error) {
	if err := initPeriph(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}

	opts := ssd1306.DefaultOpts
	opts.W = cfg.Width
	opts.H = cfg.Height

	// The driver always talks to address 0x3C.
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("init ssd1306: %w", err)
	}

	logger.Info("display ready", "driver", "ssd1306", "bus", bus.String(), "bounds", dev.Bounds())
	return &ssd1306Display{bus: bus, dev: dev, on: true, logger: logger}, nil
}

// SetPower blanks the panel with Halt. Any later command re-enables it, so
// power-on is a contrast write.
func (d *ssd1306Display) SetPower(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if on == d.on {
		return nil
	}
	var err error
	if on {
		err = d.dev.SetContrast(ssd1306Contrast)
	} else {
		err = d.dev.Halt()
	}
	if err != nil {
		return fmt.Errorf("ssd1306 power %v: %w", on, err)
	}
	d.on = on
	return nil
}

func (d *ssd1306Display) ShowText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	frame := renderText(d.dev.Bounds(), text)
	if err := d.dev.Draw(d.dev.Bounds(), frame, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 draw: %w", err)
	}
	return nil
}

func (d *ssd1306Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.Halt(); err != nil {
		d.logger.Warn("ssd1306 halt failed", "error", err)
	}
	return d.bus.Close()
}

// openDisplay returns the configured display, falling back to headless with
// a warning when the panel cannot be opened.
func openDisplay(cfg DisplayConfig, logger *slog.Logger) Display {
	if cfg.Driver == "ssd1306" {
		d, err := openSSD1306(cfg, logger)
		if err == nil {
			return d
		}
		logger.Warn("display unavailable, running headless", "error", err)
	}
	return newHeadlessDisplay(cfg.Width, cfg.Height, logger)
}
