package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"glassd/internal/gesture"
)

// gpioPadHigh is what a touched digital pad reports. It pairs with
// active_high polarity and any threshold below it.
const gpioPadHigh gesture.Sample = 1023

// gpioPad reads a digital touch module (TTP223 and similar) on one pin.
type gpioPad struct {
	pin gpio.PinIO
}

func openGPIOPad(cfg TouchConfig) (*gpioPad, error) {
	if err := initPeriph(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(cfg.GPIOPin)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", cfg.GPIOPin)
	}
	if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", p, err)
	}
	return &gpioPad{pin: p}, nil
}

func (g *gpioPad) Sample() gesture.Sample {
	if g.pin.Read() == gpio.High {
		return gpioPadHigh
	}
	return 0
}

func (g *gpioPad) Close() error { return g.pin.Halt() }
