package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/host/v3"

	"glassd/internal/gesture"
)

// TouchSource is a gesture.Sampler backed by hardware that must be released.
type TouchSource interface {
	gesture.Sampler
	Close() error
}

var (
	periphOnce sync.Once
	periphErr  error
)

// initPeriph loads the periph host drivers once per process.
func initPeriph() error {
	periphOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			periphErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return periphErr
}

// noneSampler has no sensor attached. It always reports an invalid reading,
// so the classifier stays idle and gestures only arrive by injection.
type noneSampler struct{}

func (noneSampler) Sample() gesture.Sample { return gesture.InvalidSample }
func (noneSampler) Close() error           { return nil }

// openTouchSource opens the configured sampler. A sensor that fails to open
// is replaced with noneSampler and a warning.
func openTouchSource(ctx context.Context, cfg TouchConfig, logger *slog.Logger) TouchSource {
	var (
		src TouchSource
		err error
	)
	switch cfg.Source {
	case "i2c":
		src, err = openMPR121(cfg, logger)
	case "gpio":
		src, err = openGPIOPad(cfg)
	case "serial":
		src, err = openSerialPad(ctx, cfg, logger)
	default:
		return noneSampler{}
	}
	if err != nil {
		logger.Warn("touch sensor unavailable, gestures only by injection", "source", cfg.Source, "error", err)
		return noneSampler{}
	}
	logger.Info("touch sensor ready", "source", cfg.Source)
	return src
}
