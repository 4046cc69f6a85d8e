package main

import (
	"context"
	"log/slog"
	"sync"
)

// Audio is the output whose mute a double tap toggles.
type Audio interface {
	GetMute() (bool, error)
	SetMute(mute bool) error
	ToggleMute() (bool, error) // returns new mute state
	Close() error
}

// softMute keeps the mute flag in memory. It is the fallback when no audio
// backend is reachable.
type softMute struct {
	mu    sync.Mutex
	muted bool
}

func (s *softMute) GetMute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted, nil
}

func (s *softMute) SetMute(mute bool) error {
	s.mu.Lock()
	s.muted = mute
	s.mu.Unlock()
	return nil
}

func (s *softMute) ToggleMute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted, nil
}

func (s *softMute) Close() error { return nil }

// openAudio returns the configured audio backend. A CamillaDSP instance that
// cannot be reached is replaced with softMute.
func openAudio(ctx context.Context, cfg AudioConfig, logger *slog.Logger) Audio {
	if cfg.Backend == "camilladsp" {
		c, err := NewCamillaDSPClient(ctx, cfg.WsURL, logger, cfg.TimeoutMS)
		if err == nil {
			return c
		}
		logger.Warn("camilladsp unavailable, using soft mute", "url", cfg.WsURL, "error", err)
	}
	return &softMute{}
}
