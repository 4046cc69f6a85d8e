package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"glassd/internal/gesture"
)

// Config is the top-level YAML configuration for the glassd daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config.
type Config struct {
	Touch   TouchConfig   `yaml:"touch"`
	Display DisplayConfig `yaml:"display"`
	Audio   AudioConfig   `yaml:"audio"`
	Power   PowerConfig   `yaml:"power"`
	IPC     IPCConfig     `yaml:"ipc"`
	HTTP    HTTPConfig    `yaml:"http"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

type TouchConfig struct {
	// Source selects the sampler: i2c, gpio, serial or none.
	Source string `yaml:"source"`

	// Threshold and Polarity default per source when zero or empty.
	Threshold      int    `yaml:"threshold"`
	Polarity       string `yaml:"polarity"` // active_low or active_high
	SampleCeiling  int    `yaml:"sample_ceiling,omitempty"`
	TapMS          int    `yaml:"tap_ms"`
	DoubleTapMS    int    `yaml:"double_tap_ms"`
	LongPressMS    int    `yaml:"long_press_ms"`
	ConfirmMS      int    `yaml:"confirm_ms"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`

	// i2c (MPR121)
	I2CBus    string `yaml:"i2c_bus,omitempty"`
	I2CAddr   int    `yaml:"i2c_addr,omitempty"`
	Electrode int    `yaml:"electrode,omitempty"`

	// gpio
	GPIOPin string `yaml:"gpio_pin,omitempty"`

	// serial
	SerialPort    string `yaml:"serial_port,omitempty"`
	SerialBaud    int    `yaml:"serial_baud,omitempty"`
	SerialStaleMS int    `yaml:"serial_stale_ms,omitempty"`
}

type DisplayConfig struct {
	Driver    string `yaml:"driver"` // ssd1306 or headless
	I2CBus    string `yaml:"i2c_bus,omitempty"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TimeoutMS int    `yaml:"timeout_ms"` // 0 disables auto-off
}

type AudioConfig struct {
	Backend   string `yaml:"backend"` // camilladsp or soft
	WsURL     string `yaml:"ws_url,omitempty"`
	TimeoutMS int    `yaml:"timeout_ms,omitempty"`
}

type PowerConfig struct {
	InitialMode     string `yaml:"initial_mode"`
	SysfsRoot       string `yaml:"sysfs_root"`
	CheckIntervalMS int    `yaml:"check_interval_ms"`
	LowPercent      int    `yaml:"low_percent"`
	CriticalPercent int    `yaml:"critical_percent"`

	// CPU frequency caps in kHz. 0 means the hardware maximum.
	NormalMaxKHz   int `yaml:"normal_max_khz"`
	EcoMaxKHz      int `yaml:"eco_max_khz"`
	UltraLowMaxKHz int `yaml:"ultra_low_max_khz"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type JournalConfig struct {
	// Path of the SQLite gesture journal. Empty disables it.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Touch: TouchConfig{
			Source:         "none",
			TapMS:          defaultTapMS,
			DoubleTapMS:    defaultDoubleTapMS,
			LongPressMS:    defaultLongPressMS,
			ConfirmMS:      defaultConfirmMS,
			PollIntervalMS: defaultPollIntervalMS,
			I2CBus:         "",
			I2CAddr:        defaultMPR121Addr,
			SerialBaud:     defaultSerialBaud,
			SerialStaleMS:  defaultSerialStaleMS,
		},
		Display: DisplayConfig{
			Driver:    "headless",
			Width:     defaultDisplayWidth,
			Height:    defaultDisplayHeight,
			TimeoutMS: defaultDisplayTimeoutMS,
		},
		Audio: AudioConfig{
			Backend:   "soft",
			WsURL:     "ws://127.0.0.1:1234",
			TimeoutMS: defaultReadTimeoutMS,
		},
		Power: PowerConfig{
			InitialMode:     string(PowerNormal),
			SysfsRoot:       "/sys",
			CheckIntervalMS: defaultBatteryCheckMS,
			LowPercent:      defaultLowBatteryPct,
			CriticalPercent: defaultCriticalBattPct,
			EcoMaxKHz:       defaultEcoMaxKHz,
			UltraLowMaxKHz:  defaultUltraLowMaxKHz,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/glassd.sock",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Port:    3002,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command-line overrides. A nil pointer means the flag was
// not given; a non-nil pointer is applied even if it holds a zero value.
type FlagOverrides struct {
	TouchSource    *string
	TouchThreshold *int
	PollIntervalMS *int
	IPCSocketPath  *string
	HTTPPort       *int
	LogLevel       *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.TouchSource != nil {
		cfg.Touch.Source = *o.TouchSource
	}
	if o.TouchThreshold != nil {
		cfg.Touch.Threshold = *o.TouchThreshold
	}
	if o.PollIntervalMS != nil {
		cfg.Touch.PollIntervalMS = *o.PollIntervalMS
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
		cfg.HTTP.Enabled = *o.HTTPPort > 0
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks the config for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	// Touch
	switch c.Touch.Source {
	case "i2c", "gpio", "serial", "none":
	default:
		return fmt.Errorf("touch.source must be one of i2c, gpio, serial, none (got %q)", c.Touch.Source)
	}
	if c.Touch.Threshold < 0 || c.Touch.Threshold >= int(gesture.InvalidSample) {
		return fmt.Errorf("touch.threshold must be between 0 and %d", int(gesture.InvalidSample)-1)
	}
	if c.Touch.SampleCeiling < 0 || c.Touch.SampleCeiling > int(gesture.InvalidSample) {
		return errors.New("touch.sample_ceiling out of range")
	}
	if c.Touch.PollIntervalMS <= 0 || c.Touch.PollIntervalMS > maxPollIntervalMS {
		return fmt.Errorf("touch.poll_interval_ms must be between 1 and %d", maxPollIntervalMS)
	}
	if _, err := c.GestureConfig(); err != nil {
		return fmt.Errorf("touch: %w", err)
	}
	threshold, polarity := c.Touch.contactSettings()
	switch c.Touch.Source {
	case "gpio":
		if c.Touch.GPIOPin == "" {
			return errors.New("touch.gpio_pin is required for the gpio source")
		}
		if threshold >= int(gpioPadHigh) {
			return fmt.Errorf("touch.threshold must be below %d for the gpio source", gpioPadHigh)
		}
	case "serial":
		if c.Touch.SerialPort == "" {
			return errors.New("touch.serial_port is required for the serial source")
		}
		if c.Touch.SerialBaud <= 0 {
			return errors.New("touch.serial_baud must be > 0")
		}
	case "i2c":
		if c.Touch.Electrode < 0 || c.Touch.Electrode > 11 {
			return errors.New("touch.electrode must be between 0 and 11")
		}
		if threshold > mpr121MaxCount {
			return fmt.Errorf("touch.threshold must be at most %d for the i2c source", mpr121MaxCount)
		}
	}
	switch c.Touch.Source {
	case "gpio", "i2c":
		// Both samplers report a value that rises with contact.
		if pol, _ := gesture.ParsePolarity(polarity); pol != gesture.ActiveHigh {
			return fmt.Errorf("touch.polarity must be active_high for the %s source", c.Touch.Source)
		}
	}

	// Display
	if c.Display.Driver != "ssd1306" && c.Display.Driver != "headless" {
		return fmt.Errorf("display.driver must be ssd1306 or headless (got %q)", c.Display.Driver)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return errors.New("display.width and display.height must be > 0")
	}
	if c.Display.TimeoutMS < 0 {
		return errors.New("display.timeout_ms must be >= 0")
	}

	// Audio
	switch c.Audio.Backend {
	case "soft":
	case "camilladsp":
		if c.Audio.WsURL == "" {
			return errors.New("audio.ws_url is required for the camilladsp backend")
		}
		if c.Audio.TimeoutMS <= 0 {
			return errors.New("audio.timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("audio.backend must be camilladsp or soft (got %q)", c.Audio.Backend)
	}

	// Power
	if _, err := ParsePowerMode(c.Power.InitialMode); err != nil {
		return fmt.Errorf("power.initial_mode: %w", err)
	}
	if c.Power.CheckIntervalMS <= 0 {
		return errors.New("power.check_interval_ms must be > 0")
	}
	if c.Power.CriticalPercent < 0 || c.Power.LowPercent > 100 || c.Power.CriticalPercent > c.Power.LowPercent {
		return errors.New("power thresholds must satisfy 0 <= critical_percent <= low_percent <= 100")
	}
	if c.Power.NormalMaxKHz < 0 || c.Power.EcoMaxKHz < 0 || c.Power.UltraLowMaxKHz < 0 {
		return errors.New("power frequency caps must be >= 0")
	}

	// IPC / HTTP
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return errors.New("http.port must be between 1 and 65535")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// sourceDefaults is the contact threshold and polarity that suit each sampler's
// value range.
func (t TouchConfig) sourceDefaults() (threshold int, polarity string) {
	switch t.Source {
	case "gpio":
		return gpioPadThreshold, "active_high"
	case "i2c":
		return mpr121TouchLevel, "active_high"
	default:
		return defaultTouchThreshold, "active_low"
	}
}

// contactSettings resolves the threshold and polarity in effect.
func (t TouchConfig) contactSettings() (threshold int, polarity string) {
	threshold, polarity = t.sourceDefaults()
	if t.Threshold != 0 {
		threshold = t.Threshold
	}
	if t.Polarity != "" {
		polarity = t.Polarity
	}
	return threshold, polarity
}

// GestureConfig converts the touch section into classifier tuning.
func (c *Config) GestureConfig() (gesture.Config, error) {
	threshold, polarity := c.Touch.contactSettings()
	pol, err := gesture.ParsePolarity(polarity)
	if err != nil {
		return gesture.Config{}, err
	}
	if c.Touch.TapMS < 0 || c.Touch.DoubleTapMS < 0 || c.Touch.LongPressMS < 0 || c.Touch.ConfirmMS < 0 {
		return gesture.Config{}, gesture.ErrNonPositiveDuration
	}
	gc := gesture.Config{
		Threshold:         gesture.Sample(threshold),
		Polarity:          pol,
		TapDuration:       gesture.Millis(c.Touch.TapMS),
		DoubleTapInterval: gesture.Millis(c.Touch.DoubleTapMS),
		LongPressDuration: gesture.Millis(c.Touch.LongPressMS),
		ConfirmDelay:      gesture.Millis(c.Touch.ConfirmMS),
		SampleCeiling:     gesture.Sample(c.Touch.SampleCeiling),
	}
	return gc, gc.Validate()
}

// ReducerConfig extracts the policy knobs the reducer needs.
func (c *Config) ReducerConfig() ReducerConfig {
	return ReducerConfig{
		DisplayTimeout:       time.Duration(c.Display.TimeoutMS) * time.Millisecond,
		BatteryCheckInterval: time.Duration(c.Power.CheckIntervalMS) * time.Millisecond,
		LowBatteryPct:        c.Power.LowPercent,
		CriticalBatteryPct:   c.Power.CriticalPercent,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
