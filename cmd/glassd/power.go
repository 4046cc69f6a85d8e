package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// PowerMode is the device power profile.
type PowerMode string

const (
	PowerNormal   PowerMode = "normal"
	PowerEco      PowerMode = "eco"
	PowerUltraLow PowerMode = "ultra_low"
)

// ParsePowerMode accepts the canonical names plus dashed spellings.
func ParsePowerMode(s string) (PowerMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "normal":
		return PowerNormal, nil
	case "eco":
		return PowerEco, nil
	case "ultra_low", "ultralow":
		return PowerUltraLow, nil
	default:
		return "", fmt.Errorf("unknown power mode %q (must be normal, eco or ultra_low)", s)
	}
}

// Next returns the mode a long press cycles to.
func (m PowerMode) Next() PowerMode {
	switch m {
	case PowerNormal:
		return PowerEco
	case PowerEco:
		return PowerUltraLow
	default:
		return PowerNormal
	}
}

// batteryPercent maps a LiPo cell voltage to 0..100.
func batteryPercent(volts float64) int {
	pct := (volts - batteryEmptyVolts) * 100 / (batteryFullVolts - batteryEmptyVolts)
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}

// sysfsPower applies power modes through cpufreq and reads battery voltage
// from the power_supply class.
type sysfsPower struct {
	root   string
	maxKHz map[PowerMode]int
	logger *slog.Logger
}

func newSysfsPower(cfg PowerConfig, logger *slog.Logger) *sysfsPower {
	root := cfg.SysfsRoot
	if root == "" {
		root = "/sys"
	}
	return &sysfsPower{
		root: root,
		maxKHz: map[PowerMode]int{
			PowerNormal:   cfg.NormalMaxKHz,
			PowerEco:      cfg.EcoMaxKHz,
			PowerUltraLow: cfg.UltraLowMaxKHz,
		},
		logger: logger,
	}
}

var errNoCPUFreq = errors.New("no cpufreq policies found")

// Apply writes the frequency cap of mode to every CPU.
func (p *sysfsPower) Apply(mode PowerMode) error {
	limits, err := filepath.Glob(filepath.Join(p.root, "devices/system/cpu/cpu[0-9]*/cpufreq/scaling_max_freq"))
	if err != nil {
		return fmt.Errorf("glob cpufreq: %w", err)
	}
	if len(limits) == 0 {
		return errNoCPUFreq
	}

	khz, ok := p.maxKHz[mode]
	if !ok {
		return fmt.Errorf("unknown power mode %q", mode)
	}

	var errs []error
	for _, path := range limits {
		target := khz
		if target == 0 {
			target, err = readIntFile(filepath.Join(filepath.Dir(path), "cpuinfo_max_freq"))
			if err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if err := os.WriteFile(path, []byte(strconv.Itoa(target)), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", path, err))
			continue
		}
		p.logger.Debug("cpu frequency capped", "path", path, "khz", target, "mode", mode)
	}
	return errors.Join(errs...)
}

// ReadBattery returns one percentage per battery supply. No battery is not an
// error: the result is simply empty.
func (p *sysfsPower) ReadBattery() ([]int, error) {
	supplies, err := filepath.Glob(filepath.Join(p.root, "class/power_supply/*"))
	if err != nil {
		return nil, fmt.Errorf("glob power_supply: %w", err)
	}

	var levels []int
	for _, dir := range supplies {
		if b, err := os.ReadFile(filepath.Join(dir, "type")); err == nil && strings.TrimSpace(string(b)) != "Battery" {
			continue
		}
		uv, err := readIntFile(filepath.Join(dir, "voltage_now"))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		levels = append(levels, batteryPercent(float64(uv)/1e6))
	}
	return levels, nil
}

func readIntFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// HostStats is a small system summary reported by the health endpoint.
type HostStats struct {
	CPUPercent float64 `json:"cpu_percent"`
	UptimeSec  uint64  `json:"uptime_sec"`
}

// readHostStats never blocks: CPU load is measured since the previous call.
func readHostStats() HostStats {
	var st HostStats
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		st.CPUPercent = math.Round(pct[0]*10) / 10
	}
	if up, err := host.Uptime(); err == nil {
		st.UptimeSec = up
	}
	return st
}
