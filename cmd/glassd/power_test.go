package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fakeSysfs builds a minimal /sys tree with cpus and battery supplies.
func fakeSysfs(t *testing.T, cpus int, maxKHz string, batteries map[string]string) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	for i := 0; i < cpus; i++ {
		dir := filepath.Join("devices/system/cpu", "cpu"+string(rune('0'+i)), "cpufreq")
		write(filepath.Join(dir, "scaling_max_freq"), maxKHz+"\n")
		write(filepath.Join(dir, "cpuinfo_max_freq"), maxKHz+"\n")
	}
	for name, uv := range batteries {
		write(filepath.Join("class/power_supply", name, "type"), "Battery\n")
		write(filepath.Join("class/power_supply", name, "voltage_now"), uv+"\n")
	}
	// A mains supply is never counted.
	write("class/power_supply/AC/type", "Mains\n")
	return root
}

func readCap(t *testing.T, root string, cpu int) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, "devices/system/cpu", "cpu"+string(rune('0'+cpu)), "cpufreq/scaling_max_freq"))
	if err != nil {
		t.Fatalf("read cap: %v", err)
	}
	return strings.TrimSpace(string(b))
}

func TestSysfsPower_ApplyWritesCaps(t *testing.T) {
	root := fakeSysfs(t, 2, "1500000", nil)
	cfg := DefaultConfig().Power
	cfg.SysfsRoot = root
	p := newSysfsPower(cfg, testLogger())

	if err := p.Apply(PowerEco); err != nil {
		t.Fatalf("Apply(eco): %v", err)
	}
	for cpu := 0; cpu < 2; cpu++ {
		if got := readCap(t, root, cpu); got != "1000000" {
			t.Fatalf("cpu%d cap = %s, want 1000000", cpu, got)
		}
	}

	// Normal has no cap configured: back to the hardware maximum.
	if err := p.Apply(PowerNormal); err != nil {
		t.Fatalf("Apply(normal): %v", err)
	}
	if got := readCap(t, root, 0); got != "1500000" {
		t.Fatalf("cpu0 cap = %s, want 1500000", got)
	}
}

func TestSysfsPower_ApplyWithoutCPUFreq(t *testing.T) {
	cfg := DefaultConfig().Power
	cfg.SysfsRoot = t.TempDir()
	p := newSysfsPower(cfg, testLogger())
	if err := p.Apply(PowerEco); !errors.Is(err, errNoCPUFreq) {
		t.Fatalf("err = %v, want errNoCPUFreq", err)
	}
}

func TestSysfsPower_ReadBattery(t *testing.T) {
	root := fakeSysfs(t, 0, "", map[string]string{
		"BAT0": "4200000",
		"BAT1": "3600000",
	})
	cfg := DefaultConfig().Power
	cfg.SysfsRoot = root
	levels, err := newSysfsPower(cfg, testLogger()).ReadBattery()
	if err != nil {
		t.Fatalf("ReadBattery: %v", err)
	}
	if want := []int{100, 50}; !reflect.DeepEqual(levels, want) {
		t.Fatalf("levels = %v, want %v", levels, want)
	}
}

func TestSysfsPower_NoBattery(t *testing.T) {
	cfg := DefaultConfig().Power
	cfg.SysfsRoot = fakeSysfs(t, 1, "1000000", nil)
	levels, err := newSysfsPower(cfg, testLogger()).ReadBattery()
	if err != nil || len(levels) != 0 {
		t.Fatalf("ReadBattery = %v, %v; want empty, nil", levels, err)
	}
}

func TestBatteryPercent(t *testing.T) {
	cases := []struct {
		volts float64
		want  int
	}{
		{2.5, 0},
		{3.0, 0},
		{3.6, 50},
		{4.2, 100},
		{4.35, 100},
	}
	for _, tc := range cases {
		if got := batteryPercent(tc.volts); got != tc.want {
			t.Fatalf("batteryPercent(%.2f) = %d, want %d", tc.volts, got, tc.want)
		}
	}
}

func TestPowerMode_ParseAndNext(t *testing.T) {
	for in, want := range map[string]PowerMode{
		"normal":    PowerNormal,
		"ECO":       PowerEco,
		"ultra-low": PowerUltraLow,
		"ultralow":  PowerUltraLow,
	} {
		got, err := ParsePowerMode(in)
		if err != nil || got != want {
			t.Fatalf("ParsePowerMode(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParsePowerMode("turbo"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}

	m := PowerNormal
	var seen []PowerMode
	for i := 0; i < 3; i++ {
		m = m.Next()
		seen = append(seen, m)
	}
	if want := []PowerMode{PowerEco, PowerUltraLow, PowerNormal}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("cycle = %v, want %v", seen, want)
	}
}
