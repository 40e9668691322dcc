// Package config loads the machine configuration (memory size, MMIO
// windows, functional-unit latencies, default entry address, run settings,
// log level) from a TOML file, in the nested-struct-with-toml-tags style of
// lookbusy1344-arm_emulator/config/config.go: a DefaultConfig constructor,
// a Load that falls back to defaults when no file exists, and SaveTo for
// round-tripping.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full machine configuration.
type Config struct {
	Memory struct {
		SizeBytes    int    `toml:"size_bytes"`
		DefaultEntry string `toml:"default_entry"`
	} `toml:"memory"`

	FUs struct {
		ALUCount   int `toml:"alu_count"`
		ALULatency int `toml:"alu_latency"`
		LSULatency int `toml:"lsu_latency"`
		VECLatency int `toml:"vec_latency"`
		VECLanes   int `toml:"vec_lanes"`
	} `toml:"functional_units"`

	MMIO []WindowConfig `toml:"mmio"`

	Run struct {
		Engine      string `toml:"engine"` // "fast" or "cycle"
		MaxCycles   int    `toml:"max_cycles"`
		TraceFormat string `toml:"trace_format"` // "json" or "none"
		LogLevel    string `toml:"log_level"`
	} `toml:"run"`
}

// WindowConfig declares one MMIO device window by address range; cmd/dspsim
// maps named device kinds onto these ranges.
type WindowConfig struct {
	Name  string `toml:"name"`
	Start uint32 `toml:"start"`
	Size  uint32 `toml:"size"`
	Kind  string `toml:"kind"` // e.g. "console", "counter"
}

// DefaultConfig returns the standard machine configuration: 16 MiB backing
// memory, entry at 0x1000, 2xALU@1, 1xLSU@3, 1xVEC@2/4-lane, no MMIO
// windows, functional engine, no cycle budget, tracing off, info logging.
func DefaultConfig() *Config {
	c := &Config{}
	c.Memory.SizeBytes = 16 * 1024 * 1024
	c.Memory.DefaultEntry = "0x1000"
	c.FUs.ALUCount = 2
	c.FUs.ALULatency = 1
	c.FUs.LSULatency = 3
	c.FUs.VECLatency = 2
	c.FUs.VECLanes = 4
	c.Run.Engine = "fast"
	c.Run.MaxCycles = 0 // 0 means unbounded
	c.Run.TraceFormat = "none"
	c.Run.LogLevel = "info"
	return c
}

// Load reads cfg from path, returning DefaultConfig() unchanged if path
// does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes cfg to path as TOML, creating parent directories as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("config: create dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
