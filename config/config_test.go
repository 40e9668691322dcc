package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigValues(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 16*1024*1024, c.Memory.SizeBytes)
	assert.Equal(t, 2, c.FUs.ALUCount)
	assert.Equal(t, 1, c.FUs.ALULatency)
	assert.Equal(t, 3, c.FUs.LSULatency)
	assert.Equal(t, 2, c.FUs.VECLatency)
	assert.Equal(t, 4, c.FUs.VECLanes)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.toml")
	c := DefaultConfig()
	c.Memory.SizeBytes = 1 << 20
	c.Run.Engine = "cycle"
	c.MMIO = []WindowConfig{{Name: "console", Start: 0xF000, Size: 16, Kind: "console"}}
	assert.NoError(t, c.SaveTo(path))

	loaded, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 1<<20, loaded.Memory.SizeBytes)
	assert.Equal(t, "cycle", loaded.Run.Engine)
	assert.Len(t, loaded.MMIO, 1)
	assert.Equal(t, "console", loaded.MMIO[0].Name)
}
