package emulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/regvm/cpu"
)

const testConfig = `
memory_size = 4096
max_ticks = 1_000
verbose = true

[equates]
ORIGIN = "64"
NAME = "b"
`

func TestParseConfig(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ParseConfig(testConfig)
	assert.NoError(err)
	assert.Equal(Config{
		MemorySize: 4096,
		MaxTicks:   1000,
		Verbose:    true,
		Equates:    map[string]string{"ORIGIN": "64", "NAME": "b"},
	}, cfg)

	cfg, err = ParseConfig("")
	assert.NoError(err)
	assert.Equal(DefaultConfig(), cfg)

	cfg, err = ParseConfig("memory_size = 0\n")
	assert.NoError(err)
	assert.Equal(uint64(cpu.MEMORY_SIZE), cfg.MemorySize)
}

func TestParseConfigErrors(t *testing.T) {
	assert := assert.New(t)

	table := []string{
		"max_ticks = -1\n",
		"memory_size = \"big\"\n",
		"memory_size = \n",
		"[equates]\nORIGIN = 64\n",
	}

	for _, text := range table {
		_, err := ParseConfig(text)
		assert.Error(err, text)
	}
}

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "regvm.toml")
	assert.NoError(os.WriteFile(path, []byte(testConfig), 0o644))

	cfg, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(uint64(4096), cfg.MemorySize)
	assert.Equal("64", cfg.Equates["ORIGIN"])

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)
}

func TestConfigEmulator(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ParseConfig(testConfig)
	assert.NoError(err)
	cfg.Verbose = false

	emu := NewEmulator(cfg)
	assert.Equal(4096, len(emu.Cpu.Memory))
	assert.Equal(1000, emu.MaxTicks)

	doRun(emu, []string{
		"move byte NAME ORIGIN",
		"move a NAME",
		"halt",
	}, t)

	assert.Equal(uint64(64), emu.Cpu.Register[cpu.REG_A])
}
