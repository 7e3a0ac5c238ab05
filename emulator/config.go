package emulator

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/regvm/cpu"
)

// Config is the emulator configuration, usually loaded from a TOML file.
type Config struct {
	MemorySize uint64            `toml:"memory_size"` // Memory size in bytes.
	MaxTicks   int               `toml:"max_ticks"`   // Tick budget, 0 for unlimited.
	Verbose    bool              `toml:"verbose"`     // Verbose logging.
	Equates    map[string]string `toml:"equates"`     // Assembler predefines.
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		MemorySize: cpu.MEMORY_SIZE,
	}
}

// ParseConfig decodes a TOML configuration over the defaults.
func ParseConfig(text string) (cfg Config, err error) {
	cfg = DefaultConfig()
	if _, err = toml.Decode(text, &cfg); err != nil {
		err = fmt.Errorf("config: %w", err)
		return
	}
	err = cfg.check()
	return
}

// LoadConfig decodes a TOML configuration file over the defaults.
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()
	if _, err = toml.DecodeFile(path, &cfg); err != nil {
		err = fmt.Errorf("config %s: %w", path, err)
		return
	}
	err = cfg.check()
	return
}

func (cfg *Config) check() (err error) {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = cpu.MEMORY_SIZE
	}
	if cfg.MaxTicks < 0 {
		err = fmt.Errorf("config: max_ticks %d is negative", cfg.MaxTicks)
	}
	return
}
