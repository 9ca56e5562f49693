package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"spindle/programs"
	"spindle/threads"
)

// Config selects what the system runs and how output is shown.
type Config struct {
	MaxThreads int           `toml:"max_threads"`
	Trace      bool          `toml:"trace"`
	Demo       string        `toml:"demo"`
	Script     string        `toml:"script"`
	Console    ConsoleConfig `toml:"console"`
}

type ConsoleConfig struct {
	Enabled bool `toml:"enabled"`
	Hz      int  `toml:"hz"`
}

// DefaultConfig runs the pingpong demo with the console on.
func DefaultConfig() Config {
	return Config{
		MaxThreads: threads.DefaultMaxThreads,
		Demo:       "pingpong",
		Console:    ConsoleConfig{Enabled: true, Hz: 60},
	}
}

// LoadConfig reads a TOML file over the defaults. Keys the file omits keep
// their default values, except that setting script alone clears the default
// demo. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// A file that picks a script without naming a demo drops the default demo.
	var set programKeys
	if err := toml.Unmarshal(data, &set); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if set.Script != nil && *set.Script != "" && set.Demo == nil {
		cfg.Demo = ""
	}
	return cfg, nil
}

// programKeys records which program keys a config file sets.
type programKeys struct {
	Demo   *string `toml:"demo"`
	Script *string `toml:"script"`
}

var (
	ErrDemoAndScript = errors.New("demo and script are mutually exclusive")
	ErrUnknownDemo   = errors.New("unknown demo")
)

// Validate reports configuration that New cannot run.
func (c Config) Validate() error {
	if c.MaxThreads < 2 {
		return fmt.Errorf("max_threads must be at least 2, got %d", c.MaxThreads)
	}
	if c.Demo != "" && c.Script != "" {
		return ErrDemoAndScript
	}
	if c.Demo == "" && c.Script == "" {
		return errors.New("nothing to run: set demo or script")
	}
	if c.Demo != "" {
		if _, ok := programs.Lookup(c.Demo); !ok {
			return fmt.Errorf("%w %q (have %v)", ErrUnknownDemo, c.Demo, programs.Names())
		}
	}
	if c.Console.Hz < 0 {
		return fmt.Errorf("console hz must not be negative, got %d", c.Console.Hz)
	}
	return nil
}
