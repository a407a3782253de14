package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

// Config is the process-wide configuration, fixed at start.
type Config struct {
	DelayMS int    `yaml:"delay_ms"` // time between two timer ticks
	Listen  string `yaml:"listen"`
	Workers int    `yaml:"workers"` // load metric queue max active

	Log     LogConfig     `yaml:"log"`
	Flags   FlagsConfig   `yaml:"flags"`
	Agents  AgentsConfig  `yaml:"agents"`
	MCTS    MCTSConfig    `yaml:"mcts"`
	Negamax NegamaxConfig `yaml:"negamax"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// FlagsConfig holds the initial control-plane flags.
type FlagsConfig struct {
	Display bool `yaml:"display"`
	Resume  bool `yaml:"resume"`
	End     bool `yaml:"end"`
}

// AgentsConfig names the strategy playing each mark.
type AgentsConfig struct {
	O string `yaml:"o"`
	X string `yaml:"x"`
}

type MCTSConfig struct {
	Threads     int `yaml:"threads"`
	Iterations  int `yaml:"iterations"`
	ThinkTimeMS int `yaml:"think_time_ms"`
}

type NegamaxConfig struct {
	Depth int `yaml:"depth"`
}

const (
	StrategyMCTS    = "mcts"
	StrategyNegamax = "negamax"
)

func Default() Config {
	return Config{
		DelayMS: 100,
		Listen:  "127.0.0.1:3000",
		Workers: runtime.NumCPU(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Flags: FlagsConfig{
			Display: true,
			Resume:  true,
			End:     false,
		},
		Agents: AgentsConfig{
			O: StrategyMCTS,
			X: StrategyNegamax,
		},
		MCTS: MCTSConfig{
			Threads:     2,
			Iterations:  20_000,
			ThinkTimeMS: 50,
		},
		Negamax: NegamaxConfig{
			Depth: 5,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DelayMS <= 0 {
		return fmt.Errorf("%w: delay_ms must be positive, got %d", ErrInvalid, c.DelayMS)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, c.Workers)
	}

	for mark, s := range map[string]string{"o": c.Agents.O, "x": c.Agents.X} {
		if s != StrategyMCTS && s != StrategyNegamax {
			return fmt.Errorf("%w: agents.%s: unknown strategy %q", ErrInvalid, mark, s)
		}
	}

	if c.MCTS.Threads <= 0 || c.MCTS.Iterations <= 0 || c.MCTS.ThinkTimeMS <= 0 {
		return fmt.Errorf("%w: mcts threads, iterations and think_time_ms must be positive", ErrInvalid)
	}

	if c.Negamax.Depth <= 0 {
		return fmt.Errorf("%w: negamax.depth must be positive, got %d", ErrInvalid, c.Negamax.Depth)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}

	return nil
}

func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

func (c Config) MCTSThinkTime() time.Duration {
	return time.Duration(c.MCTS.ThinkTimeMS) * time.Millisecond
}
