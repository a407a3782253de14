package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Delay())
	assert.True(t, cfg.Flags.Display)
	assert.True(t, cfg.Flags.Resume)
	assert.False(t, cfg.Flags.End)
	assert.Equal(t, StrategyMCTS, cfg.Agents.O)
	assert.Equal(t, StrategyNegamax, cfg.Agents.X)
}

func TestLoad_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmldrv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
delay_ms: 250
flags:
  display: false
  end: true
agents:
  o: negamax
mcts:
  think_time_ms: 10
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Delay())
	assert.False(t, cfg.Flags.Display)
	assert.True(t, cfg.Flags.Resume, "unset keys keep their default")
	assert.True(t, cfg.Flags.End)
	assert.Equal(t, StrategyNegamax, cfg.Agents.O)
	assert.Equal(t, StrategyNegamax, cfg.Agents.X)
	assert.Equal(t, 10*time.Millisecond, cfg.MCTSThinkTime())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"delay":    "delay_ms: 0",
		"workers":  "workers: -1",
		"strategy": "agents: {x: alphazero}",
		"depth":    "negamax: {depth: 0}",
		"mcts":     "mcts: {threads: 0}",
		"format":   "log: {format: xml}",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Parse([]byte("delay_ms: [nope"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
