package settings

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/vax-r/KMLdrv/internal/config"
)

func TestSettings_pickAll(t *testing.T) {
	m := InitialModel("", config.Default())

	// O: default is mcts, move to negamax.
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	// X: keep the default.
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	// Delay: default 100ms, one step up is 50ms.
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, cmd)
	assert.False(t, m.Canceled)

	cfg := m.GetConfig()
	assert.Equal(t, config.StrategyNegamax, cfg.Agents.O)
	assert.Equal(t, config.StrategyNegamax, cfg.Agents.X)
	assert.Equal(t, 50, cfg.DelayMS)
	assert.Empty(t, m.View())
}

func TestSettings_cancel(t *testing.T) {
	m := InitialModel("", config.Default())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.Canceled)
	assert.Equal(t, config.Default().Agents, m.GetConfig().Agents)
}
