package settings

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vax-r/KMLdrv/internal/config"
)

var (
	listSelectorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).Render
)

var strategyChoices = []string{config.StrategyMCTS, config.StrategyNegamax}
var delayChoices = []int{20, 50, 100, 250, 500, 1000}

type choiceLevel int

const (
	choiceLevelO choiceLevel = iota
	choiceLevelX
	choiceLevelDelay
)

type model struct {
	cursor      int
	choiceLevel choiceLevel
	header      string

	cfg config.Config

	clear    bool
	Canceled bool
}

// GetConfig returns cfg with the chosen agents and tick delay.
func (m model) GetConfig() config.Config {
	return m.cfg
}

func InitialModel(header string, cfg config.Config) *model {
	m := &model{
		header: header,
		cfg:    cfg,
	}
	m.cursor = m.defaultCursor()
	return m
}

func (m *model) choices() []string {
	if m.choiceLevel == choiceLevelDelay {
		out := make([]string, len(delayChoices))
		for i, d := range delayChoices {
			out[i] = fmt.Sprintf("%dms between ticks", d)
		}
		return out
	}

	return strategyChoices
}

func (m *model) defaultCursor() int {
	var i int
	switch m.choiceLevel {
	case choiceLevelO:
		i = slices.Index(strategyChoices, m.cfg.Agents.O)
	case choiceLevelX:
		i = slices.Index(strategyChoices, m.cfg.Agents.X)
	case choiceLevelDelay:
		i = slices.Index(delayChoices, m.cfg.DelayMS)
	}
	return max(i, 0)
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	choices := m.choices()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.clear = true
			m.Canceled = true
			return m, tea.Quit

		case "enter":
			switch m.choiceLevel {
			case choiceLevelO:
				m.cfg.Agents.O = strategyChoices[m.cursor]
			case choiceLevelX:
				m.cfg.Agents.X = strategyChoices[m.cursor]
			case choiceLevelDelay:
				m.cfg.DelayMS = delayChoices[m.cursor]
			}

			m.choiceLevel++
			if m.choiceLevel > choiceLevelDelay {
				m.clear = true
				return m, tea.Quit
			}

			m.cursor = m.defaultCursor()
			return m, nil

		case "down", "j":
			m.cursor++
			if m.cursor >= len(choices) {
				m.cursor = 0
			}

		case "up", "k":
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(choices) - 1
			}
		}
	}

	return m, nil
}

func (m *model) View() string {
	if m.clear {
		return ""
	}

	s := strings.Builder{}
	s.WriteString(m.header)

	switch m.choiceLevel {
	case choiceLevelO:
		s.WriteString("Choose agent for O (moves first):\n")
	case choiceLevelX:
		s.WriteString("Choose agent for X:\n")
	case choiceLevelDelay:
		s.WriteString("Choose tick delay:\n")
	}

	for i, v := range m.choices() {
		if m.cursor == i {
			s.WriteString(listSelectorStyle("(•) "))
		} else {
			s.WriteString(listSelectorStyle("( ) "))
		}

		s.WriteString(v)
		s.WriteString("\n")
	}

	return s.String()
}
