package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
	"github.com/vax-r/KMLdrv/services/kmldrv"
)

type frameReader interface {
	Read(ctx context.Context, p []byte) (int, error)
}

type controller interface {
	Flags() kmldrv.Flags
	SetFlags(kmldrv.Flags)
	Stats() kmldrv.Stats
}

const statsInterval = 250 * time.Millisecond

type model struct {
	ctrl    controller
	sub     chan []byte
	spinner spinner.Model
	header  string

	cells  []tictactoe.Player
	frames int
	flags  kmldrv.Flags
	stats  kmldrv.Stats
	err    error
}

var (
	p1Style         = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#007e50ff", Dark: "#6afd76ff"}).Render
	p2Style         = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0003adff", Dark: "#5f61fcff"}).Render
	offStyle        = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#960000ff", Dark: "#fc7e7eff"}).Render
	winningRowStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#bb0000ff", Dark: "#df1010ff"}).Render
	bracketStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#414141ff", Dark: "#8f8f8fff"}).Render
	statStyle1      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8a880fff", Dark: "#ddda1dff"}).Render
	statStyle2      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#138a0fff", Dark: "#1ddd37ff"}).Render
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#414141ff", Dark: "#8f8f8fff"}).Render
)

func InitialModel(header string, ctrl controller) *model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &model{
		ctrl:    ctrl,
		sub:     make(chan []byte, 1),
		spinner: s,
		header:  header,
		flags:   ctrl.Flags(),
		stats:   ctrl.Stats(),
	}
}

// Listen reads frames from r until ctx is done or r fails, handing the
// latest complete frame to the model. Older undelivered frames are dropped.
func (m *model) Listen(ctx context.Context, r frameReader) error {
	buf := make([]byte, kmldrv.FifoSize)
	var pending []byte

	for {
		n, err := r.Read(ctx, buf)
		if err != nil {
			if errors.Is(err, kmldrv.ErrInterrupted) || errors.Is(err, kmldrv.ErrClosed) {
				return nil
			}
			return err
		}

		var frames [][]byte
		frames, pending = splitFrames(append(pending, buf[:n]...))
		if len(frames) == 0 {
			continue
		}

		latest := frames[len(frames)-1]
		select {
		case m.sub <- latest:
		default:
			select {
			case <-m.sub:
			default:
			}
			m.sub <- latest
		}
	}
}

type frameMsg []byte

type statsMsg time.Time

func waitForFrame(sub chan []byte) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-sub)
	}
}

func tickStats() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg {
		return statsMsg(t)
	})
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForFrame(m.sub), tickStats())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.cells = parseFrame(msg)
		m.frames++
		return m, waitForFrame(m.sub)

	case statsMsg:
		m.stats = m.ctrl.Stats()
		m.flags = m.ctrl.Flags()
		return m, tickStats()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "d":
			m.flags.Display = !m.flags.Display
		case "p", " ":
			m.flags.Resume = !m.flags.Resume
		case "e":
			m.flags.End = !m.flags.End
		default:
			return m, nil
		}

		m.ctrl.SetFlags(m.flags)
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func onOff(name string, on bool) string {
	if on {
		return statStyle2(name + " on")
	}
	return offStyle(name + " off")
}

func markStyle(p tictactoe.Player) string {
	switch p {
	case tictactoe.P1:
		return p1Style(p.Mark())
	case tictactoe.P2:
		return p2Style(p.Mark())
	}
	return " "
}

func (m *model) View() string {
	s := strings.Builder{}
	s.WriteString(m.header)

	outcome := tictactoe.Outcome{}
	if m.cells != nil {
		outcome = tictactoe.Evaluate(m.cells, kmldrv.BoardSize, kmldrv.Goal)
	}

	switch {
	case m.cells == nil:
		s.WriteString("Waiting for the first frame " + m.spinner.View() + "\n")
	case outcome.Concluded():
		s.WriteString("Game over: " + statStyle1(outcome.String()) + "\n")
	default:
		s.WriteString("Turn: " + markStyle(m.turn()))
		if m.flags.Resume {
			s.WriteString(" " + m.spinner.View())
		} else {
			s.WriteString(" " + offStyle("paused"))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")

	for i := range kmldrv.NGrids {
		p := tictactoe.Empty
		if m.cells != nil {
			p = m.cells[i]
		}

		bStyle := bracketStyle
		if outcome.Result == tictactoe.Win && p == outcome.Winner {
			bStyle = winningRowStyle
		}

		s.WriteString(bStyle("[") + markStyle(p) + bStyle("]"))
		if (i+1)%kmldrv.BoardSize == 0 {
			s.WriteString("\n")
		}
	}

	st := m.stats
	fmt.Fprintf(&s, "\n%s  %s  %s\n",
		onOff("display", m.flags.Display),
		onOff("resume", m.flags.Resume),
		onOff("end", m.flags.End),
	)
	fmt.Fprintf(&s, "Games: %s  O wins: %s  X wins: %s  Draws: %s\n",
		statStyle1(fmt.Sprint(st.Games)),
		p2Style(fmt.Sprint(st.WinsO)),
		p1Style(fmt.Sprint(st.WinsX)),
		statStyle1(fmt.Sprint(st.Draws)),
	)
	fmt.Fprintf(&s, "Frames: %s  Dropped: %s  Search load: %s\n",
		statStyle2(fmt.Sprint(m.frames)),
		statStyle1(fmt.Sprint(st.DroppedFrames)),
		statStyle2(fmt.Sprintf("%.2f %.2f %.2f", st.LoadAvg[0], st.LoadAvg[1], st.LoadAvg[2])),
	)

	s.WriteString("\n" + helpStyle("d display • p pause • e end • q quit") + "\n")

	return s.String()
}

// turn infers whose move is next from the mark counts; O moves first.
func (m *model) turn() tictactoe.Player {
	var o, x int
	for _, c := range m.cells {
		switch c {
		case tictactoe.P2:
			o++
		case tictactoe.P1:
			x++
		}
	}
	if o > x {
		return tictactoe.P1
	}
	return tictactoe.P2
}
