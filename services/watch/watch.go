package watch

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vax-r/KMLdrv/internal/config"
	"github.com/vax-r/KMLdrv/internal/logger"
	"github.com/vax-r/KMLdrv/services/kmldrv"
	"github.com/vax-r/KMLdrv/services/watch/board"
	"github.com/vax-r/KMLdrv/services/watch/settings"
)

type Service struct {
	cfg config.Config
	log *logger.Logger
}

func New(cfg config.Config, log *logger.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log,
	}
}

// Configure lets the user pick agents and tick delay before the run. It
// reports false when the menu was dismissed.
func (s *Service) Configure() (bool, error) {
	settingsModel := settings.InitialModel(header(), s.cfg)
	p := tea.NewProgram(settingsModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return false, fmt.Errorf("settings: %w", err)
	}

	if settingsModel.Canceled {
		return false, nil
	}

	s.cfg = settingsModel.GetConfig()
	return true, nil
}

// Play loads the device, attaches to its frame stream and shows it until
// the user quits.
func (s *Service) Play(ctx context.Context) error {
	drv, err := kmldrv.New(s.cfg, s.log)
	if err != nil {
		return err
	}
	defer drv.Close()

	f, err := drv.Open(false)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	boardModel := board.InitialModel(header(), drv)
	p := tea.NewProgram(boardModel, tea.WithAltScreen(), tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		err := boardModel.Listen(ctx, f)
		if err != nil {
			p.Quit()
		}
		errc <- err
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}

	cancel()
	return <-errc
}

var (
	headerStyle1 = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#4204b5ff", Dark: "#4204b5ff"}).Render
	headerStyle2 = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#19b504ff", Dark: "#19b504ff"}).Render
	headerStyle3 = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#b55404ff", Dark: "#b55404ff"}).Render
)

func header() string {
	return fmt.Sprintf(
		"%s %s %s %s\n\n",
		headerStyle2("---"),
		headerStyle1("KML"),
		headerStyle3("drv"),
		headerStyle2("---"),
	)
}
