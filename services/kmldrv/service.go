// Package kmldrv runs two game agents against each other behind a simulated
// interrupt bottom half: a periodic timer checks the board and schedules a
// tasklet, the tasklet hands moves and renders to workqueues, and rendered
// frames stream to whoever holds the device open.
package kmldrv

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vax-r/KMLdrv/internal/config"
	"github.com/vax-r/KMLdrv/internal/irq"
	"github.com/vax-r/KMLdrv/internal/loadavg"
	"github.com/vax-r/KMLdrv/internal/logger"
	"github.com/vax-r/KMLdrv/internal/workqueue"
	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

type Service struct {
	log   *logger.Logger
	delay time.Duration

	attr   Attr
	state  *state
	rx     *rx
	agents *agents
	load   loadavg.Avg

	timer   *irq.Timer
	tasklet *irq.Tasklet
	wq      *workqueue.Queue // ordered: moves and renders
	loadWQ  *workqueue.Queue

	moveWork [2]*workqueue.Work // by mark index
	moveGen  [2]atomic.Uint64   // board generation each move work was queued for
	drawWork *workqueue.Work
	loadWork *workqueue.Work
	drawBuf  [FrameSize]byte

	// lifeMu serializes attach and detach.
	lifeMu       sync.Mutex
	openCnt      atomic.Int32
	closed       atomic.Bool
	resetPending atomic.Bool

	moves atomic.Uint64
	games atomic.Uint64
	wins  [2]atomic.Uint64
	draws atomic.Uint64
}

// New builds every piece of the pipeline. The timer stays disarmed until
// the first Open. On error whatever was already built is torn down again.
func New(cfg config.Config, log *logger.Logger) (s *Service, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s = &Service{
		log:   log,
		delay: cfg.Delay(),
	}
	s.attr.Set(Flags{
		Display: cfg.Flags.Display,
		Resume:  cfg.Flags.Resume,
		End:     cfg.Flags.End,
	})

	var undo []func()
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
			s = nil
		}
	}()

	if s.rx, err = newRx(FifoSize, log.With("component", "rx")); err != nil {
		return nil, err
	}
	undo = append(undo, s.rx.close)

	onWorkPanic := func(w *workqueue.Work, v any) {
		s.log.Error("work panicked", "work", w.Name(), "panic", v)
	}

	if s.wq, err = workqueue.New("kmldrvd", workqueue.Config{MaxActive: 1, OnPanic: onWorkPanic}); err != nil {
		return nil, fmt.Errorf("create workqueue: %w", err)
	}
	undo = append(undo, func() { _ = s.wq.Destroy() })

	if s.loadWQ, err = workqueue.New("kmldrv_load", workqueue.Config{MaxActive: cfg.Workers, OnPanic: onWorkPanic}); err != nil {
		return nil, fmt.Errorf("create load workqueue: %w", err)
	}
	undo = append(undo, func() { _ = s.loadWQ.Destroy() })

	if s.state, err = newState(); err != nil {
		return nil, fmt.Errorf("allocate board: %w", err)
	}

	if s.agents, err = newAgents(cfg); err != nil {
		return nil, err
	}

	for _, mark := range []tictactoe.Player{tictactoe.P1, tictactoe.P2} {
		s.moveWork[mark.Idx()] = workqueue.NewWork("move_"+mark.Mark(), s.moveFunc(mark))
	}
	s.drawWork = workqueue.NewWork("draw", s.drawBoard)
	s.loadWork = workqueue.NewWork("load", s.calcLoad)

	s.tasklet = irq.NewTasklet(s.gameTasklet, func(v any) {
		s.log.Error("tasklet panicked", "panic", v)
	})
	undo = append(undo, s.tasklet.Kill)

	s.timer = irq.NewTimer(s.timerHandler, func(v any) {
		s.log.Error("timer handler panicked", "panic", v)
	})

	s.log.Info("kmldrv loaded",
		"delay", s.delay,
		"agent_o", s.agents.strategy(tictactoe.P2).String(),
		"agent_x", s.agents.strategy(tictactoe.P1).String(),
		"flags", s.attr.Get().String(),
	)

	return s, nil
}

// Close stops the pipeline for good. Open files keep working only in the
// sense that reads return ErrClosed.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.timer.Shutdown()
	s.tasklet.Kill()

	err := errors.Join(s.wq.Destroy(), s.loadWQ.Destroy())
	s.rx.close()

	s.log.Info("kmldrv unloaded", "games", s.games.Load())
	return err
}

func (s *Service) Flags() Flags {
	return s.attr.Get()
}

func (s *Service) SetFlags(f Flags) {
	s.attr.Set(f)
	s.log.Info("flags updated", "flags", f.String())
}

type Stats struct {
	Consumers     int32      `json:"consumers"`
	Armed         bool       `json:"armed"`
	Flags         string     `json:"flags"`
	Turn          string     `json:"turn"`
	Outcome       string     `json:"outcome"`
	Moves         uint64     `json:"moves"`
	Games         uint64     `json:"games"`
	WinsO         uint64     `json:"wins_o"`
	WinsX         uint64     `json:"wins_x"`
	Draws         uint64     `json:"draws"`
	Queued        int        `json:"queued_bytes"`
	PushedFrames  uint64     `json:"pushed_frames"`
	DroppedFrames uint64     `json:"dropped_frames"`
	DroppedBytes  uint64     `json:"dropped_bytes"`
	LoadAvg       [3]float64 `json:"load_avg"`
	Board         string     `json:"board"`
}

func (s *Service) Stats() Stats {
	snap := s.state.snapshot()
	return Stats{
		Consumers:     s.openCnt.Load(),
		Armed:         s.timer.Pending(),
		Flags:         s.attr.Get().String(),
		Turn:          snap.turn.Mark(),
		Outcome:       snap.outcome().String(),
		Moves:         s.moves.Load(),
		Games:         s.games.Load(),
		WinsO:         s.wins[tictactoe.P2.Idx()].Load(),
		WinsX:         s.wins[tictactoe.P1.Idx()].Load(),
		Draws:         s.draws.Load(),
		Queued:        s.rx.len(),
		PushedFrames:  s.rx.pushedFrames.Load(),
		DroppedFrames: s.rx.droppedFrames.Load(),
		DroppedBytes:  s.rx.droppedBytes.Load(),
		LoadAvg:       loadavg.Float(s.load.Load()),
		Board:         string(tictactoe.AppendFrame(nil, snap.cells, BoardSize)),
	}
}
