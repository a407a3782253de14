package kmldrv

import (
	"time"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

// timerHandler is the hard-irq tier. It reads the published snapshot,
// never the board, and takes no lock it could wait on.
func (s *Service) timerHandler() {
	start := time.Now()
	log := s.log.With("tier", "hardirq")

	flags := s.attr.Get()

	// A conclusion from an earlier tick is still waiting for its reset.
	if s.resetPending.Load() {
		if !s.tryReset() {
			log.Debug("state busy, reset deferred")
			s.rearm()
			return
		}
	}

	snap := s.state.snapshot()
	outcome := snap.outcome()

	if !outcome.Concluded() {
		if flags.Resume {
			s.tasklet.Schedule()
		}
		s.rearm()
		log.Debug("tick", "elapsed", time.Since(start))
		return
	}

	s.recordOutcome(outcome)
	if flags.Display {
		var buf [FrameSize]byte
		s.rx.push(tictactoe.AppendFrame(buf[:0], snap.cells, BoardSize))
	}
	log.Info("game over", "result", outcome.String(), "moves", snap.moves)

	if flags.End {
		log.Info("end flag set, timer left disarmed")
		return
	}

	s.resetPending.Store(true)
	s.tryReset()
	s.rearm()
	log.Debug("tick", "elapsed", time.Since(start))
}

// tryReset clears the board unless a worker holds the state lock.
func (s *Service) tryReset() bool {
	if !s.state.mu.TryLock() {
		return false
	}
	s.state.resetLocked()
	s.state.mu.Unlock()

	s.resetPending.Store(false)
	return true
}

func (s *Service) rearm() {
	if err := s.timer.Mod(s.delay); err != nil {
		s.log.Debug("timer not re-armed", "err", err)
	}
}

func (s *Service) recordOutcome(o tictactoe.Outcome) {
	s.games.Add(1)
	switch o.Result {
	case tictactoe.Win:
		if i := o.Winner.Idx(); i >= 0 {
			s.wins[i].Add(1)
		}
	case tictactoe.Draw:
		s.draws.Add(1)
	}
}
