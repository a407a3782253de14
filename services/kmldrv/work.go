package kmldrv

import (
	"context"
	"time"

	"github.com/vax-r/KMLdrv/internal/loadavg"
	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

func (s *Service) moveFunc(mark tictactoe.Player) func(context.Context) {
	return func(ctx context.Context) {
		s.computeMove(ctx, mark, s.moveGen[mark.Idx()].Load())
	}
}

// computeMove plays one move for mark while holding the state lock, then
// hands the turn to the other mark. gen is the board generation the move was
// dispatched for. A move for a reset board, for the other mark's turn or for
// a finished game is dropped without touching move_pending.
func (s *Service) computeMove(ctx context.Context, mark tictactoe.Player, gen uint64) {
	start := time.Now()
	log := s.log.With("tier", "worker", "work", "move", "mark", mark.Mark())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if gen != s.state.generation() || mark != s.state.currentTurn() {
		log.Debug("stale move dropped", "gen", gen, "turn", s.state.currentTurn().Mark())
		return
	}

	board := s.state.board
	if board.Outcome().Concluded() {
		// The next reset re-arms move_pending.
		return
	}

	move, ok := s.agents.selectMove(ctx, mark, board)
	if ok {
		if err := board.ApplyMove(move, mark); err != nil {
			log.Warn("move rejected", "cell", move, "err", err)
		} else {
			s.moves.Add(1)
		}
	}
	s.state.completeMoveLocked(mark)

	args := []any{
		"cell", move,
		"strategy", s.agents.strategy(mark).String(),
		"elapsed", time.Since(start),
	}
	log.Debug("move computed", append(args, s.agents.searchStats(mark)...)...)
}

// drawBoard renders the board into the delivery queue when display is on.
func (s *Service) drawBoard(context.Context) {
	if !s.attr.Get().Display {
		return
	}

	s.state.mu.Lock()
	frame := tictactoe.AppendFrame(s.drawBuf[:0], s.state.board.Cells, BoardSize)
	s.state.mu.Unlock()

	s.rx.push(frame)
}

// calcLoad folds the number of live search nodes into the load average.
func (s *Service) calcLoad(context.Context) {
	avg := s.load.Update(s.agents.activeNodes())
	s.log.Debug("search load", "avg", loadavg.Format(avg))
}
