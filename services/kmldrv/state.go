package kmldrv

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

const (
	BoardSize = 4
	Goal      = 3
	NGrids    = BoardSize * BoardSize

	// FrameSize is the length of every rendered frame.
	FrameSize = 2 + 4*BoardSize*BoardSize
)

// First to move after every reset.
const firstMark = tictactoe.P2

// snapshot is an immutable copy of the board, published after every
// mutation for the tiers that must not take the state lock.
type snapshot struct {
	cells []tictactoe.Player
	turn  tictactoe.Player
	moves int
}

func (s *snapshot) outcome() tictactoe.Outcome {
	return tictactoe.Evaluate(s.cells, BoardSize, Goal)
}

type state struct {
	// mu is the state lock: board cells and turn changes happen under it.
	mu    sync.Mutex
	board *tictactoe.Board

	turn    atomic.Int32
	pending atomic.Bool
	snap    atomic.Pointer[snapshot]

	// gen counts resets; a move dispatched under an older gen is dropped.
	gen atomic.Uint64
}

func newState() (*state, error) {
	g, err := tictactoe.New(BoardSize, Goal)
	if err != nil {
		return nil, err
	}

	s := &state{board: g.Board}
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	return s, nil
}

func (s *state) resetLocked() {
	s.board.Reset()
	s.gen.Add(1)
	s.turn.Store(int32(firstMark))
	s.publishLocked()
	s.pending.Store(true)
}

func (s *state) publishLocked() {
	s.snap.Store(&snapshot{
		cells: slices.Clone(s.board.Cells),
		turn:  s.currentTurn(),
		moves: s.board.Turn,
	})
}

func (s *state) snapshot() *snapshot {
	return s.snap.Load()
}

func (s *state) generation() uint64 {
	return s.gen.Load()
}

func (s *state) currentTurn() tictactoe.Player {
	return tictactoe.Player(s.turn.Load())
}

// takePending clears move_pending, reporting whether it was set. Exactly one
// caller wins per completed move.
func (s *state) takePending() bool {
	return s.pending.CompareAndSwap(true, false)
}

// completeMoveLocked flips the turn away from mark and re-arms move_pending
// for the next dispatch.
func (s *state) completeMoveLocked(mark tictactoe.Player) {
	s.turn.Store(int32(-mark))
	s.publishLocked()
	s.pending.Store(true)
}
