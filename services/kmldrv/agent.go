package kmldrv

import (
	"context"
	"fmt"

	"github.com/vax-r/KMLdrv/internal/config"
	"github.com/vax-r/KMLdrv/pkg/mcts"
	"github.com/vax-r/KMLdrv/pkg/negamax"
	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

type Strategy uint8

const (
	StrategyMCTS Strategy = iota
	StrategyNegamax
)

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case config.StrategyMCTS:
		return StrategyMCTS, nil
	case config.StrategyNegamax:
		return StrategyNegamax, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

func (s Strategy) String() string {
	switch s {
	case StrategyMCTS:
		return config.StrategyMCTS
	case StrategyNegamax:
		return config.StrategyNegamax
	}
	return "unknown"
}

type botPlayer interface {
	GetNextMove(context.Context, *tictactoe.Board, tictactoe.Player) int
}

// agents owns one search client per strategy. Only the ordered queue calls
// into it, so moves are never computed concurrently.
type agents struct {
	byMark     [2]Strategy
	mcts       *mcts.Client
	negamax    *negamax.Client
	iterations int
}

func newAgents(cfg config.Config) (*agents, error) {
	o, err := ParseStrategy(cfg.Agents.O)
	if err != nil {
		return nil, fmt.Errorf("agent O: %w", err)
	}
	x, err := ParseStrategy(cfg.Agents.X)
	if err != nil {
		return nil, fmt.Errorf("agent X: %w", err)
	}

	a := &agents{
		mcts:       mcts.New(cfg.MCTS.Threads, cfg.MCTS.Iterations),
		negamax:    negamax.New(cfg.Negamax.Depth),
		iterations: cfg.MCTS.Iterations,
	}
	a.byMark[tictactoe.P2.Idx()] = o
	a.byMark[tictactoe.P1.Idx()] = x
	a.mcts.UpdateThinkTime(cfg.MCTSThinkTime())

	return a, nil
}

func (a *agents) strategy(mark tictactoe.Player) Strategy {
	return a.byMark[mark.Idx()]
}

func (a *agents) bot(mark tictactoe.Player, board *tictactoe.Board) botPlayer {
	if a.strategy(mark) == StrategyNegamax {
		return a.negamax
	}

	a.mcts.UpdateExplorationParam(mcts.ExplorationParameter(board.N, board.K, board.Turn))
	a.mcts.UpdateIterations(min(a.iterations, mcts.Iterations(board.N, board.K, board.Turn)))
	return a.mcts
}

// selectMove picks a cell for mark on a private copy of board. It reports
// false when the board has no legal move.
func (a *agents) selectMove(ctx context.Context, mark tictactoe.Player, board *tictactoe.Board) (int, bool) {
	move := a.bot(mark, board).GetNextMove(ctx, board.Clone(), mark)
	return move, move >= 0
}

// activeNodes is the load sample: search tree nodes currently allocated.
func (a *agents) activeNodes() uint64 {
	return uint64(max(a.mcts.ActiveNodes(), 0))
}

// searchStats describes the last search for mark as log attributes.
func (a *agents) searchStats(mark tictactoe.Player) []any {
	if a.strategy(mark) == StrategyNegamax {
		if st := a.negamax.Stats(); st != nil {
			return []any{"nodes", st.Nodes, "depth", st.Depth, "score", st.Score, "aborted", st.Aborted}
		}
		return nil
	}

	if st := a.mcts.Stats(); st != nil {
		return []any{"iterations", st.NumIterations, "visits", st.MoveVisits}
	}
	return nil
}
