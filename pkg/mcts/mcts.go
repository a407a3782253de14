// Package mcts picks moves by Monte Carlo tree search. Each worker grows its
// own tree from the same position; their root visit counts are summed to
// choose the move.
package mcts

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

type LastMoveStats struct {
	RealThinkTime   time.Duration
	ActualThinkTime time.Duration
	NumIterations   int
	BestMove        int
	MoveVisits      int
	MoveWins        float64
}

type Client struct {
	explorationParam float64
	threads          int
	iterations       int
	thinkTime        time.Duration

	// nodes held by searches in flight, sampled by load accounting
	activeNodes atomic.Int64

	lastMoveStats *LastMoveStats
}

func New(threads, iterationsPerThread int) *Client {
	return &Client{
		explorationParam: math.Sqrt2,
		threads:          max(threads, 1),
		iterations:       iterationsPerThread,
		thinkTime:        time.Second,
	}
}

func (c *Client) UpdateExplorationParam(ep float64) {
	c.explorationParam = ep
}

func (c *Client) UpdateThinkTime(t time.Duration) {
	c.thinkTime = t
}

func (c *Client) UpdateIterations(iters int) {
	c.iterations = iters
}

func (c *Client) Stats() *LastMoveStats {
	return c.lastMoveStats
}

// ActiveNodes is the number of tree nodes currently allocated by running
// searches. Safe to call concurrently with GetNextMove.
func (c *Client) ActiveNodes() int64 {
	return c.activeNodes.Load()
}

// GetNextMove returns -1 when board has no legal move. board is not
// modified. The Update* setters and Stats must not race with it.
func (c *Client) GetNextMove(ctx context.Context, board *tictactoe.Board, player tictactoe.Player) int {
	c.lastMoveStats = nil

	if !board.AnyLegalMoves() {
		return -1
	}

	if move, ok := board.ForcedMove(player); ok {
		return move
	}

	start := time.Now()
	deadline := start.Add(c.thinkTime)

	trees := make([]*tree, c.threads)
	var wg sync.WaitGroup
	for i := range trees {
		trees[i] = c.newTree(board, player)
		wg.Add(1)
		go func(t *tree) {
			defer wg.Done()
			t.grow(ctx, deadline, c.iterations)
		}(trees[i])
	}
	wg.Wait()

	stats := c.merge(trees)
	stats.RealThinkTime = time.Since(start)
	if stats.BestMove == -1 {
		// no iteration completed, e.g. ctx already done
		stats.BestMove = board.BiasedRandomMove()
	}
	c.lastMoveStats = stats

	for _, t := range trees {
		t.release()
	}

	return stats.BestMove
}

type moveTally struct {
	move   int
	visits int
	best   *node
}

// merge sums root child visits across trees. Ties go to the lower cell.
func (c *Client) merge(trees []*tree) *LastMoveStats {
	stats := &LastMoveStats{BestMove: -1}
	byMove := map[int]*moveTally{}

	for _, t := range trees {
		stats.NumIterations += t.iterations
		stats.ActualThinkTime += t.elapsed

		for _, child := range t.root.children {
			mt, ok := byMove[child.move]
			if !ok {
				mt = &moveTally{move: child.move, best: child}
				byMove[child.move] = mt
			}
			mt.visits += child.visits
			if child.visits > mt.best.visits {
				mt.best = child
			}
		}
	}

	if len(byMove) == 0 {
		return stats
	}

	tallies := make([]*moveTally, 0, len(byMove))
	for _, mt := range byMove {
		tallies = append(tallies, mt)
	}
	top := slices.MaxFunc(tallies, func(a, b *moveTally) int {
		if d := cmp.Compare(a.visits, b.visits); d != 0 {
			return d
		}
		return cmp.Compare(b.move, a.move)
	})

	stats.BestMove = top.move
	stats.MoveVisits = top.best.visits
	stats.MoveWins = top.best.wins
	return stats
}

// Iterations scales the per-worker budget with board size, goal and how far
// the game has progressed.
func Iterations(N, K, t int) int {
	cells := float64(N * N)
	remaining := max(cells-float64(t), 1)

	budget := float64(N*K*1000) * (1 + cells/remaining) * float64(K) / 3.0
	return int(budget)
}

// ExplorationParameter narrows exploration for short goals on wide boards and
// widens it again as the board fills.
func ExplorationParameter(N, K, turn int) float64 {
	cells := float64(N * N)
	remaining := max(cells-float64(turn), 1)

	return math.Sqrt2 * math.Sqrt(float64(K)/float64(N)) * math.Min(1, cells/remaining)
}
