package negamax

import (
	"context"
	"math"
	"time"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
	"github.com/vax-r/KMLdrv/pkg/zobrist"
)

const (
	winScore   = 1 << 20
	tableBits  = 16
	checkEvery = 1024
)

// lineWeights scores a window holding only one player's stones, indexed by
// stone count.
var lineWeights = []int{0, 1, 8, 64, 512, 4096, 32768}

type LastMoveStats struct {
	ThinkTime time.Duration
	Nodes     int
	Depth     int
	BestMove  int
	Score     int
	Aborted   bool
}

type Client struct {
	depth int
	table *zobrist.Table

	nodes   int
	aborted bool

	lastMoveStats *LastMoveStats
}

func New(depth int) *Client {
	return &Client{
		depth: depth,
		table: zobrist.NewTable(tableBits),
	}
}

func (c *Client) UpdateDepth(depth int) {
	c.depth = depth
}

func (c *Client) Stats() *LastMoveStats {
	return c.lastMoveStats
}

// GetNextMove searches to the configured depth with alpha-beta pruning. It
// returns -1 if the board has no legal move. A Client must not be used by
// more than one goroutine at a time.
func (c *Client) GetNextMove(ctx context.Context, rootBoard *tictactoe.Board, player tictactoe.Player) int {
	c.lastMoveStats = nil

	moves := rootBoard.LegalMoves()
	if len(moves) == 0 {
		return -1
	}

	board := rootBoard.Clone()
	if move, ok := board.ForcedMove(player); ok {
		return move
	}

	t := time.Now()
	c.nodes = 0
	c.aborted = false
	c.table.Clear()

	depth := max(c.depth, 1)
	alpha, beta := math.MinInt+1, math.MaxInt
	bestMove, bestScore := moves[0], math.MinInt+1

	for _, move := range c.order(board, moves, -1) {
		lastMove := board.LastMove
		board.ApplyMove(move, player)
		score := -c.search(ctx, board, depth-1, -beta, -alpha, -player)
		board.UndoMove(move)
		board.LastMove = lastMove

		if score > bestScore {
			bestScore = score
			bestMove = move
		}

		alpha = max(alpha, score)
		if c.aborted {
			break
		}
	}

	c.lastMoveStats = &LastMoveStats{
		ThinkTime: time.Since(t),
		Nodes:     c.nodes,
		Depth:     depth,
		BestMove:  bestMove,
		Score:     bestScore,
		Aborted:   c.aborted,
	}

	return bestMove
}

func (c *Client) search(ctx context.Context, board *tictactoe.Board, depth, alpha, beta int, player tictactoe.Player) int {
	c.nodes++
	if c.nodes%checkEvery == 0 && ctx.Err() != nil {
		c.aborted = true
	}

	// the opponent just moved, so only they can have won
	if board.CheckWinner() == -player {
		return -(winScore + depth)
	}

	if !board.AnyLegalMoves() {
		return 0
	}

	if depth <= 0 || c.aborted {
		return evaluate(board, player)
	}

	origAlpha := alpha
	ttMove := -1
	if e, ok := c.table.Get(board.Hash); ok {
		ttMove = e.Move
		if e.Depth >= depth {
			switch e.Bound {
			case zobrist.Exact:
				return e.Score
			case zobrist.Lower:
				alpha = max(alpha, e.Score)
			case zobrist.Upper:
				beta = min(beta, e.Score)
			}

			if alpha >= beta {
				return e.Score
			}
		}
	}

	best, bestMove := math.MinInt+1, -1
	for _, move := range c.order(board, board.LegalMoves(), ttMove) {
		lastMove := board.LastMove
		board.ApplyMove(move, player)
		score := -c.search(ctx, board, depth-1, -beta, -alpha, -player)
		board.UndoMove(move)
		board.LastMove = lastMove

		if score > best {
			best = score
			bestMove = move
		}

		alpha = max(alpha, score)
		if alpha >= beta {
			break
		}
	}

	bound := zobrist.Exact
	switch {
	case best <= origAlpha:
		bound = zobrist.Upper
	case best >= beta:
		bound = zobrist.Lower
	}

	if !c.aborted {
		c.table.Put(zobrist.Entry{
			Hash:  board.Hash,
			Depth: depth,
			Score: best,
			Move:  bestMove,
			Bound: bound,
		})
	}

	return best
}

// order puts the table move first, then tactical cells, then the rest by
// distance from the center.
func (c *Client) order(board *tictactoe.Board, moves []int, first int) []int {
	ordered := make([]int, 0, len(moves))
	if first >= 0 && first < len(board.Cells) && board.Cells[first] == tictactoe.Empty {
		ordered = append(ordered, first)
	}

	var rest []int
	for _, m := range moves {
		if m == first {
			continue
		}

		if board.TacticalStone(m) {
			ordered = append(ordered, m)
			continue
		}

		rest = append(rest, m)
	}

	center := float64(board.N-1) / 2
	dist := func(m int) float64 {
		x, y := board.Coords(m)
		return math.Abs(float64(x)-center) + math.Abs(float64(y)-center)
	}

	// insertion sort, boards are tiny
	for i := 1; i < len(rest); i++ {
		for j := i; j > 0 && dist(rest[j]) < dist(rest[j-1]); j-- {
			rest[j], rest[j-1] = rest[j-1], rest[j]
		}
	}

	return append(ordered, rest...)
}

var directions = [][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// evaluate scores every K-long window from player's point of view.
func evaluate(board *tictactoe.Board, player tictactoe.Player) int {
	n, k := board.N, board.K
	score := 0

	for y := range n {
		for x := range n {
			for _, d := range directions {
				ex, ey := x+d[0]*(k-1), y+d[1]*(k-1)
				if ex < 0 || ey < 0 || ex >= n || ey >= n {
					continue
				}

				mine, theirs := 0, 0
				for i := range k {
					switch board.Cells[(y+d[1]*i)*n+x+d[0]*i] {
					case player:
						mine++
					case -player:
						theirs++
					}
				}

				switch {
				case theirs == 0:
					score += lineWeights[min(mine, len(lineWeights)-1)]
				case mine == 0:
					score -= lineWeights[min(theirs, len(lineWeights)-1)]
				}
			}
		}
	}

	return score
}
