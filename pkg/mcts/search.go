package mcts

import (
	"context"
	"time"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

// tree is one worker's search: its own root, its own board copy.
type tree struct {
	client *Client
	root   *node
	board  *tictactoe.Board
	player tictactoe.Player

	nodes      int64
	iterations int
	elapsed    time.Duration
}

func (c *Client) newTree(board *tictactoe.Board, player tictactoe.Player) *tree {
	t := &tree{
		client: c,
		board:  board.Clone(),
		player: player,
	}
	// the root stands for the position the opponent just produced
	t.root = t.newNode(nil, -1, -player, t.board.LegalMoves())
	return t
}

func (t *tree) newNode(parent *node, move int, mover tictactoe.Player, untried []int) *node {
	t.nodes++
	t.client.activeNodes.Add(1)
	return &node{
		parent:  parent,
		move:    move,
		mover:   mover,
		untried: untried,
	}
}

// release hands the tree's nodes back to the load accounting.
func (t *tree) release() {
	t.client.activeNodes.Add(-t.nodes)
	t.nodes = 0
}

// grow runs select, expand, simulate and backpropagate until the budget,
// the deadline or ctx runs out.
func (t *tree) grow(ctx context.Context, deadline time.Time, budget int) {
	start := time.Now()
	defer func() { t.elapsed = time.Since(start) }()

	c := t.client.explorationParam
	for t.iterations < budget {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return
		}

		board := t.board.Clone()
		n, toMove := t.descend(board, c)

		if n.expandable() && board.CheckWinner() == tictactoe.Empty {
			n = t.expand(n, board, toMove)
			toMove = -toMove
		}

		n.update(simulate(board, toMove))
		t.iterations++
	}
}

// descend follows the best UCB child until it reaches a node that may still
// grow, replaying the path on board.
func (t *tree) descend(board *tictactoe.Board, c float64) (*node, tictactoe.Player) {
	n, toMove := t.root, t.player
	for !n.expandable() && len(n.children) > 0 {
		n = n.bestChild(c)
		if err := board.ApplyMove(n.move, toMove); err != nil {
			panic("mcts: tree holds an illegal move: " + err.Error())
		}
		toMove = -toMove
	}
	return n, toMove
}

func (t *tree) expand(n *node, board *tictactoe.Board, toMove tictactoe.Player) *node {
	move := n.takeUntried(board)
	if err := board.ApplyMove(move, toMove); err != nil {
		panic("mcts: untried move is illegal: " + err.Error())
	}

	child := t.newNode(n, move, toMove, board.LegalMoves())
	n.children = append(n.children, child)
	return child
}

// simulate plays biased random moves to the end and returns the winner, or
// Empty for a draw.
func simulate(board *tictactoe.Board, toMove tictactoe.Player) tictactoe.Player {
	for {
		if w := board.CheckWinner(); w != tictactoe.Empty {
			return w
		}
		if !board.AnyLegalMoves() {
			return tictactoe.Empty
		}

		if err := board.ApplyMove(board.BiasedRandomMove(), toMove); err != nil {
			panic("mcts: rollout produced an illegal move: " + err.Error())
		}
		toMove = -toMove
	}
}
