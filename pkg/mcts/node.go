package mcts

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

const (
	winValue  = 1.0
	drawValue = 0.6
)

type node struct {
	parent   *node
	children []*node

	move  int
	mover tictactoe.Player // who played move

	wins   float64
	visits int

	untried []int
}

// expandable applies progressive widening: a node may hold about 2·√visits
// children, and always at least one.
func (n *node) expandable() bool {
	if len(n.untried) == 0 {
		return false
	}
	limit := max(int(2*math.Sqrt(float64(n.visits))), 1)
	return len(n.children) < limit
}

func (n *node) ucb(c float64) float64 {
	if n.visits == 0 {
		return math.Inf(1)
	}

	visits := float64(n.visits)
	return n.wins/visits + c*math.Sqrt(math.Log(float64(n.parent.visits))/visits)
}

func (n *node) bestChild(c float64) *node {
	return slices.MaxFunc(n.children, func(a, b *node) int {
		ua, ub := a.ucb(c), b.ucb(c)
		switch {
		case ua < ub:
			return -1
		case ua > ub:
			return 1
		}
		return 0
	})
}

// takeUntried removes and returns the next move to expand: a tactical stone
// if there is one, sometimes a move near existing stones early in the game,
// otherwise any untried move.
func (n *node) takeUntried(board *tictactoe.Board) int {
	var tactical, near []int
	for _, m := range n.untried {
		switch {
		case board.TacticalStone(m):
			tactical = append(tactical, m)
		case board.HasNeighbor(m, 2):
			near = append(near, m)
		}
	}

	var move int
	eps := math.Max(0.05, 0.3*math.Exp(-0.1*float64(board.Turn)))
	switch {
	case len(tactical) > 0:
		move = tactical[rand.N(len(tactical))]
	case len(near) > 0 && rand.Float64() < eps:
		move = near[rand.N(len(near))]
	default:
		move = n.untried[rand.N(len(n.untried))]
	}

	n.untried = slices.DeleteFunc(n.untried, func(m int) bool { return m == move })
	return move
}

// update credits the result to n and its ancestors from each mover's side.
func (n *node) update(winner tictactoe.Player) {
	for ; n != nil; n = n.parent {
		n.visits++
		switch winner {
		case tictactoe.Empty:
			n.wins += drawValue
		case n.mover:
			n.wins += winValue
		}
	}
}
