package mcts

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vax-r/KMLdrv/pkg/tictactoe"
)

func newClient() *Client {
	c := New(2, 2_000)
	c.UpdateThinkTime(200 * time.Millisecond)
	return c
}

func TestGetNextMove_forcedWin(t *testing.T) {
	g, err := tictactoe.New(4, 3)
	require.NoError(t, err)
	b := g.Board
	require.NoError(t, b.ApplyMove(0, tictactoe.P2))
	require.NoError(t, b.ApplyMove(5, tictactoe.P1))
	require.NoError(t, b.ApplyMove(1, tictactoe.P2))
	require.NoError(t, b.ApplyMove(9, tictactoe.P1))

	c := newClient()
	assert.Equal(t, 2, c.GetNextMove(context.Background(), b, tictactoe.P2))
}

func TestGetNextMove_search(t *testing.T) {
	g, err := tictactoe.New(4, 3)
	require.NoError(t, err)

	c := newClient()
	move := c.GetNextMove(context.Background(), g.Board, tictactoe.P2)
	require.GreaterOrEqual(t, move, 0)
	require.Less(t, move, 16)

	stats := c.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, move, stats.BestMove)
	assert.Positive(t, stats.NumIterations)
	assert.Zero(t, c.ActiveNodes(), "all search nodes released")
}

func TestGetNextMove_noLegalMove(t *testing.T) {
	g, err := tictactoe.New(3, 3)
	require.NoError(t, err)
	b := g.Board
	for i, p := range []tictactoe.Player{
		tictactoe.P1, tictactoe.P2, tictactoe.P1,
		tictactoe.P1, tictactoe.P2, tictactoe.P2,
		tictactoe.P2, tictactoe.P1, tictactoe.P1,
	} {
		require.NoError(t, b.ApplyMove(i, p))
	}

	assert.Equal(t, -1, newClient().GetNextMove(context.Background(), b, tictactoe.P2))
}

func TestGetNextMove_canceledContext(t *testing.T) {
	g, err := tictactoe.New(4, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	move := newClient().GetNextMove(ctx, g.Board, tictactoe.P1)
	assert.GreaterOrEqual(t, move, 0)
	assert.Less(t, move, 16)
}

func TestActiveNodes_duringSearch(t *testing.T) {
	g, err := tictactoe.New(5, 4)
	require.NoError(t, err)

	c := New(1, 1_000_000)
	c.UpdateThinkTime(300 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.GetNextMove(context.Background(), g.Board, tictactoe.P1)
	}()

	require.Eventually(t, func() bool { return c.ActiveNodes() > 1 }, time.Second, time.Millisecond)
	<-done
	assert.Zero(t, c.ActiveNodes())
}

func TestExplorationParameterAndIterations(t *testing.T) {
	assert.InDelta(t, math.Sqrt2*math.Sqrt(0.75), ExplorationParameter(4, 3, 0), 1e-9)
	assert.InDelta(t, math.Sqrt2, ExplorationParameter(3, 3, 0), 1e-9)
	assert.Greater(t, Iterations(4, 3, 10), Iterations(4, 3, 0))
}

func TestNodeUpdate_creditsMover(t *testing.T) {
	root := &node{mover: tictactoe.P1}
	child := &node{parent: root, mover: tictactoe.P2}

	child.update(tictactoe.P2)
	assert.Equal(t, 1, child.visits)
	assert.Equal(t, 1, root.visits)
	assert.Equal(t, winValue, child.wins)
	assert.Zero(t, root.wins)

	child.update(tictactoe.Empty)
	assert.Equal(t, winValue+drawValue, child.wins)
	assert.Equal(t, drawValue, root.wins)
}

func TestMerge_sumsVisitsAndBreaksTiesLow(t *testing.T) {
	c := New(2, 1)
	mk := func(visits ...[2]int) *tree {
		root := &node{}
		for _, v := range visits {
			root.children = append(root.children, &node{parent: root, move: v[0], visits: v[1]})
		}
		return &tree{root: root, iterations: 3}
	}

	stats := c.merge([]*tree{
		mk([2]int{7, 4}, [2]int{2, 1}),
		mk([2]int{2, 3}, [2]int{9, 3}),
	})
	assert.Equal(t, 2, stats.BestMove, "2 and 7 tie at 4 visits")
	assert.Equal(t, 3, stats.MoveVisits)
	assert.Equal(t, 6, stats.NumIterations)

	stats = c.merge([]*tree{mk([2]int{9, 6})})
	assert.Equal(t, 9, stats.BestMove)
	assert.Equal(t, 6, stats.MoveVisits)
}

func TestTree_releaseReturnsNodes(t *testing.T) {
	g, err := tictactoe.New(4, 3)
	require.NoError(t, err)

	c := New(1, 50)
	tr := c.newTree(g.Board, tictactoe.P2)
	tr.grow(context.Background(), time.Now().Add(time.Second), 50)

	assert.Equal(t, 50, tr.iterations)
	assert.Equal(t, tr.nodes, c.ActiveNodes())
	assert.Greater(t, tr.nodes, int64(1))

	tr.release()
	assert.Zero(t, c.ActiveNodes())
}
