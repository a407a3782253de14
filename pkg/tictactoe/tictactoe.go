// Package tictactoe holds an N×N board with a K-in-a-row goal, the move
// heuristics shared by the search agents, and the text frame rendering.
package tictactoe

import (
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/vax-r/KMLdrv/pkg/zobrist"
)

var (
	errIllegalMove = errors.New("illegal move")
	errBoardSize   = errors.New("invalid board size")
)

// Board cells are indexed row-major, idx = y*N + x.
type Board struct {
	N     int
	K     int
	Cells []Player

	// LastMove is -1 on a board nobody has played on.
	LastMove int
	Hash     uint64
	Turn     int

	keys [][]uint64
}

type Game struct {
	Board *Board
}

func New(N, K int) (*Game, error) {
	if N < 1 || K < 1 || K > N {
		return nil, errBoardSize
	}

	return &Game{Board: &Board{
		N:        N,
		K:        K,
		Cells:    make([]Player, N*N),
		LastMove: -1,
		keys:     zobrist.New(N),
	}}, nil
}

// Coords splits a cell index into column and row.
func (b *Board) Coords(idx int) (x, y int) {
	return idx % b.N, idx / b.N
}

func (b *Board) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.N && y < b.N
}

func (b *Board) ApplyMove(idx int, p Player) error {
	if p == Empty || idx < 0 || idx >= len(b.Cells) || b.Cells[idx] != Empty {
		return errIllegalMove
	}

	b.Cells[idx] = p
	b.Hash ^= b.keys[idx][p.Idx()]
	b.LastMove = idx
	b.Turn++
	return nil
}

// UndoMove clears idx. LastMove is left for the caller to restore.
func (b *Board) UndoMove(idx int) {
	p := b.Cells[idx]
	if p == Empty {
		panic("tictactoe: UndoMove on empty cell")
	}

	b.Cells[idx] = Empty
	b.Hash ^= b.keys[idx][p.Idx()]
	b.Turn--
}

// Reset clears every cell, returning the board to its initial position.
func (b *Board) Reset() {
	clear(b.Cells)
	b.LastMove = -1
	b.Turn = 0
	b.Hash = 0
}

func (b *Board) AnyLegalMoves() bool {
	return slices.Contains(b.Cells, Empty)
}

func (b *Board) LegalMoves() []int {
	moves := make([]int, 0, len(b.Cells))
	for idx, p := range b.Cells {
		if p == Empty {
			moves = append(moves, idx)
		}
	}
	return moves
}

// Clone copies the cells; the zobrist keys are shared.
func (b *Board) Clone() *Board {
	c := *b
	c.Cells = slices.Clone(b.Cells)
	return &c
}

type step struct {
	dx, dy int
}

// the four line orientations, each scanned both ways
var directions = [...]step{
	{1, 0},
	{0, 1},
	{1, 1},
	{1, -1},
}

// run counts the line of p through (x, y) along d, counting (x, y) itself
// whatever it holds.
func (b *Board) run(x, y int, d step, p Player) int {
	n := 1
	for _, sign := range [2]int{-1, 1} {
		nx, ny := x+sign*d.dx, y+sign*d.dy
		for b.inside(nx, ny) && b.Cells[ny*b.N+nx] == p {
			n++
			nx += sign * d.dx
			ny += sign * d.dy
		}
	}
	return n
}

// completes reports whether p playing idx would make a line of K.
func (b *Board) completes(idx int, p Player) bool {
	x, y := b.Coords(idx)
	for _, d := range directions {
		if b.run(x, y, d, p) >= b.K {
			return true
		}
	}
	return false
}

// CheckWinner only inspects lines through the last move.
func (b *Board) CheckWinner() Player {
	if b.LastMove < 0 || b.LastMove >= len(b.Cells) {
		return Empty
	}

	p := b.Cells[b.LastMove]
	if p == Empty || !b.completes(b.LastMove, p) {
		return Empty
	}
	return p
}

// TacticalStone reports whether a stone of either color placed at idx would
// complete a line of K.
func (b *Board) TacticalStone(idx int) bool {
	return b.completes(idx, P1) || b.completes(idx, P2)
}

// HasNeighbor reports whether any stone lies within dist cells of idx.
func (b *Board) HasNeighbor(idx, dist int) bool {
	x, y := b.Coords(idx)
	for ny := max(y-dist, 0); ny <= min(y+dist, b.N-1); ny++ {
		for nx := max(x-dist, 0); nx <= min(x+dist, b.N-1); nx++ {
			if (nx != x || ny != y) && b.Cells[ny*b.N+nx] != Empty {
				return true
			}
		}
	}
	return false
}

// ForcedMove returns an immediately winning move for player, or else a move
// that blocks the opponent's immediate win.
func (b *Board) ForcedMove(player Player) (int, bool) {
	var blocks []int
	for idx, c := range b.Cells {
		if c != Empty {
			continue
		}
		if b.completes(idx, player) {
			return idx, true
		}
		if b.completes(idx, -player) {
			blocks = append(blocks, idx)
		}
	}

	if len(blocks) == 0 {
		return -1, false
	}
	return blocks[rand.N(len(blocks))], true
}

// BiasedRandomMove picks uniformly among tactical cells if there are any,
// else among cells touching a stone, else among all empty cells. The board
// must have a legal move.
func (b *Board) BiasedRandomMove() int {
	var tactical, near, empty []int
	for idx, p := range b.Cells {
		if p != Empty {
			continue
		}
		empty = append(empty, idx)
		if b.TacticalStone(idx) {
			tactical = append(tactical, idx)
		} else if b.HasNeighbor(idx, 1) {
			near = append(near, idx)
		}
	}

	pool := empty
	switch {
	case len(tactical) > 0:
		pool = tactical
	case len(near) > 0:
		pool = near
	}
	return pool[rand.N(len(pool))]
}
