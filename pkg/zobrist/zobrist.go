package zobrist

import "math/rand/v2"

// New returns one random key per (cell, player) pair of an n×n board.
func New(n int) [][]uint64 {
	zobrist := make([][]uint64, n*n)
	for i := range n * n {
		zobrist[i] = make([]uint64, 2) // index by player
		zobrist[i][0] = rand.Uint64()
		zobrist[i][1] = rand.Uint64()
	}

	return zobrist
}

type Bound int8

const (
	Exact Bound = iota
	Lower
	Upper
)

type Entry struct {
	Hash  uint64
	Depth int
	Score int
	Move  int
	Bound Bound
}

// Table is a fixed-size, always-replace transposition table. Not safe for
// concurrent use.
type Table struct {
	entries []Entry
	mask    uint64
	used    []bool
}

// NewTable allocates 1<<bits entries.
func NewTable(bits uint) *Table {
	size := uint64(1) << bits
	return &Table{
		entries: make([]Entry, size),
		used:    make([]bool, size),
		mask:    size - 1,
	}
}

func (t *Table) Get(hash uint64) (Entry, bool) {
	i := hash & t.mask
	if !t.used[i] || t.entries[i].Hash != hash {
		return Entry{}, false
	}

	return t.entries[i], true
}

func (t *Table) Put(e Entry) {
	i := e.Hash & t.mask
	t.entries[i] = e
	t.used[i] = true
}

func (t *Table) Clear() {
	clear(t.used)
}
