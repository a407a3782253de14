package tictactoe

// Player is a cell owner. The two marks are opposite signs so the other side
// is always -p.
type Player int8

const (
	Empty Player = 0
	P1    Player = 1  // X
	P2    Player = -1 // O
)

func (p Player) Mark() string {
	return string(p.Byte())
}

// Byte is the cell character used in rendered frames.
func (p Player) Byte() byte {
	switch p {
	case P1:
		return 'X'
	case P2:
		return 'O'
	}
	return ' '
}

// Idx maps a mark to 0 or 1 for per-player tables, Empty to -1.
func (p Player) Idx() int {
	switch p {
	case P1:
		return 0
	case P2:
		return 1
	}
	return -1
}

// ParseMark maps 'X'/'O' (either case) to a player.
func ParseMark(s string) (Player, bool) {
	switch s {
	case "X", "x":
		return P1, true
	case "O", "o":
		return P2, true
	}
	return Empty, false
}
