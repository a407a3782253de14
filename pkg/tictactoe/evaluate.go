package tictactoe

type Result uint8

const (
	Ongoing Result = iota
	Win
	Draw
)

type Outcome struct {
	Result Result
	Winner Player
}

func (o Outcome) Concluded() bool {
	return o.Result != Ongoing
}

func (o Outcome) String() string {
	switch o.Result {
	case Win:
		return o.Winner.Mark() + " win"
	case Draw:
		return "draw"
	}

	return "ongoing"
}

// Evaluate scans the whole board for a line of k, unlike CheckWinner which
// only looks through the last move. A full board without a line is a draw.
func Evaluate(cells []Player, n, k int) Outcome {
	full := true

	for idx, p := range cells {
		if p == Empty {
			full = false
			continue
		}

		x := idx % n
		y := idx / n
		for _, d := range directions {
			count := 1
			nx, ny := x+d.dx, y+d.dy
			for nx >= 0 && ny >= 0 && nx < n && ny < n && cells[ny*n+nx] == p {
				count++
				nx += d.dx
				ny += d.dy
			}

			if count >= k {
				return Outcome{Result: Win, Winner: p}
			}
		}
	}

	if full {
		return Outcome{Result: Draw}
	}

	return Outcome{Result: Ongoing}
}

func (b *Board) Outcome() Outcome {
	return Evaluate(b.Cells, b.N, b.K)
}
