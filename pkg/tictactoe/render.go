package tictactoe

// FrameSize is the length of a rendered n×n board: two leading newlines, then
// per row the cells separated by '|', a newline, a dashed rule and a newline.
func FrameSize(n int) int {
	return 2 + 4*n*n
}

// AppendFrame renders cells as an n×n grid onto dst.
func AppendFrame(dst []byte, cells []Player, n int) []byte {
	dst = append(dst, '\n', '\n')

	for y := range n {
		for x := range n {
			if x > 0 {
				dst = append(dst, '|')
			}
			dst = append(dst, cells[y*n+x].Byte())
		}
		dst = append(dst, '\n')

		for range 2*n - 1 {
			dst = append(dst, '-')
		}
		dst = append(dst, '\n')
	}

	return dst
}

func (b *Board) Render() []byte {
	return AppendFrame(make([]byte, 0, FrameSize(b.N)), b.Cells, b.N)
}
