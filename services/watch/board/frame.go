package board

import (
	"github.com/vax-r/KMLdrv/pkg/tictactoe"
	"github.com/vax-r/KMLdrv/services/kmldrv"
)

func validFrame(b []byte) bool {
	return len(b) >= kmldrv.FrameSize &&
		b[0] == '\n' && b[1] == '\n' &&
		b[kmldrv.FrameSize-1] == '\n'
}

// splitFrames cuts complete frames off the front of buf. Bytes that cannot
// start a frame, left over from a truncated push, are skipped.
func splitFrames(buf []byte) (frames [][]byte, rest []byte) {
	for len(buf) >= kmldrv.FrameSize {
		if !validFrame(buf) {
			buf = buf[1:]
			continue
		}

		frames = append(frames, buf[:kmldrv.FrameSize:kmldrv.FrameSize])
		buf = buf[kmldrv.FrameSize:]
	}

	return frames, buf
}

// parseFrame reads the cells back out of a rendered frame.
func parseFrame(frame []byte) []tictactoe.Player {
	const n = kmldrv.BoardSize

	cells := make([]tictactoe.Player, n*n)
	for y := range n {
		row := 2 + y*4*n
		for x := range n {
			if p, ok := tictactoe.ParseMark(string(frame[row+2*x])); ok {
				cells[y*n+x] = p
			}
		}
	}

	return cells
}
