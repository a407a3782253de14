package kmldrv

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrInvalidFlags = errors.New("kmldrv: flags must be three 0/1 tokens")

// Flags is the control plane: whether frames are rendered, whether the game
// advances, and whether a finished game ends the run instead of restarting.
type Flags struct {
	Display bool
	Resume  bool
	End     bool
}

func flagChar(b bool) byte {
	if b {
		return '1'
	}
	return '0'
}

// String is the control-plane text form, e.g. "1 1 0\n".
func (f Flags) String() string {
	return string([]byte{flagChar(f.Display), ' ', flagChar(f.Resume), ' ', flagChar(f.End), '\n'})
}

// ParseFlags reads three space-separated single-character tokens.
func ParseFlags(s string) (Flags, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Flags{}, fmt.Errorf("%w: got %d tokens", ErrInvalidFlags, len(fields))
	}

	var v [3]bool
	for i, tok := range fields {
		switch tok {
		case "1":
			v[i] = true
		case "0":
		default:
			return Flags{}, fmt.Errorf("%w: bad token %q", ErrInvalidFlags, tok)
		}
	}

	return Flags{Display: v[0], Resume: v[1], End: v[2]}, nil
}

// Attr guards Flags for many readers (timer, workers) and one writer (the
// control plane).
type Attr struct {
	mu    sync.RWMutex
	flags Flags
}

func (a *Attr) Get() Flags {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.flags
}

func (a *Attr) Set(f Flags) {
	a.mu.Lock()
	a.flags = f
	a.mu.Unlock()
}
