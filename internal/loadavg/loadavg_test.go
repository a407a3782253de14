package loadavg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_zero(t *testing.T) {
	var a Avg
	assert.Equal(t, "0.00 0.00 0.00", Format(a.Load()))
}

func TestUpdate_convergesWithHorizonOrdering(t *testing.T) {
	var a Avg

	got := a.Update(4)
	assert.Greater(t, got[0], got[1])
	assert.Greater(t, got[1], got[2])

	for range 2000 {
		got = a.Update(4)
	}

	assert.Equal(t, "4.00 4.00 4.00", Format(got))
	f := Float(got)
	assert.InDeltaSlice(t, []float64{4, 4, 4}, f[:], 0.01)
}

func TestUpdate_decays(t *testing.T) {
	var a Avg
	for range 500 {
		a.Update(10)
	}

	got := a.Update(0)
	assert.Less(t, got[0], uint64(10*Fixed1))
	assert.Less(t, got[0], got[2], "short horizon reacts first")

	a.Reset()
	assert.Equal(t, [3]uint64{}, a.Load())
}

func TestCalc_roundsUpWhenRising(t *testing.T) {
	assert.Equal(t, uint64(1), Calc(0, Exp1, 1))
	assert.Equal(t, uint64(0), Calc(0, Exp1, 0))
}
