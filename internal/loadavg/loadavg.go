// Package loadavg keeps 1, 5 and 15 sample exponentially-decayed averages in
// 11-bit fixed point, the same arithmetic the Linux scheduler uses for its
// load average.
package loadavg

import (
	"fmt"
	"sync"
)

const (
	FShift = 11
	Fixed1 = 1 << FShift

	Exp1  = 1884 // 1/exp(5sec/1min) as fixed-point
	Exp5  = 2014 // 1/exp(5sec/5min)
	Exp15 = 2037 // 1/exp(5sec/15min)
)

// Calc folds active (already scaled by Fixed1) into load with decay exp.
func Calc(load, exp, active uint64) uint64 {
	newload := load*exp + active*(Fixed1-exp)
	if active >= load {
		newload += Fixed1 - 1
	}

	return newload / Fixed1
}

func Int(x uint64) uint64 {
	return x >> FShift
}

func Frac(x uint64) uint64 {
	return Int((x & (Fixed1 - 1)) * 100)
}

type Avg struct {
	mu  sync.Mutex
	avg [3]uint64
}

// Update records one sample of active units.
func (a *Avg) Update(active uint64) [3]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	active *= Fixed1
	a.avg[0] = Calc(a.avg[0], Exp1, active)
	a.avg[1] = Calc(a.avg[1], Exp5, active)
	a.avg[2] = Calc(a.avg[2], Exp15, active)

	return a.avg
}

func (a *Avg) Load() [3]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.avg
}

func (a *Avg) Reset() {
	a.mu.Lock()
	a.avg = [3]uint64{}
	a.mu.Unlock()
}

// Float converts the three averages for display.
func Float(avg [3]uint64) [3]float64 {
	var f [3]float64
	for i, v := range avg {
		f[i] = float64(v) / Fixed1
	}

	return f
}

// Format renders the averages as "%d.%02d %d.%02d %d.%02d", rounded.
func Format(avg [3]uint64) string {
	a := avg[0] + Fixed1/200
	b := avg[1] + Fixed1/200
	c := avg[2] + Fixed1/200

	return fmt.Sprintf("%d.%02d %d.%02d %d.%02d", Int(a), Frac(a), Int(b), Frac(b), Int(c), Frac(c))
}
