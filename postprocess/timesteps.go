package postprocess

import (
	"fmt"
	"math"
	"sort"
)

// SelectTimeSteps picks the steps entering the time average. With factor > 0
// the targets are spaced factor flowthrough times back from the last time
// and each is matched to its nearest stored step, repeats included.
// Otherwise the last navg steps are used.
func SelectTimeSteps(times []float64, navg int, flowthrough, factor float64) (targets []float64, steps []int, err error) {
	switch {
	case len(times) == 0:
		return nil, nil, fmt.Errorf("no time steps to select from")
	case navg < 1:
		return nil, nil, fmt.Errorf("navg must be at least 1, have %d", navg)
	}
	last := times[len(times)-1]
	if factor <= 0 {
		for k := max(0, len(times)-navg); k < len(times); k++ {
			targets = append(targets, times[k])
			steps = append(steps, k)
		}
		return
	}
	targets = make([]float64, navg)
	for k := range targets {
		targets[k] = last - flowthrough*factor*float64(k)
	}
	sort.Float64s(targets)
	steps = make([]int, navg)
	for k, target := range targets {
		best := math.Inf(1)
		for n, t := range times {
			if d := math.Abs(t - target); d < best {
				best, steps[k] = d, n
			}
		}
	}
	return
}

// InstantaneousRange is every step from the earliest selected one to the end.
func InstantaneousRange(steps []int, numSteps int) (inst []int) {
	if len(steps) == 0 {
		return
	}
	first := steps[0]
	for _, s := range steps {
		first = min(first, s)
	}
	for s := first; s < numSteps; s++ {
		inst = append(inst, s)
	}
	return
}
