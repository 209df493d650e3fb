package audio

import "math"

// volumeToPower maps a 0..1 linear volume to beep's base-2 exponent scale.
// 1.0 is unity gain; anything at or below 0.01 is handled by the Silent flag.
func volumeToPower(vol float64) float64 {
	if vol <= 0.01 {
		return -10 // Silent
	}
	return math.Log2(vol)
}

// fadeStep moves cur one bounded step toward target, both in [0, 1].
// Evaluated once per feedback tick, it replaces self-rescheduling fade
// timers with a pure interpolation.
func fadeStep(cur, target, step float64) float64 {
	if target > 1 {
		target = 1
	} else if target < 0 {
		target = 0
	}
	switch {
	case target > cur:
		cur += step
		if cur > target {
			cur = target
		}
	case target < cur:
		cur -= step
		if cur < target {
			cur = target
		}
	}
	return cur
}
