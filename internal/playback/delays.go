package playback

import (
	"math"
	"time"

	"github.com/hpungsan/thoughts/internal/errors"
)

// Speeds are the multipliers offered by the players, slowest first.
var Speeds = []float64{0.5, 1, 2, 4}

// CalculateFrameDelays returns the wait before each frame after the first,
// so len(result) == len(frames)-1.
//
// Each raw gap between capture timestamps is clamped to [0, maxDelay] and then
// divided by speed. maxDelay <= 0 disables the upper clamp. The result depends
// only on the arguments.
func CalculateFrameDelays(frames []Frame, speed float64, maxDelay time.Duration) ([]time.Duration, error) {
	if !validSpeed(speed) {
		return nil, errors.NewInvalidSpeed(speed)
	}
	if len(frames) < 2 {
		return []time.Duration{}, nil
	}

	delays := make([]time.Duration, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		raw := gap(frames[i-1].TimestampMs, frames[i].TimestampMs)
		if maxDelay > 0 && raw > maxDelay {
			raw = maxDelay
		}
		delays[i-1] = scale(raw, speed)
	}
	return delays, nil
}

// gap is the non-negative time between two capture timestamps, saturating at
// the largest Duration.
func gap(fromMs, toMs int64) time.Duration {
	if toMs <= fromMs {
		return 0
	}
	ms := uint64(toMs) - uint64(fromMs)
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return math.MaxInt64
	}
	return time.Duration(ms) * time.Millisecond
}

func scale(d time.Duration, speed float64) time.Duration {
	scaled := float64(d) / speed
	if scaled >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(scaled)
}

// NextSpeed cycles through Speeds, wrapping to the slowest.
func NextSpeed(current float64) float64 {
	for i, s := range Speeds {
		if s > current {
			return Speeds[i]
		}
	}
	return Speeds[0]
}

// PrevSpeed cycles backwards through Speeds, wrapping to the fastest.
func PrevSpeed(current float64) float64 {
	for i := len(Speeds) - 1; i >= 0; i-- {
		if Speeds[i] < current {
			return Speeds[i]
		}
	}
	return Speeds[len(Speeds)-1]
}

func validSpeed(speed float64) bool {
	return speed > 0 && !math.IsInf(speed, 0) && !math.IsNaN(speed)
}
