package executor

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// nextWait returns how long a VU waits before its next iteration.
func (p *PacingConfig) nextWait() time.Duration {
	if p == nil {
		return 0
	}
	switch p.Type {
	case PacingConstant:
		return p.Duration
	case PacingRandom:
		if diff := p.Max - p.Min; diff > 0 {
			return p.Min + time.Duration(rand.Int64N(int64(diff)+1))
		}
		return p.Min
	}
	return 0
}

// waitPacing sleeps for the next pacing interval. It returns early when ctx
// is done or stop is closed.
func waitPacing(ctx context.Context, p *PacingConfig, stop <-chan struct{}) {
	wait := p.nextWait()
	if wait <= 0 {
		return
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-stop:
	case <-t.C:
	}
}

// IterationBounds returns the range a single VU's iteration count must fall
// in when it runs for d with a random sleep in [minSleep, maxSleep] after
// each iteration and iterations that take at most latency:
//
//	floor(d / (maxSleep + latency)) <= n <= ceil(d / minSleep)
//
// A zero minSleep leaves the upper bound open (math.MaxInt64).
func IterationBounds(d, minSleep, maxSleep, latency time.Duration) (lo, hi int64) {
	if d <= 0 {
		return 0, 0
	}
	if slowest := maxSleep + latency; slowest > 0 {
		lo = int64(d / slowest)
	}
	hi = math.MaxInt64
	if minSleep > 0 {
		hi = int64(math.Ceil(float64(d) / float64(minSleep)))
	}
	return lo, hi
}
