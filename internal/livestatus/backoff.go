package livestatus

import (
	"math"
	"math/rand"
	"time"
)

// backoff computes reconnect delays: exponential growth with full
// jitter, random(0, min(max, base * 2^(attempt-1))). A floor keeps a
// zero jitter roll from busy-looping the dialer.
type backoff struct {
	base time.Duration
	max  time.Duration
}

func (b backoff) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	expDelay := float64(b.base) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(b.max) {
		expDelay = float64(b.max)
	}

	jittered := time.Duration(rand.Float64() * expDelay)

	floor := 100 * time.Millisecond
	if b.max < floor {
		floor = b.max
	}
	if jittered < floor {
		jittered = floor
	}
	return jittered
}
