package worker

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
	jitterMax   = 250 * time.Millisecond
)

// ExponentialBackoff doubles per attempt (2s, 4s, 8s, ...) up to the cap,
// plus a little jitter so a burst of failures doesn't retry in lockstep.
func ExponentialBackoff(attempt int) time.Duration {
	delay := backoffCap

	// 1<<attempt overflows for large attempts; the cap covers those too
	if attempt >= 0 && attempt < 32 {
		if d := backoffBase << uint(attempt); d > 0 && d < backoffCap {
			delay = d
		}
	}

	return delay + time.Duration(rand.Int63n(int64(jitterMax)))
}
