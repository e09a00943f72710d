package worker

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff returns the delay before the next attempt.
// attempt=0 => 2s, attempt=1 => 4s, attempt=2 => 8s, capped at 5 minutes,
// plus 0-250ms of jitter against thundering herds.
func ExponentialBackoff(attempt int) time.Duration {
	base := 2 * time.Second
	capDelay := 5 * time.Minute

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
