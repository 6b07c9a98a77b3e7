// File: internal/humanoid/jitter.go
package humanoid

import (
	"context"
	"math/rand"
	"time"
)

// Jitter suspends for a uniformly random duration in [min, max], inclusive,
// returning early only on context cancellation. It serves both rate-limiting
// courtesy and behavioral evasion.
func Jitter(ctx context.Context, min, max time.Duration) error {
	d := JitterDuration(min, max)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JitterDuration picks a uniform duration in [min, max], inclusive.
func JitterDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}
