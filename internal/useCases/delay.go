package useCases

import (
	"context"
	"math/rand"
	"time"
)

// sleepCtx waits d, reporting false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func randomDelay(ctx context.Context, min, max time.Duration) error {
	wait := min
	if delta := max - min; delta > 0 {
		wait += time.Duration(rand.Int63n(int64(delta)))
	}
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
