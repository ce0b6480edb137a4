package session

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns how long Dial waits after failed attempt N
// (1-based) before trying the receiver again. Jitter spreads reconnecting
// senders between 0.5x and 1.5x of the step, and the result never exceeds
// MaxDelay.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt < 1 || cfg.InitialDelay <= 0 {
		return max(cfg.InitialDelay, 0)
	}
	step := float64(cfg.InitialDelay) * math.Pow(max(cfg.Multiplier, 1.0), float64(attempt-1))
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		step *= f
	}
	if cfg.MaxDelay > 0 && step > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(step)
}

// waitBackoff blocks for d or until ctx is done.
func waitBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
