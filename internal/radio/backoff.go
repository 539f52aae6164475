package radio

import (
	"context"
	"math/rand"
	"time"
)

const reopenJitter = 0.1

// ReopenBackoff paces reopen attempts of a failed radio source. Every
// Wait doubles the delay up to max, spread by ±10% jitter. Not safe for
// concurrent use; the receiver goroutine owns it.
type ReopenBackoff struct {
	initial time.Duration
	max     time.Duration
	attempt int

	rand  func() float64
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewReopenBackoff(initial, max time.Duration) *ReopenBackoff {
	if max < initial {
		max = initial
	}
	return &ReopenBackoff{
		initial: initial,
		max:     max,
		rand:    rand.Float64,
		sleep:   sleepWithContext,
	}
}

// Attempt is the number of waits since the last Reset.
func (b *ReopenBackoff) Attempt() int {
	return b.attempt
}

// Reset starts the next outage from the initial delay.
func (b *ReopenBackoff) Reset() {
	b.attempt = 0
}

// Delay is what the next Wait will sleep.
func (b *ReopenBackoff) Delay() time.Duration {
	d := b.initial
	for i := 0; i < b.attempt && d < b.max; i++ {
		d *= 2
	}
	if d > b.max {
		d = b.max
	}
	if b.attempt == 0 {
		return d
	}

	d += time.Duration(float64(d) * reopenJitter * (2*b.rand() - 1))
	if d > b.max {
		d = b.max
	}
	return d
}

// Wait sleeps the next delay and advances the attempt counter. It
// returns false when ctx ends first.
func (b *ReopenBackoff) Wait(ctx context.Context) (time.Duration, bool) {
	d := b.Delay()
	b.attempt++
	return d, b.sleep(ctx, d)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
