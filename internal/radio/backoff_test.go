package radio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingBackoff(initial, max time.Duration, jitter float64) (*ReopenBackoff, *[]time.Duration) {
	var slept []time.Duration
	b := NewReopenBackoff(initial, max)
	b.rand = func() float64 { return jitter }
	b.sleep = func(ctx context.Context, d time.Duration) bool {
		slept = append(slept, d)
		return ctx.Err() == nil
	}
	return b, &slept
}

func TestReopenBackoff_DoublesUpToMax(t *testing.T) {
	// 0.5 means no jitter
	b, slept := recordingBackoff(time.Second, 15*time.Second, 0.5)

	for i := 0; i < 6; i++ {
		_, ok := b.Wait(context.Background())
		assert.True(t, ok)
	}

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 15 * time.Second, 15 * time.Second,
	}, *slept)
	assert.Equal(t, 6, b.Attempt())
}

func TestReopenBackoff_JitterBounds(t *testing.T) {
	low, _ := recordingBackoff(time.Second, 15*time.Second, 0)
	high, _ := recordingBackoff(time.Second, 15*time.Second, 1)
	low.attempt, high.attempt = 2, 2

	assert.Equal(t, 3600*time.Millisecond, low.Delay())
	assert.Equal(t, 4400*time.Millisecond, high.Delay())

	// jitter never pushes past max
	high.attempt = 10
	assert.Equal(t, 15*time.Second, high.Delay())
	low.attempt = 10
	assert.Equal(t, 13500*time.Millisecond, low.Delay())
}

func TestReopenBackoff_Reset(t *testing.T) {
	b, slept := recordingBackoff(time.Second, 15*time.Second, 0.5)

	b.Wait(context.Background())
	b.Wait(context.Background())
	b.Reset()
	b.Wait(context.Background())

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, time.Second}, *slept)
	assert.Equal(t, 1, b.Attempt())
}

func TestReopenBackoff_WaitStopsOnCancel(t *testing.T) {
	b := NewReopenBackoff(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, ok := b.Wait(ctx)
	assert.False(t, ok)
	assert.Equal(t, time.Hour, d)
}
