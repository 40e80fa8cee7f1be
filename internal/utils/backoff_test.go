package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffRetriesUntilSuccess(t *testing.T) {
	var calls []int
	err := NewBackoff(time.Millisecond, 3).Do(context.Background(), func(i int) error {
		calls = append(calls, i)
		if i < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, calls)
}

func TestBackoffReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	n := 0
	err := NewBackoff(time.Millisecond, 2).Do(context.Background(), func(int) error {
		n++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, n, "one attempt plus maxRetries")
}

func TestBackoffPermanentStopsAndUnwraps(t *testing.T) {
	notFound := errors.New("404")
	n := 0
	err := NewBackoff(time.Millisecond, 5).Do(context.Background(), func(int) error {
		n++
		return Permanent(notFound)
	})
	assert.Equal(t, 1, n)
	assert.Same(t, notFound, err, "Do returns the wrapped error itself")
}

func TestBackoffHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	start := time.Now()
	err := NewBackoff(time.Hour, 3).Do(ctx, func(int) error {
		n++
		cancel()
		return errors.New("retry me")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoffSleepBounds(t *testing.T) {
	b := NewBackoff(20*time.Millisecond, 1)
	assert.Equal(t, 30*time.Millisecond, b.jitter)

	start := time.Now()
	_ = b.Do(context.Background(), func(int) error { return errors.New("x") })
	took := time.Since(start)
	// one sleep of base*2^0 plus jitter in [0, 1.5*base)
	assert.GreaterOrEqual(t, took, 20*time.Millisecond)
	assert.Less(t, took, 500*time.Millisecond)
}
