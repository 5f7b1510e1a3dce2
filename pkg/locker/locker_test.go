package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLockerSingleHolder(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "cron:lock:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "cron:lock:1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// A different key is independent.
	release2, ok, err := l.Acquire(ctx, "cron:lock:2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	release2()

	release()

	_, ok, err = l.Acquire(ctx, "cron:lock:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := l.Acquire(ctx, "contended", time.Minute)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, acquired)
}
