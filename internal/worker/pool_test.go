package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	var (
		pool    = NewPool(2)
		active  int32
		maxSeen int32
	)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		err := pool.Submit(ctx, func() {
			n := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		})
		require.NoError(t, err)
	}

	pool.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2))
}

func TestPoolSubmitHonorsContext(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})

	require.NoError(t, pool.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := pool.Submit(ctx, func() {})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	pool.Wait()
}

func TestKeyLockSerializesPerKey(t *testing.T) {
	var (
		locks  = NewKeyLock()
		wg     sync.WaitGroup
		inside int32
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock(7)
			defer locks.Unlock(7)

			require.EqualValues(t, 1, atomic.AddInt32(&inside, 1))
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}

	wg.Wait()
}

func TestKeyLockIndependentKeys(t *testing.T) {
	locks := NewKeyLock()
	locks.Lock(1)

	done := make(chan struct{})
	go func() {
		locks.Lock(2)
		locks.Unlock(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent key blocked")
	}

	locks.Unlock(1)
}
