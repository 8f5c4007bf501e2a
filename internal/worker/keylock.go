package worker

import "sync"

// KeyLock serializes work per key. The version store's max+1
// computation is only safe when writers extending one dataset's
// lineage never run concurrently, so consumers lock on the dataset id
// for the duration of a job.
type KeyLock struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: map[int64]*sync.Mutex{}}
}

func (k *KeyLock) Lock(key int64) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
}

func (k *KeyLock) Unlock(key int64) {
	k.mu.Lock()
	lock := k.locks[key]
	k.mu.Unlock()

	lock.Unlock()
}
