package syncer

import "sync"

// keyedLocks hands out one mutex per event UID so that sync attempts for
// the same UID are serialized while attempts for different UIDs proceed in
// parallel. Entries are retained for the life of the syncer; the table is
// bounded by the number of distinct events synced.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	return lock
}
