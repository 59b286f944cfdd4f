// Package keylock serializes work per key, such as a sale ID or a draft ID.
package keylock

import "sync"

// Map hands out one mutex per key and forgets it once no caller holds or
// waits on it.
type Map[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func New[K comparable]() *Map[K] {
	return &Map[K]{locks: make(map[K]*refMutex)}
}

// Lock blocks until key is free and returns the function that releases it.
func (k *Map[K]) Lock(key K) func() {
	k.mu.Lock()

	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len reports how many keys are currently held or awaited.
func (k *Map[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
