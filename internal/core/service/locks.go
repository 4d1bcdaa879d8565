package service

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializes mutations per key with a fixed set of mutexes. Two keys
// may share a stripe, which only costs concurrency, never correctness.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) lock(key string) func() {
	m := &l.stripes[l.stripe(key)]
	m.Lock()
	return m.Unlock
}

func (l *keyLocks) stripe(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
