package supervisor

import "sync/atomic"

// runLock provides non-blocking lock semantics using atomic operations. It
// guarantees at most one indexer subprocess per server.
type runLock struct {
	state atomic.Int32
}

// TryAcquire attempts to take the lock without blocking.
func (l *runLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock.
func (l *runLock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently taken.
func (l *runLock) Held() bool {
	return l.state.Load() == 1
}
