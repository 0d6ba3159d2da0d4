package locker

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
)

// MemoryLocker serializes writers within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a new in-process locker. wait bounds how long Lock
// blocks before giving up; zero means only ctx bounds it.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

func (l *MemoryLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) releaseSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Lock blocks until key is free, ctx is done or the wait elapses.
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquireSlot(key)

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(key, s)
		return nil, apperrors.NewTimeoutError("lock").WithContext("key", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.releaseSlot(key, s)
		})
	}, nil
}
