package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Locker serializes refresh runs. Acquire fails with
// types.ErrRunInProgress while another holder has the lock.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func() error, err error)
}

// LocalLocker serializes runs inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

func (l *LocalLocker) Acquire(ctx context.Context, name string) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, fmt.Errorf("lock %q: %w", name, types.ErrRunInProgress)
	}
	l.held[name] = true

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
