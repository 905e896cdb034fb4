package iap

import (
	"context"
	"sync/atomic"
)

// Limiter bounds the number of in-flight IAP calls.
type Limiter struct {
	slots  chan struct{}
	active atomic.Int64
}

// NewLimiter creates a limiter allowing max concurrent calls.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		max = 20
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of calls currently holding a slot.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the configured maximum.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}
