// Package pool provides the single-slot exclusivity guard used by a server
// endpoint to serialize multithread-mode access to its one socket.
//
// This is deliberately not a connection pool: MemcacheDB endpoints hold
// exactly one connection per (client, server) pair (see the Non-goals in
// SPEC_FULL.md §1), so there is never more than one resource to hand out.
// What the guard keeps from the teacher's pool implementation is the
// semaphore-based acquire-with-timeout discipline, narrowed to capacity 1.
package pool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

const token int64 = 1

var (
	// ErrClosed is returned by Acquire once the slot has been destroyed.
	ErrClosed = fmt.Errorf("pool: slot is closed")
	// ErrAcquireTimeout is returned when the slot could not be acquired
	// within the configured timeout, i.e. another goroutine is holding it.
	ErrAcquireTimeout = fmt.Errorf("pool: timeout acquiring socket slot")
)

// Slot is a capacity-1 semaphore guarding a single shared resource (an
// endpoint's socket). It is safe for concurrent use.
type Slot struct {
	sema    *semaphore.Weighted
	timeout time.Duration
	closed  chan struct{}
}

// NewSlot creates a Slot that blocks Acquire for at most timeout before
// returning ErrAcquireTimeout.
func NewSlot(timeout time.Duration) *Slot {
	return &Slot{
		sema:    semaphore.NewWeighted(token),
		timeout: timeout,
		closed:  make(chan struct{}),
	}
}

// Acquire blocks until the slot is free, the timeout elapses, or ctx is
// done, whichever happens first.
func (s *Slot) Acquire(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}

	actx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.sema.Acquire(actx, token); err != nil {
		return ErrAcquireTimeout
	}

	if s.isClosed() {
		s.sema.Release(token)
		return ErrClosed
	}

	return nil
}

// Release frees the slot for the next acquirer.
func (s *Slot) Release() {
	s.sema.Release(token)
}

// Destroy permanently closes the slot; subsequent Acquire calls fail fast.
func (s *Slot) Destroy() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

func (s *Slot) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
