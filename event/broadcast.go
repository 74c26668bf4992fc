// Copyright 2024 The go-txcore Authors
// This file is part of the go-txcore library.
//
// The go-txcore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-txcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-txcore library. If not, see <http://www.gnu.org/licenses/>.

package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned by a receiver once the broadcast is closed and every
	// buffered value has been consumed, or after the receiver unsubscribed.
	ErrClosed = errors.New("broadcast closed")

	// ErrEmpty is returned by TryRecv when no value is pending.
	ErrEmpty = errors.New("broadcast empty")
)

// LaggedError is returned by a receiver that fell further behind the sender than
// the broadcast capacity. Skipped values are gone; the next receive continues
// with the oldest value still retained.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("receiver lagged, %d messages skipped", e.Skipped)
}

// Broadcast is a bounded multi-producer multi-consumer topic. Every receiver
// observes every value sent after it subscribed, unless it falls behind by more
// than the capacity, in which case the oldest values are overwritten and the
// receiver is told how many it missed.
//
// Send never blocks, and succeeds with zero receivers.
type Broadcast[T any] struct {
	mu        sync.Mutex
	ring      []T
	tail      uint64        // sequence number of the next value to be written
	notify    chan struct{} // closed and replaced on every send
	receivers int
	closed    bool
}

// NewBroadcast creates a topic retaining up to capacity values per receiver.
func NewBroadcast[T any](capacity int) *Broadcast[T] {
	if capacity <= 0 {
		panic("event: broadcast capacity must be positive")
	}
	return &Broadcast[T]{
		ring:   make([]T, capacity),
		notify: make(chan struct{}),
	}
}

// Send publishes a value and returns the number of receivers subscribed at the
// time of sending. Sending on a closed topic is a no-op.
func (b *Broadcast[T]) Send(value T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	b.ring[b.tail%uint64(len(b.ring))] = value
	b.tail++

	close(b.notify)
	b.notify = make(chan struct{})
	return b.receivers
}

// Subscribe creates a receiver observing all values sent from now on.
func (b *Broadcast[T]) Subscribe() *Receiver[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return &Receiver[T]{b: b, next: b.tail}
	}
	b.receivers++
	return &Receiver[T]{b: b, next: b.tail, active: true}
}

// Receivers returns the number of live receivers.
func (b *Broadcast[T]) Receivers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receivers
}

// Close marks the topic closed. Receivers drain whatever is still buffered and
// then get ErrClosed.
func (b *Broadcast[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Receiver is one subscriber's cursor into a Broadcast.
type Receiver[T any] struct {
	b      *Broadcast[T]
	next   uint64
	active bool
}

// recvLocked pops the next value. ok is false if nothing is pending.
func (r *Receiver[T]) recvLocked() (value T, ok bool, err error) {
	b := r.b
	if !r.active {
		return value, true, ErrClosed
	}
	size := uint64(len(b.ring))
	if b.tail > size && r.next < b.tail-size {
		oldest := b.tail - size
		skipped := oldest - r.next
		r.next = oldest
		return value, true, &LaggedError{Skipped: skipped}
	}
	if r.next < b.tail {
		value = b.ring[r.next%size]
		r.next++
		return value, true, nil
	}
	if b.closed {
		return value, true, ErrClosed
	}
	return value, false, nil
}

// TryRecv returns the next pending value without blocking. It returns ErrEmpty
// if there is none.
func (r *Receiver[T]) TryRecv() (T, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()

	v, ok, err := r.recvLocked()
	if !ok {
		return v, ErrEmpty
	}
	return v, err
}

// Recv waits for the next value. A *LaggedError reports values the receiver
// missed; receiving again resumes with the oldest retained value.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		r.b.mu.Lock()
		v, ok, err := r.recvLocked()
		wait := r.b.notify
		r.b.mu.Unlock()

		if ok {
			return v, err
		}
		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of values buffered for this receiver, capped at the
// topic capacity.
func (r *Receiver[T]) Len() int {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()

	n := r.b.tail - r.next
	if size := uint64(len(r.b.ring)); n > size {
		n = size
	}
	return int(n)
}

// Unsubscribe detaches the receiver. Further receives return ErrClosed.
func (r *Receiver[T]) Unsubscribe() {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()

	if r.active {
		r.active = false
		r.b.receivers--
	}
}
