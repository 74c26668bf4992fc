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

package mclock

import (
	"slices"
	"sync"
	"time"
)

// Simulated is a Clock on a virtual timescale. Time stands still until Run
// advances it, firing every timer that falls due on the way. The zero value
// is ready to use.
type Simulated struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     AbsTime
	pending []*simTimer // ordered by deadline
}

type simTimer struct {
	s  *Simulated
	at AbsTime
	ch chan AbsTime
}

// lock acquires the clock, creating the condition variable on first use.
func (s *Simulated) lock() {
	s.mu.Lock()
	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}
}

// Run advances the clock by d, firing due timers in deadline order.
func (s *Simulated) Run(d time.Duration) {
	s.lock()
	defer s.mu.Unlock()

	end := s.now.Add(d)
	for len(s.pending) > 0 && s.pending[0].at <= end {
		t := s.pending[0]
		s.pending = s.pending[1:]
		s.now = t.at
		select {
		case t.ch <- t.at:
		default:
		}
	}
	s.now = end
}

// Now returns the current virtual time.
func (s *Simulated) Now() AbsTime {
	s.lock()
	defer s.mu.Unlock()

	return s.now
}

// ActiveTimers returns the number of timers that haven't fired.
func (s *Simulated) ActiveTimers() int {
	s.lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// WaitForTimers blocks until at least n timers are scheduled.
func (s *Simulated) WaitForTimers(n int) {
	s.lock()
	defer s.mu.Unlock()

	for len(s.pending) < n {
		s.cond.Wait()
	}
}

// NewTimer creates a timer firing once the clock advanced by d.
func (s *Simulated) NewTimer(d time.Duration) ChanTimer {
	s.lock()
	defer s.mu.Unlock()

	t := &simTimer{s: s, ch: make(chan AbsTime, 1)}
	s.schedule(t, d)
	return t
}

// schedule queues t to fire d from now. The clock must be locked.
func (s *Simulated) schedule(t *simTimer, d time.Duration) {
	t.at = s.now.Add(d)
	i, _ := slices.BinarySearchFunc(s.pending, t.at, func(st *simTimer, at AbsTime) int {
		if st.at <= at {
			return -1
		}
		return 1
	})
	s.pending = slices.Insert(s.pending, i, t)
	s.cond.Broadcast()
}

// unschedule drops t from the queue and reports whether it was queued. The
// clock must be locked.
func (s *Simulated) unschedule(t *simTimer) bool {
	i := slices.Index(s.pending, t)
	if i < 0 {
		return false
	}
	s.pending = slices.Delete(s.pending, i, i+1)
	return true
}

func (t *simTimer) C() <-chan AbsTime {
	return t.ch
}

func (t *simTimer) Stop() bool {
	t.s.lock()
	defer t.s.mu.Unlock()

	return t.s.unschedule(t)
}

func (t *simTimer) Reset(d time.Duration) {
	t.s.lock()
	defer t.s.mu.Unlock()

	t.s.unschedule(t)
	t.s.schedule(t, d)
}
