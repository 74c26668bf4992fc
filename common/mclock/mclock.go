// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package mclock provides the monotonic clock used for pool timestamps and
// the block production timer, plus a simulated clock for tests.
package mclock

import "time"

// start anchors AbsTime to the monotonic reading at process start.
var start = time.Now()

// AbsTime represents absolute monotonic time.
type AbsTime int64

// Now returns the current absolute monotonic time.
func Now() AbsTime {
	return AbsTime(time.Since(start))
}

// Add returns t + d as absolute time.
func (t AbsTime) Add(d time.Duration) AbsTime {
	return t + AbsTime(d)
}

// Sub returns t - t2 as a duration.
func (t AbsTime) Sub(t2 AbsTime) time.Duration {
	return time.Duration(t - t2)
}

// Clock is a source of monotonic time and timers.
type Clock interface {
	Now() AbsTime
	NewTimer(time.Duration) ChanTimer
}

// ChanTimer is a reschedulable timer delivering its expiry on a channel.
type ChanTimer interface {
	// C receives the expiry time when the timer fires.
	C() <-chan AbsTime

	// Stop cancels the timer. It returns false if the timer has already
	// expired or been stopped.
	Stop() bool

	// Reset reschedules the timer. It should only be called on stopped or
	// expired timers with drained channels.
	Reset(time.Duration)
}

// System implements Clock using the system clock.
type System struct{}

// Now returns the current monotonic time.
func (System) Now() AbsTime {
	return Now()
}

// NewTimer creates a timer firing after d.
func (System) NewTimer(d time.Duration) ChanTimer {
	st := &systemTimer{ch: make(chan AbsTime, 1)}
	st.t = time.AfterFunc(d, func() {
		select {
		case st.ch <- Now():
		default:
		}
	})
	return st
}

type systemTimer struct {
	t  *time.Timer
	ch chan AbsTime
}

func (st *systemTimer) C() <-chan AbsTime { return st.ch }

func (st *systemTimer) Stop() bool { return st.t.Stop() }

func (st *systemTimer) Reset(d time.Duration) { st.t.Reset(d) }
