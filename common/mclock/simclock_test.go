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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Clock = System{}
	_ Clock = new(Simulated)
)

func fired(t ChanTimer) (AbsTime, bool) {
	select {
	case at := <-t.C():
		return at, true
	default:
		return 0, false
	}
}

func TestSimulatedTimer(t *testing.T) {
	var c Simulated
	c.Run(time.Hour)

	timer := c.NewTimer(30 * time.Minute)
	c.Run(29 * time.Minute)
	_, ok := fired(timer)
	require.False(t, ok, "fired early")

	c.Run(2 * time.Minute)
	at, ok := fired(timer)
	require.True(t, ok)
	assert.Equal(t, AbsTime(90*time.Minute), at)
	assert.Equal(t, AbsTime(91*time.Minute), c.Now())
	assert.Zero(t, c.ActiveTimers())

	timer.Reset(time.Minute)
	c.Run(time.Minute)
	at, ok = fired(timer)
	require.True(t, ok)
	assert.Equal(t, AbsTime(92*time.Minute), at)
}

func TestSimulatedTimerStop(t *testing.T) {
	var c Simulated

	first, second := c.NewTimer(2*time.Second), c.NewTimer(time.Second)
	assert.Equal(t, 2, c.ActiveTimers())
	assert.True(t, first.Stop())
	assert.False(t, first.Stop())
	assert.Equal(t, 1, c.ActiveTimers())

	c.Run(3 * time.Second)
	_, ok := fired(first)
	assert.False(t, ok)
	_, ok = fired(second)
	assert.True(t, ok)
	assert.False(t, second.Stop(), "stopped after firing")
}

func TestSimulatedWaitForTimers(t *testing.T) {
	var c Simulated
	done := make(chan struct{})
	go func() {
		c.WaitForTimers(2)
		close(done)
	}()
	c.NewTimer(time.Second)
	c.NewTimer(time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForTimers did not return")
	}
}

func TestSystemTimer(t *testing.T) {
	timer := System{}.NewTimer(time.Millisecond)
	select {
	case at := <-timer.C():
		assert.Positive(t, int64(at))
	case <-time.After(5 * time.Second):
		t.Fatal("timer didn't fire")
	}
	assert.False(t, timer.Stop())
}
