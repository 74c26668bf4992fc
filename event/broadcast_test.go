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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroadcastNoReceivers(t *testing.T) {
	b := NewBroadcast[int](4)
	for i := 0; i < 10; i++ {
		require.Zero(t, b.Send(i))
	}
}

func TestBroadcastFanOut(t *testing.T) {
	b := NewBroadcast[int](8)
	r1, r2 := b.Subscribe(), b.Subscribe()

	require.Equal(t, 2, b.Send(1))
	require.Equal(t, 2, b.Send(2))

	for _, r := range []*Receiver[int]{r1, r2} {
		v, err := r.TryRecv()
		require.NoError(t, err)
		require.Equal(t, 1, v)
		v, err = r.TryRecv()
		require.NoError(t, err)
		require.Equal(t, 2, v)
		_, err = r.TryRecv()
		require.ErrorIs(t, err, ErrEmpty)
	}
}

func TestBroadcastLagged(t *testing.T) {
	b := NewBroadcast[int](3)
	r := b.Subscribe()
	for i := 0; i < 5; i++ {
		b.Send(i)
	}
	require.Equal(t, 3, r.Len())

	_, err := r.TryRecv()
	var lagged *LaggedError
	require.True(t, errors.As(err, &lagged))
	require.Equal(t, uint64(2), lagged.Skipped)

	for want := 2; want < 5; want++ {
		v, err := r.TryRecv()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
	_, err = r.TryRecv()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestBroadcastLateSubscriber(t *testing.T) {
	b := NewBroadcast[string](4)
	b.Send("early")
	r := b.Subscribe()
	b.Send("late")

	v, err := r.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "late", v)
}

func TestBroadcastRecvWaits(t *testing.T) {
	b := NewBroadcast[int](4)
	r := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan int)
	go func() {
		v, err := r.Recv(ctx)
		if err != nil {
			close(done)
			return
		}
		done <- v
	}()
	b.Send(42)
	require.Equal(t, 42, <-done)
}

func TestBroadcastRecvCancel(t *testing.T) {
	b := NewBroadcast[int](4)
	r := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Recv(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBroadcastClose(t *testing.T) {
	b := NewBroadcast[int](4)
	r := b.Subscribe()
	b.Send(1)
	b.Close()
	require.Zero(t, b.Send(2))

	v, err := r.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
	_, err = r.Recv(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	_, err = b.Subscribe().TryRecv()
	require.ErrorIs(t, err, ErrClosed)
}

func TestBroadcastUnsubscribe(t *testing.T) {
	b := NewBroadcast[int](4)
	r := b.Subscribe()
	require.Equal(t, 1, b.Receivers())

	r.Unsubscribe()
	r.Unsubscribe()
	require.Zero(t, b.Receivers())
	require.Zero(t, b.Send(1))

	_, err := r.TryRecv()
	require.ErrorIs(t, err, ErrClosed)
}

func TestBroadcastConcurrentSenders(t *testing.T) {
	const (
		senders = 4
		each    = 50
	)
	b := NewBroadcast[int](senders * each)
	r := b.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				b.Send(j)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, senders*each, r.Len())
}
