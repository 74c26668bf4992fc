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

package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testShared struct {
	runs atomic.Int64
}

type testService struct {
	shared   *testShared
	intoErr  error
	runErr   error
	stopAt   int64 // stop after this many runs, zero runs forever
	shutdown atomic.Bool
}

func (s *testService) Name() string            { return "test" }
func (s *testService) SharedData() *testShared { return s.shared }
func (s *testService) Into() (RunnableTask, error) {
	if s.intoErr != nil {
		return nil, s.intoErr
	}
	return &testTask{svc: s}, nil
}

type testTask struct {
	svc *testService
}

func (t *testTask) Run(w *StateWatcher) (bool, error) {
	n := t.svc.shared.runs.Add(1)
	if t.svc.stopAt != 0 && n >= t.svc.stopAt {
		return false, nil
	}
	select {
	case <-w.Stopping():
		return false, nil
	case <-time.After(time.Millisecond):
		return true, t.svc.runErr
	}
}

func (t *testTask) Shutdown() error {
	t.svc.shutdown.Store(true)
	return nil
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunnerLifecycle(t *testing.T) {
	svc := &testService{shared: new(testShared)}
	r := New[*testShared](svc)
	assert.Equal(t, NotStarted, r.State())
	assert.Same(t, svc.shared, r.Shared())

	st, err := r.StartAndAwait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, Started, st)
	assert.ErrorIs(t, r.Start(), ErrAlreadyStarted)

	require.Eventually(t, func() bool { return svc.shared.runs.Load() > 2 }, time.Second, time.Millisecond)

	st, err = r.StopAndAwait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, Stopped, st)
	assert.True(t, svc.shutdown.Load())
	assert.False(t, r.Stop())
	assert.ErrorIs(t, r.Start(), ErrStopped)
}

func TestRunnerTaskErrorsKeepRunning(t *testing.T) {
	svc := &testService{shared: new(testShared), runErr: errors.New("transient")}
	r := New[*testShared](svc)
	_, err := r.StartAndAwait(testContext(t))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return svc.shared.runs.Load() > 3 }, time.Second, time.Millisecond)
	assert.Equal(t, Started, r.State())

	_, err = r.StopAndAwait(testContext(t))
	require.NoError(t, err)
}

func TestRunnerTaskFinishes(t *testing.T) {
	svc := &testService{shared: new(testShared), stopAt: 3}
	r := New[*testShared](svc)
	require.NoError(t, r.Start())

	ctx := testContext(t)
	st, err := r.await(ctx, func(s State) bool { return s == Stopped })
	require.NoError(t, err)
	assert.Equal(t, Stopped, st)
	assert.Equal(t, int64(3), svc.shared.runs.Load())
	assert.True(t, svc.shutdown.Load())
}

func TestRunnerIntoFailure(t *testing.T) {
	failure := errors.New("no database")
	svc := &testService{shared: new(testShared), intoErr: failure}
	r := New[*testShared](svc)

	st, err := r.StartAndAwait(testContext(t))
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, Stopped, st)
	assert.Equal(t, int64(0), svc.shared.runs.Load())
}

func TestStopBeforeStart(t *testing.T) {
	r := New[*testShared](&testService{shared: new(testShared)})
	assert.True(t, r.Stop())
	assert.Equal(t, Stopped, r.State())
	assert.ErrorIs(t, r.Start(), ErrStopped)
}
