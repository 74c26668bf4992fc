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

// Package service runs long-lived tasks with a managed lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sunyihoo/go-txcore/log"
)

// State is the lifecycle state of a service.
type State int

const (
	NotStarted State = iota
	Starting
	Started
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrStopped        = errors.New("service stopped")
)

// RunnableTask is one iteration-driven unit of work.
type RunnableTask interface {
	// Run performs one iteration. It returns false if the task should not be
	// run again. A returned error is logged and the task keeps running if
	// asked to.
	Run(watcher *StateWatcher) (bool, error)

	// Shutdown releases the task's resources once it stopped running.
	Shutdown() error
}

// RunnableService builds the task of a service when the service starts, and
// exposes data shared with the outside while it runs.
type RunnableService[S any] interface {
	Name() string
	SharedData() S
	Into() (RunnableTask, error)
}

// StateWatcher observes the state of a running service.
type StateWatcher struct {
	r *state
}

// State returns the current state.
func (w *StateWatcher) State() State {
	return w.r.get()
}

// Stopping returns a channel that is closed once the service leaves the
// Started state.
func (w *StateWatcher) Stopping() <-chan struct{} {
	return w.r.stopping
}

type state struct {
	mu       sync.Mutex
	current  State
	err      error
	stopping chan struct{} // closed when leaving Started
	changed  chan struct{} // closed and replaced on every transition
}

func (s *state) get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// set moves to next and wakes up waiters.
func (s *state) set(next State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(next, err)
}

func (s *state) transition(next State, err error) {
	if s.current == Started && next != Started {
		close(s.stopping)
	}
	s.current = next
	if err != nil {
		s.err = err
	}
	close(s.changed)
	s.changed = make(chan struct{})
}

// Runner drives a RunnableService through its lifecycle on its own goroutine.
type Runner[S any] struct {
	service RunnableService[S]
	state   *state
	shared  S

	startOnce sync.Once
}

// New creates a runner for svc. The service is not started.
func New[S any](svc RunnableService[S]) *Runner[S] {
	return &Runner[S]{
		service: svc,
		shared:  svc.SharedData(),
		state: &state{
			stopping: make(chan struct{}),
			changed:  make(chan struct{}),
		},
	}
}

// Shared returns the data the service shares with the outside.
func (r *Runner[S]) Shared() S {
	return r.shared
}

// State returns the current state of the service.
func (r *Runner[S]) State() State {
	return r.state.get()
}

// Err returns the error the service stopped with, if any.
func (r *Runner[S]) Err() error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return r.state.err
}

// Start launches the service. It returns immediately.
func (r *Runner[S]) Start() error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	switch r.state.current {
	case NotStarted:
	case Stopped, Stopping:
		return ErrStopped
	default:
		return ErrAlreadyStarted
	}
	r.state.transition(Starting, nil)
	go r.run()
	return nil
}

// StartAndAwait launches the service and waits until it started or failed to.
func (r *Runner[S]) StartAndAwait(ctx context.Context) (State, error) {
	if err := r.Start(); err != nil {
		return r.State(), err
	}
	st, err := r.await(ctx, func(s State) bool { return s != Starting })
	if err != nil {
		return st, err
	}
	if st != Started {
		return st, r.Err()
	}
	return st, nil
}

// Stop requests the service to stop. It returns false if the service was not
// running.
func (r *Runner[S]) Stop() bool {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	switch r.state.current {
	case NotStarted:
		r.state.transition(Stopped, nil)
		return true
	case Starting, Started:
		r.state.transition(Stopping, nil)
		return true
	default:
		return false
	}
}

// StopAndAwait requests the service to stop and waits until it stopped.
func (r *Runner[S]) StopAndAwait(ctx context.Context) (State, error) {
	r.Stop()
	return r.await(ctx, func(s State) bool { return s == Stopped })
}

// await blocks until cond holds for the current state.
func (r *Runner[S]) await(ctx context.Context, cond func(State) bool) (State, error) {
	for {
		r.state.mu.Lock()
		current, changed := r.state.current, r.state.changed
		r.state.mu.Unlock()

		if cond(current) {
			return current, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return current, ctx.Err()
		}
	}
}

func (r *Runner[S]) run() {
	name := r.service.Name()
	logger := log.New("service", name)

	task, err := r.service.Into()
	if err != nil {
		logger.Error("Failed to start service", "err", err)
		r.state.set(Stopped, err)
		return
	}
	r.state.mu.Lock()
	if r.state.current != Starting {
		// Stopped before the task was built
		r.state.mu.Unlock()
		r.shutdown(logger, task)
		return
	}
	r.state.transition(Started, nil)
	r.state.mu.Unlock()
	logger.Info("Service started")

	watcher := &StateWatcher{r: r.state}
	for watcher.State() == Started {
		cont, err := task.Run(watcher)
		if err != nil {
			logger.Error("Service task failed", "err", err)
		}
		if !cont {
			break
		}
	}
	r.shutdown(logger, task)
}

func (r *Runner[S]) shutdown(logger log.Logger, task RunnableTask) {
	r.state.mu.Lock()
	if r.state.current != Stopped {
		r.state.transition(Stopping, nil)
	}
	r.state.mu.Unlock()

	if err := task.Shutdown(); err != nil {
		logger.Error("Service shutdown failed", "err", err)
	}
	r.state.set(Stopped, nil)
	logger.Info("Service stopped")
}
