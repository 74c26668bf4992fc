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

// Package debug wires logging and runtime profiling to the command line.
package debug

import (
	"errors"
	"io"
	"os"
	"runtime/pprof"
	"runtime/trace"
	"sync"

	"github.com/sunyihoo/go-txcore/internal/flags"
	"github.com/sunyihoo/go-txcore/log"
)

// recording is a runtime profile streaming into a file until stopped.
type recording struct {
	name string
	file *os.File
	stop func()
}

var (
	recMu      sync.Mutex
	recordings = make(map[string]*recording)
)

// startRecording creates path and starts the named profile writing into it.
// A profile can only run once at a time.
func startRecording(name, path string, start func(io.Writer) error, stop func()) error {
	recMu.Lock()
	defer recMu.Unlock()

	if _, ok := recordings[name]; ok {
		return errors.New(name + " already in progress")
	}
	path = flags.ExpandPath(path)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := start(f); err != nil {
		f.Close()
		return err
	}
	recordings[name] = &recording{name: name, file: f, stop: stop}
	log.Info("Started "+name, "dump", path)
	return nil
}

// stopRecordings stops every running profile and closes its file.
func stopRecordings() {
	recMu.Lock()
	defer recMu.Unlock()

	for name, rec := range recordings {
		rec.stop()
		if err := rec.file.Close(); err != nil {
			log.Warn("Failed to close "+name, "err", err)
		} else {
			log.Info("Done writing "+name, "dump", rec.file.Name())
		}
		delete(recordings, name)
	}
}

// StartCPUProfile turns on CPU profiling, writing to the given file.
func StartCPUProfile(path string) error {
	return startRecording("CPU profile", path, pprof.StartCPUProfile, pprof.StopCPUProfile)
}

// StartGoTrace turns on execution tracing, writing to the given file.
func StartGoTrace(path string) error {
	return startRecording("Go trace", path, trace.Start, trace.Stop)
}
