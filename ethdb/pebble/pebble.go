// Copyright 2023 The go-ethereum Authors
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

// Package pebble implements the key-value database layer based on pebble.
package pebble

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/log"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to
	// pebble caching.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// Database is a persistent key-value store based on the pebble storage engine.
type Database struct {
	db  *pebble.DB
	log log.Logger
	wo  *pebble.WriteOptions

	mu     sync.RWMutex // held for reading by every operation, for writing by Close
	closed bool
}

// pebbleLogger routes pebble's internal messages into the node log.
type pebbleLogger struct {
	log log.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	panic(fmt.Errorf("pebble: "+format, args...))
}

// New opens the pebble database in dir.
func New(dir string, cache int, handles int, readonly bool) (*Database, error) {
	return open(dir, cache, handles, readonly, nil)
}

// NewInMemory returns a pebble database backed by an in-memory filesystem.
func NewInMemory() (*Database, error) {
	return open("", minCache, minHandles, false, vfs.NewMem())
}

func open(dir string, cache int, handles int, readonly bool, fs vfs.FS) (*Database, error) {
	cache = max(cache, minCache)
	handles = max(handles, minHandles)

	logger := log.New("database", dir)
	logger.Info("Allocated cache and file handles", "cache", cache*1024*1024, "handles", handles, "readonly", readonly)

	db := &Database{log: logger, wo: pebble.NoSync}
	levels := make([]pebble.LevelOptions, 4)
	for i := range levels {
		levels[i] = pebble.LevelOptions{
			TargetFileSize: int64(2<<i) * 1024 * 1024,
			FilterPolicy:   bloom.FilterPolicy(10),
		}
	}
	opt := &pebble.Options{
		// The memtables are carved from the cache allowance: one live and
		// one being flushed.
		Cache:                       pebble.NewCache(int64(cache * 1024 * 1024)),
		MemTableSize:                uint64(cache * 1024 * 1024 / 4),
		MemTableStopWritesThreshold: 2,
		MaxOpenFiles:                handles,
		MaxConcurrentCompactions:    runtime.NumCPU,
		Levels:                      levels,
		ReadOnly:                    readonly,
		Logger:                      pebbleLogger{logger},
		EventListener: &pebble.EventListener{
			WriteStallBegin: func(info pebble.WriteStallBeginInfo) {
				logger.Warn("Database compacting, degraded performance", "reason", info.Reason)
			},
			WriteStallEnd: func() {
				logger.Info("Database compaction finished")
			},
		},
	}
	if fs != nil {
		opt.FS = fs
	}
	inner, err := pebble.Open(dir, opt)
	if err != nil {
		return nil, err
	}
	db.db = inner
	return db, nil
}

// Close flushes any pending data to disk and closes the store. Closing twice
// is allowed.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (d *Database) Has(key []byte) (bool, error) {
	_, err := d.Get(key)
	switch {
	case errors.Is(err, ethdb.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (d *Database) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ethdb.ErrClosed
	}
	dat, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ethdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte{}, dat...), nil
}

// Put inserts the given value into the key-value store.
func (d *Database) Put(key []byte, value []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ethdb.ErrClosed
	}
	return d.db.Set(key, value, d.wo)
}

// Delete removes the key from the key-value store.
func (d *Database) Delete(key []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ethdb.ErrClosed
	}
	return d.db.Delete(key, d.wo)
}

// NewBatch creates a batch committed atomically on Write.
func (d *Database) NewBatch() ethdb.Batch {
	return &batch{b: d.db.NewBatch(), db: d}
}

// Stat returns pebble's internal metrics in text form.
func (d *Database) Stat() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return "", ethdb.ErrClosed
	}
	return d.db.Metrics().String(), nil
}

// NewIterator creates a binary-alphabetical iterator over the keys carrying
// prefix, starting at prefix+start.
func (d *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	lower, upper := ethdb.KeyRange(prefix, start)
	iter, err := d.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return &iterator{err: err}
	}
	iter.First()
	return &iterator{iter: iter, first: true}
}

// batch is a pebble batch bound to its database.
type batch struct {
	b  *pebble.Batch
	db *Database
}

func (b *batch) Put(key, value []byte) error {
	return b.b.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	return b.b.Delete(key, nil)
}

func (b *batch) Write() error {
	b.db.mu.RLock()
	defer b.db.mu.RUnlock()

	if b.db.closed {
		return ethdb.ErrClosed
	}
	return b.b.Commit(b.db.wo)
}

func (b *batch) Reset() {
	b.b.Reset()
}

// iterator adapts a positioned pebble iterator to ethdb.Iterator, where the
// first Next lands on the first entry.
type iterator struct {
	iter  *pebble.Iterator
	first bool
	err   error
}

func (it *iterator) Next() bool {
	if it.iter == nil {
		return false
	}
	if it.first {
		it.first = false
		return it.iter.Valid()
	}
	return it.iter.Next()
}

func (it *iterator) Error() error {
	if it.iter == nil {
		return it.err
	}
	return it.iter.Error()
}

func (it *iterator) Key() []byte {
	if it.iter == nil || !it.iter.Valid() {
		return nil
	}
	return it.iter.Key()
}

func (it *iterator) Value() []byte {
	if it.iter == nil || !it.iter.Valid() {
		return nil
	}
	return it.iter.Value()
}

func (it *iterator) Release() {
	if it.iter != nil {
		it.iter.Close()
		it.iter = nil
	}
}
