// Copyright 2018 The go-ethereum Authors
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

// Package memorydb implements the ephemeral key-value store backing the
// memory database engine and tests.
package memorydb

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/ethdb"
)

// op is a single staged write. A nil value deletes the key.
type op struct {
	key   string
	value []byte
}

// Database is a map backed key-value store. Iterators work on a sorted
// snapshot taken when they are created.
type Database struct {
	mu sync.RWMutex
	kv map[string][]byte // nil once closed
}

// New creates an empty memory database.
func New() *Database {
	return &Database{kv: make(map[string][]byte)}
}

// Close drops the content. Any later access fails with ethdb.ErrClosed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.kv = nil
	return nil
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.kv == nil {
		return false, ethdb.ErrClosed
	}
	_, ok := db.kv[string(key)]
	return ok, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.kv == nil {
		return nil, ethdb.ErrClosed
	}
	val, ok := db.kv[string(key)]
	if !ok {
		return nil, ethdb.ErrNotFound
	}
	return common.CopyBytes(val), nil
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return db.apply([]op{{string(key), common.CopyBytes(value)}})
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.apply([]op{{key: string(key)}})
}

// apply performs ops in order under a single write lock.
func (db *Database) apply(ops []op) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.kv == nil {
		return ethdb.ErrClosed
	}
	for _, o := range ops {
		if o.value == nil {
			delete(db.kv, o.key)
		} else {
			db.kv[o.key] = o.value
		}
	}
	return nil
}

// NewBatch creates a batch applied to the store in one step on Write.
func (db *Database) NewBatch() ethdb.Batch {
	return &batch{db: db}
}

// NewIterator creates a binary-alphabetical iterator over the keys carrying
// prefix, starting at prefix+start.
func (db *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	lower, upper := ethdb.KeyRange(prefix, start)
	it := &iterator{index: -1}
	for key, val := range db.kv {
		if ethdb.InRange([]byte(key), lower, upper) {
			it.items = append(it.items, op{key, val})
		}
	}
	slices.SortFunc(it.items, func(a, b op) int {
		return bytes.Compare([]byte(a.key), []byte(b.key))
	})
	return it
}

// Stat reports the number of entries and their total size.
func (db *Database) Stat() (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.kv == nil {
		return "", ethdb.ErrClosed
	}
	var size int
	for key, val := range db.kv {
		size += len(key) + len(val)
	}
	return fmt.Sprintf("entries=%d size=%v", len(db.kv), common.StorageSize(size)), nil
}

// Len returns the number of entries. It does not check for closed-ness.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.kv)
}

// batch collects writes until Write. A batch cannot be used concurrently.
type batch struct {
	db  *Database
	ops []op
}

func (b *batch) Put(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	b.ops = append(b.ops, op{string(key), common.CopyBytes(value)})
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, op{key: string(key)})
	return nil
}

func (b *batch) Write() error {
	return b.db.apply(b.ops)
}

func (b *batch) Reset() {
	b.ops = b.ops[:0]
}

// iterator walks a sorted snapshot of the store.
type iterator struct {
	index int
	items []op
}

func (it *iterator) Next() bool {
	if it.index < len(it.items) {
		it.index++
	}
	return it.index < len(it.items)
}

func (it *iterator) Error() error { return nil }

func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.items) {
		return nil
	}
	return []byte(it.items[it.index].key)
}

func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.items) {
		return nil
	}
	return it.items[it.index].value
}

func (it *iterator) Release() {
	it.index, it.items = -1, nil
}
