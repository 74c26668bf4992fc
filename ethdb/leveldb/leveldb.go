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

// Package leveldb implements the key-value database layer based on LevelDB.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// Database is a persistent key-value store based on LevelDB.
type Database struct {
	db *leveldb.DB
}

// New opens the LevelDB database in dir, recovering it if it is corrupted.
func New(dir string, cache int, handles int, readonly bool) (*Database, error) {
	cache = max(cache, minCache)
	handles = max(handles, minHandles)

	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB, // two of these are used internally
		ReadOnly:               readonly,
	}
	log.Info("Allocated cache and file handles", "database", dir, "cache", common.StorageSize(cache*opt.MiB), "handles", handles, "readonly", readonly)

	db, err := leveldb.OpenFile(dir, options)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		log.Warn("Recovering corrupted database", "database", dir, "err", err)
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// Wrap wraps an already opened LevelDB instance.
func Wrap(db *leveldb.DB) *Database {
	return &Database{db: db}
}

// Close closes the underlying database.
func (db *Database) Close() error {
	return db.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	ok, err := db.db.Has(key, nil)
	return ok, convertError(err)
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(key, nil)
	if err != nil {
		return nil, convertError(err)
	}
	return dat, nil
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	return convertError(db.db.Put(key, value, nil))
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return convertError(db.db.Delete(key, nil))
}

// NewBatch creates a batch committed atomically on Write.
func (db *Database) NewBatch() ethdb.Batch {
	return &batch{db: db.db, b: new(leveldb.Batch)}
}

// NewIterator creates a binary-alphabetical iterator over the keys carrying
// prefix, starting at prefix+start.
func (db *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	lower, upper := ethdb.KeyRange(prefix, start)
	return db.db.NewIterator(&util.Range{Start: lower, Limit: upper}, nil)
}

// Stat returns a short summary of the database internals.
func (db *Database) Stat() (string, error) {
	var stats leveldb.DBStats
	if err := db.db.Stats(&stats); err != nil {
		return "", convertError(err)
	}
	return fmt.Sprintf("read=%v write=%v tables=%d compactions=%d/%d/%d",
		common.StorageSize(stats.IORead), common.StorageSize(stats.IOWrite),
		stats.OpenedTablesCount, stats.MemComp, stats.Level0Comp, stats.NonLevel0Comp), nil
}

// convertError maps LevelDB's sentinel errors onto the ethdb ones.
func convertError(err error) error {
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return ethdb.ErrNotFound
	case errors.Is(err, leveldb.ErrClosed):
		return ethdb.ErrClosed
	}
	return err
}

// batch is a LevelDB batch bound to its database.
type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Write() error {
	return convertError(b.db.Write(b.b, nil))
}

func (b *batch) Reset() {
	b.b.Reset()
}
