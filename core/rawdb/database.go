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

package rawdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/ethdb/leveldb"
	"github.com/sunyihoo/go-txcore/ethdb/memorydb"
	"github.com/sunyihoo/go-txcore/ethdb/pebble"
	"github.com/sunyihoo/go-txcore/log"
)

const (
	DBPebble  = "pebble"
	DBLeveldb = "leveldb"
	DBMemory  = "memory"
)

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase() ethdb.KeyValueStore {
	return memorydb.New()
}

// OpenOptions contains the options to apply when opening a database.
type OpenOptions struct {
	Type      string // "leveldb" | "pebble" | "memory"
	Directory string // the datadir
	Cache     int    // the capacity(in megabytes) of the data caching
	Handles   int    // number of files to be open simultaneously
	ReadOnly  bool
}

// Open opens a key-value database with the requested engine. A pre-existing
// database in the directory decides the engine when none is requested, and
// pebble is the default for a fresh directory.
func Open(o OpenOptions) (ethdb.KeyValueStore, error) {
	if o.Type == DBMemory || (o.Type == "" && o.Directory == "") {
		log.Info("Using in-memory database")
		return NewMemoryDatabase(), nil
	}
	// Reject any unsupported database type
	if len(o.Type) != 0 && o.Type != DBLeveldb && o.Type != DBPebble {
		return nil, fmt.Errorf("unknown db.engine %v", o.Type)
	}
	// Retrieve any pre-existing database's type and use that or the requested one
	// as long as there's no conflict between the two types
	existingDb := PreexistingDatabase(o.Directory)
	if len(existingDb) != 0 && len(o.Type) != 0 && o.Type != existingDb {
		return nil, fmt.Errorf("db.engine choice was %v but found pre-existing %v database in specified data directory", o.Type, existingDb)
	}
	if o.Type == DBLeveldb || existingDb == DBLeveldb {
		log.Info("Using leveldb as the backing database")
		return leveldb.New(o.Directory, o.Cache, o.Handles, o.ReadOnly)
	}
	if o.Type == DBPebble || existingDb == DBPebble {
		log.Info("Using pebble as the backing database")
	} else {
		log.Info("Defaulting to pebble as the backing database")
	}
	return pebble.New(o.Directory, o.Cache, o.Handles, o.ReadOnly)
}

// PreexistingDatabase checks the given data directory whether a database is already
// instantiated at that location, and if so, returns the type of database (or the
// empty string).
func PreexistingDatabase(path string) string {
	if _, err := os.Stat(filepath.Join(path, "CURRENT")); err != nil {
		return "" // No pre-existing db
	}
	if matches, err := filepath.Glob(filepath.Join(path, "OPTIONS*")); len(matches) > 0 || err != nil {
		if err != nil {
			panic(err) // only possible if the pattern is malformed
		}
		return DBPebble
	}
	return DBLeveldb
}

// Stat stores sizes and count for a category of data.
type Stat struct {
	Name  string
	Size  uint64
	Count uint64
}

// Add size to the stat and increase the counter by 1
func (s *Stat) Add(size uint64) {
	s.Size += size
	s.Count++
}

func (s *Stat) String() string {
	return fmt.Sprintf("%-16s %12s %10d", s.Name, common.StorageSize(s.Size), s.Count)
}

// InspectDatabase traverses the entire database and checks the size
// of all different categories of data.
func InspectDatabase(db ethdb.Iteratee, keyPrefix, keyStart []byte) ([]*Stat, error) {
	it := db.NewIterator(keyPrefix, keyStart)
	defer it.Release()

	var (
		count  int64
		start  = time.Now()
		logged = time.Now()

		headers      = &Stat{Name: "Headers"}
		heights      = &Stat{Name: "Id->Height"}
		bodies       = &Stat{Name: "Bodies"}
		seals        = &Stat{Name: "Consensus"}
		roots        = &Stat{Name: "Block roots"}
		coins        = &Stat{Name: "Coins"}
		txLookups    = &Stat{Name: "Tx lookups"}
		metadata     = &Stat{Name: "Metadata"}
		unaccounted  = &Stat{Name: "Unaccounted"}
		heightKeyLen = 1 + 8
		idKeyLen     = 1 + common.HashLength
	)
	for it.Next() {
		var (
			key  = it.Key()
			size = uint64(len(key) + len(it.Value()))
		)
		switch {
		case bytes.HasPrefix(key, headerPrefix) && len(key) == heightKeyLen:
			headers.Add(size)
		case bytes.HasPrefix(key, headerHeightPrefix) && len(key) == idKeyLen:
			heights.Add(size)
		case bytes.HasPrefix(key, blockBodyPrefix) && len(key) == heightKeyLen:
			bodies.Add(size)
		case bytes.HasPrefix(key, consensusPrefix) && len(key) == idKeyLen:
			seals.Add(size)
		case bytes.HasPrefix(key, blockRootPrefix) && len(key) == heightKeyLen:
			roots.Add(size)
		case bytes.HasPrefix(key, coinPrefix) && len(key) == idKeyLen+2:
			coins.Add(size)
		case bytes.HasPrefix(key, txLookupPrefix) && len(key) == idKeyLen:
			txLookups.Add(size)
		case bytes.Equal(key, latestHeightKey) || bytes.Equal(key, databaseVersionKey) || bytes.Equal(key, uncleanShutdownKey):
			metadata.Add(size)
		default:
			unaccounted.Add(size)
		}
		count++
		if count%1000 == 0 && time.Since(logged) > 8*time.Second {
			log.Info("Inspecting database", "count", count, "elapsed", time.Since(start).Round(time.Millisecond))
			logged = time.Now()
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return []*Stat{headers, heights, bodies, seals, roots, coins, txLookups, metadata, unaccounted}, nil
}
