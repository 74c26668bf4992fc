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
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/log"
)

// crashList is a list of unclean-shutdown-markers, for rlp-encoding to the
// database
type crashList struct {
	Discarded uint64   // how many ucs have we deleted
	Recent    []uint64 // unix timestamps of 10 latest unclean shutdowns
}

const crashesToKeep = 10

func readCrashList(db ethdb.KeyValueReader) (crashList, error) {
	var crashes crashList
	data, err := db.Get(uncleanShutdownKey)
	if err != nil {
		return crashes, err
	}
	err = rlp.DecodeBytes(data, &crashes)
	return crashes, err
}

func writeCrashList(db ethdb.KeyValueWriter, crashes crashList) error {
	data, err := rlp.EncodeToBytes(crashes)
	if err != nil {
		return err
	}
	return db.Put(uncleanShutdownKey, data)
}

// PushUncleanShutdownMarker appends a new unclean shutdown marker and returns
// the previous data
// - a list of timestamps
// - a count of how many old unclean-shutdowns have been discarded
func PushUncleanShutdownMarker(db ethdb.KeyValueStore) ([]uint64, uint64, error) {
	crashes, err := readCrashList(db)
	if err != nil {
		if has, _ := db.Has(uncleanShutdownKey); has {
			return nil, 0, err
		}
		crashes = crashList{}
	}
	var (
		discarded = crashes.Discarded
		previous  = make([]uint64, len(crashes.Recent))
	)
	copy(previous, crashes.Recent)

	// Add a new (but cleared) entry
	crashes.Recent = append(crashes.Recent, uint64(time.Now().Unix()))
	if count := len(crashes.Recent); count > crashesToKeep+1 {
		numDel := count - (crashesToKeep + 1)
		crashes.Recent = crashes.Recent[numDel:]
		crashes.Discarded += uint64(numDel)
	}
	if err := writeCrashList(db, crashes); err != nil {
		log.Warn("Failed to write unclean-shutdown marker", "err", err)
		return nil, 0, err
	}
	return previous, discarded, nil
}

// PopUncleanShutdownMarker removes the last unclean shutdown marker
func PopUncleanShutdownMarker(db ethdb.KeyValueStore) {
	crashes, err := readCrashList(db)
	if err != nil {
		log.Warn("Error reading unclean shutdown markers", "error", err)
	}
	if l := len(crashes.Recent); l > 0 {
		crashes.Recent = crashes.Recent[:l-1]
	}
	if err := writeCrashList(db, crashes); err != nil {
		log.Warn("Failed to clear unclean-shutdown marker", "err", err)
	}
}

// UpdateUncleanShutdownMarker updates the last marker's timestamp to now.
func UpdateUncleanShutdownMarker(db ethdb.KeyValueStore) {
	crashes, err := readCrashList(db)
	if err != nil {
		log.Warn("Error reading unclean shutdown markers", "error", err)
	}
	// This shouldn't happen because a marker is pushed on startup
	count := len(crashes.Recent)
	if count == 0 {
		log.Warn("No unclean shutdown marker to update")
		return
	}
	crashes.Recent[count-1] = uint64(time.Now().Unix())
	if err := writeCrashList(db, crashes); err != nil {
		log.Warn("Failed to write unclean-shutdown marker", "err", err)
	}
}
