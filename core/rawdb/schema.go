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

// Package rawdb contains a collection of low level database accessors.
package rawdb

import (
	"encoding/binary"

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
)

// The fields below define the low level database schema prefixing.
var (
	// latestHeightKey tracks the height of the latest committed block.
	latestHeightKey = []byte("LatestHeight")

	// databaseVersionKey tracks the current database version.
	databaseVersionKey = []byte("DatabaseVersion")

	// uncleanShutdownKey tracks the list of local crashes
	uncleanShutdownKey = []byte("unclean-shutdown") // config prefix for the db

	// Data item prefixes (use single byte to avoid mixing data types, avoid `i`, used for indexes).
	headerPrefix       = []byte("h") // headerPrefix + num (uint64 big endian) -> header
	headerHeightPrefix = []byte("H") // headerHeightPrefix + block id -> num (uint64 big endian)
	blockBodyPrefix    = []byte("b") // blockBodyPrefix + num (uint64 big endian) -> block body
	consensusPrefix    = []byte("c") // consensusPrefix + block id -> consensus seal
	blockRootPrefix    = []byte("r") // blockRootPrefix + num (uint64 big endian) -> block root
	coinPrefix         = []byte("u") // coinPrefix + tx id + output index (uint16 big endian) -> coin
	txLookupPrefix     = []byte("l") // txLookupPrefix + tx id -> block number
)

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// headerKey = headerPrefix + num (uint64 big endian)
func headerKey(number uint64) []byte {
	return append(append([]byte(nil), headerPrefix...), encodeBlockNumber(number)...)
}

// headerHeightKey = headerHeightPrefix + id
func headerHeightKey(id common.Hash) []byte {
	return append(append([]byte(nil), headerHeightPrefix...), id.Bytes()...)
}

// blockBodyKey = blockBodyPrefix + num (uint64 big endian)
func blockBodyKey(number uint64) []byte {
	return append(append([]byte(nil), blockBodyPrefix...), encodeBlockNumber(number)...)
}

// consensusKey = consensusPrefix + id
func consensusKey(id common.Hash) []byte {
	return append(append([]byte(nil), consensusPrefix...), id.Bytes()...)
}

// blockRootKey = blockRootPrefix + num (uint64 big endian)
func blockRootKey(number uint64) []byte {
	return append(append([]byte(nil), blockRootPrefix...), encodeBlockNumber(number)...)
}

// coinKey = coinPrefix + tx id + output index (uint16 big endian)
func coinKey(id types.UtxoID) []byte {
	buf := make([]byte, len(coinPrefix)+common.HashLength+2)
	n := copy(buf, coinPrefix)
	n += copy(buf[n:], id.TxID.Bytes())
	binary.BigEndian.PutUint16(buf[n:], id.OutputIndex)
	return buf
}

// txLookupKey = txLookupPrefix + id
func txLookupKey(id common.Hash) []byte {
	return append(append([]byte(nil), txLookupPrefix...), id.Bytes()...)
}
