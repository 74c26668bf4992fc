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

// Package chaindb provides the chain database used by the block importer, the
// block executor and the transaction pool.
package chaindb

import (
	"encoding/binary"
	"errors"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/core/storage"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/log"
)

// ErrNoBlocks is returned when the latest height is queried on an empty chain.
var ErrNoBlocks = errors.New("no block committed")

// headerCacheSize is the default capacity of the header cache in bytes.
const headerCacheSize = 8 * 1024 * 1024

// Database is the chain view over a key-value store. Committed headers never
// change, so they are served from an in-memory cache once read.
type Database struct {
	db          ethdb.KeyValueStore
	headerCache *fastcache.Cache // height -> header RLP
}

// New wraps a key-value store. cacheBytes sizes the header cache, zero selects
// the default.
func New(db ethdb.KeyValueStore, cacheBytes int) *Database {
	if cacheBytes <= 0 {
		cacheBytes = headerCacheSize
	}
	return &Database{
		db:          db,
		headerCache: fastcache.New(cacheBytes),
	}
}

// DiskDB returns the underlying key-value store.
func (db *Database) DiskDB() ethdb.KeyValueStore {
	return db.db
}

// LatestBlockHeight returns the height of the latest committed block.
func (db *Database) LatestBlockHeight() (uint64, error) {
	height := rawdb.ReadLatestHeight(db.db)
	if height == nil {
		return 0, ErrNoBlocks
	}
	return *height, nil
}

// NewTransaction opens a storage transaction on the chain.
func (db *Database) NewTransaction() *Transaction {
	return &Transaction{Transaction: storage.NewTransaction(db.db)}
}

// Utxo returns the unspent coin behind id, or nil if it does not exist.
func (db *Database) Utxo(id types.UtxoID) *types.Coin {
	return rawdb.ReadCoin(db.db, id)
}

// ContainsTx reports whether the transaction was committed in a block.
func (db *Database) ContainsTx(id common.Hash) bool {
	return rawdb.ReadTxLookupEntry(db.db, id) != nil
}

// ReadHeader returns the header committed at height.
func (db *Database) ReadHeader(height uint64) *types.Header {
	key := encodeHeight(height)
	if enc := db.headerCache.Get(nil, key); len(enc) > 0 {
		header := new(types.Header)
		if err := rlp.DecodeBytes(enc, header); err == nil {
			return header
		}
		log.Warn("Dropping corrupt cached header", "height", height)
		db.headerCache.Del(key)
	}
	enc := rawdb.ReadHeaderRLP(db.db, height)
	if len(enc) == 0 {
		return nil
	}
	header := new(types.Header)
	if err := rlp.DecodeBytes(enc, header); err != nil {
		log.Error("Invalid block header RLP", "height", height, "err", err)
		return nil
	}
	db.headerCache.Set(key, enc)
	return header
}

// ReadBlock returns the block committed at height.
func (db *Database) ReadBlock(height uint64) *types.Block {
	header := db.ReadHeader(height)
	if header == nil {
		return nil
	}
	body := rawdb.ReadBody(db.db, height)
	if body == nil {
		return nil
	}
	return types.NewBlockWithHeader(header, body.Transactions)
}

// ReadSealedBlock returns the block committed at height together with its seal.
func (db *Database) ReadSealedBlock(height uint64) *types.SealedBlock {
	block := db.ReadBlock(height)
	if block == nil {
		return nil
	}
	seal := rawdb.ReadConsensus(db.db, block.ID())
	if seal == nil {
		return nil
	}
	return &types.SealedBlock{Block: block, Consensus: seal}
}

// ReadConsensus returns the seal of the block with the given id.
func (db *Database) ReadConsensus(id common.Hash) *types.Consensus {
	return rawdb.ReadConsensus(db.db, id)
}

// ReadBlockRoot returns the block root committed at height.
func (db *Database) ReadBlockRoot(height uint64) *common.Hash {
	return rawdb.ReadBlockRoot(db.db, height)
}

// ReadTransaction returns a committed transaction and the height of its block.
func (db *Database) ReadTransaction(id common.Hash) (*types.Transaction, uint64) {
	return rawdb.ReadTransaction(db.db, id)
}

// Close closes the underlying store.
func (db *Database) Close() error {
	db.headerCache.Reset()
	return db.db.Close()
}

func encodeHeight(height uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, height)
	return enc
}
