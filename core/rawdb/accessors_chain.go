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
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/log"
)

// ReadLatestHeight retrieves the height of the latest committed block, or nil
// if no block was ever committed.
func ReadLatestHeight(db ethdb.KeyValueReader) *uint64 {
	data, _ := db.Get(latestHeightKey)
	if len(data) != 8 {
		return nil
	}
	number := binary.BigEndian.Uint64(data)
	return &number
}

// WriteLatestHeight stores the height of the latest committed block.
func WriteLatestHeight(db ethdb.KeyValueWriter, number uint64) error {
	if err := db.Put(latestHeightKey, encodeBlockNumber(number)); err != nil {
		return fmt.Errorf("failed to store latest height: %w", err)
	}
	return nil
}

// ReadDatabaseVersion retrieves the version number of the database.
func ReadDatabaseVersion(db ethdb.KeyValueReader) *uint64 {
	enc, _ := db.Get(databaseVersionKey)
	if len(enc) != 8 {
		return nil
	}
	version := binary.BigEndian.Uint64(enc)
	return &version
}

// WriteDatabaseVersion stores the version number of the database
func WriteDatabaseVersion(db ethdb.KeyValueWriter, version uint64) error {
	if err := db.Put(databaseVersionKey, encodeBlockNumber(version)); err != nil {
		return fmt.Errorf("failed to store the database version: %w", err)
	}
	return nil
}

// ReadHeaderHeight returns the header height assigned to a block id.
func ReadHeaderHeight(db ethdb.KeyValueReader, id common.Hash) *uint64 {
	data, _ := db.Get(headerHeightKey(id))
	if len(data) != 8 {
		return nil
	}
	number := binary.BigEndian.Uint64(data)
	return &number
}

// ReadHeaderRLP retrieves a block header in its raw RLP database encoding.
func ReadHeaderRLP(db ethdb.KeyValueReader, number uint64) rlp.RawValue {
	data, _ := db.Get(headerKey(number))
	return data
}

// ReadHeader retrieves the block header corresponding to the height.
func ReadHeader(db ethdb.KeyValueReader, number uint64) *types.Header {
	data := ReadHeaderRLP(db, number)
	if len(data) == 0 {
		return nil
	}
	header := new(types.Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		log.Error("Invalid block header RLP", "number", number, "err", err)
		return nil
	}
	return header
}

// WriteHeader stores a block header into the database and also stores the
// id-to-height mapping.
func WriteHeader(db ethdb.KeyValueWriter, header *types.Header) error {
	var (
		id     = header.ID()
		number = header.Height
	)
	if err := db.Put(headerHeightKey(id), encodeBlockNumber(number)); err != nil {
		return fmt.Errorf("failed to store id to height mapping: %w", err)
	}
	data, err := rlp.EncodeToBytes(header)
	if err != nil {
		return fmt.Errorf("failed to RLP encode header: %w", err)
	}
	if err := db.Put(headerKey(number), data); err != nil {
		return fmt.Errorf("failed to store header: %w", err)
	}
	return nil
}

// ReadBody retrieves the block body corresponding to the height.
func ReadBody(db ethdb.KeyValueReader, number uint64) *types.Body {
	data, _ := db.Get(blockBodyKey(number))
	if len(data) == 0 {
		return nil
	}
	body := new(types.Body)
	if err := rlp.DecodeBytes(data, body); err != nil {
		log.Error("Invalid block body RLP", "number", number, "err", err)
		return nil
	}
	return body
}

// WriteBody stores a block body into the database.
func WriteBody(db ethdb.KeyValueWriter, number uint64, body *types.Body) error {
	data, err := rlp.EncodeToBytes(body)
	if err != nil {
		return fmt.Errorf("failed to RLP encode body: %w", err)
	}
	if err := db.Put(blockBodyKey(number), data); err != nil {
		return fmt.Errorf("failed to store block body: %w", err)
	}
	return nil
}

// ReadBlock retrieves an entire block corresponding to the height, assembling it
// back from the stored header and body. If either the header or body could not
// be retrieved nil is returned.
func ReadBlock(db ethdb.KeyValueReader, number uint64) *types.Block {
	header := ReadHeader(db, number)
	if header == nil {
		return nil
	}
	body := ReadBody(db, number)
	if body == nil {
		return nil
	}
	return types.NewBlockWithHeader(header, body.Transactions)
}

// WriteBlock serializes a block into the database, header and body separately.
func WriteBlock(db ethdb.KeyValueWriter, block *types.Block) error {
	if err := WriteBody(db, block.Height(), block.Body()); err != nil {
		return err
	}
	return WriteHeader(db, block.Header())
}

// ReadConsensus retrieves the consensus seal of a block.
func ReadConsensus(db ethdb.KeyValueReader, id common.Hash) *types.Consensus {
	data, _ := db.Get(consensusKey(id))
	if len(data) == 0 {
		return nil
	}
	return decodeConsensus(id, data)
}

// InsertConsensus stores the consensus seal of a block and returns the seal that
// was stored for the block before, if any.
func InsertConsensus(db ethdb.KeyValueInserter, id common.Hash, seal *types.Consensus) (*types.Consensus, error) {
	data, err := rlp.EncodeToBytes(seal)
	if err != nil {
		return nil, fmt.Errorf("failed to RLP encode consensus: %w", err)
	}
	prev, err := db.Insert(consensusKey(id), data)
	if err != nil {
		return nil, fmt.Errorf("failed to store consensus: %w", err)
	}
	if len(prev) == 0 {
		return nil, nil
	}
	return decodeConsensus(id, prev), nil
}

func decodeConsensus(id common.Hash, data []byte) *types.Consensus {
	seal := new(types.Consensus)
	if err := rlp.DecodeBytes(data, seal); err != nil {
		log.Error("Invalid consensus RLP", "id", id, "err", err)
		return nil
	}
	return seal
}

// ReadBlockRoot retrieves the block root committed at the height.
func ReadBlockRoot(db ethdb.KeyValueReader, number uint64) *common.Hash {
	data, _ := db.Get(blockRootKey(number))
	if len(data) != common.HashLength {
		return nil
	}
	root := common.BytesToHash(data)
	return &root
}

// InsertBlockRoot stores the block root of the height and returns the root that
// was stored for the height before, if any.
func InsertBlockRoot(db ethdb.KeyValueInserter, number uint64, root common.Hash) (*common.Hash, error) {
	prev, err := db.Insert(blockRootKey(number), root.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to store block root: %w", err)
	}
	if len(prev) == 0 {
		return nil, nil
	}
	if len(prev) != common.HashLength {
		return nil, fmt.Errorf("invalid block root length %d at height %d", len(prev), number)
	}
	old := common.BytesToHash(prev)
	return &old, nil
}
