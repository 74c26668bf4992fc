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

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/ethdb"
)

// ReadTxLookupEntry retrieves the positional metadata associated with a transaction
// id to allow retrieving the transaction by id.
func ReadTxLookupEntry(db ethdb.KeyValueReader, id common.Hash) *uint64 {
	data, _ := db.Get(txLookupKey(id))
	if len(data) != 8 {
		return nil
	}
	number := binary.BigEndian.Uint64(data)
	return &number
}

// WriteTxLookupEntriesByBlock stores a positional metadata for every transaction
// from a block, enabling id based transaction lookups.
func WriteTxLookupEntriesByBlock(db ethdb.KeyValueWriter, block *types.Block) error {
	numberBytes := encodeBlockNumber(block.Height())
	for _, tx := range block.Transactions() {
		if err := db.Put(txLookupKey(tx.ID()), numberBytes); err != nil {
			return fmt.Errorf("failed to store transaction lookup entry: %w", err)
		}
	}
	return nil
}

// ReadTransaction retrieves a specific transaction from the database, along with
// its added block height.
func ReadTransaction(db ethdb.KeyValueReader, id common.Hash) (*types.Transaction, uint64) {
	blockNumber := ReadTxLookupEntry(db, id)
	if blockNumber == nil {
		return nil, 0
	}
	body := ReadBody(db, *blockNumber)
	if body == nil {
		return nil, 0
	}
	for _, tx := range body.Transactions {
		if tx.ID() == id {
			return tx, *blockNumber
		}
	}
	return nil, 0
}
