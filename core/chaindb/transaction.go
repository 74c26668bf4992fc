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

package chaindb

import (
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/core/storage"
	"github.com/sunyihoo/go-txcore/core/types"
)

// Transaction stages changes to the chain. Nothing is visible through Database
// until Commit.
type Transaction struct {
	*storage.Transaction
}

// LatestHeight returns the latest height as seen by the transaction, or nil on
// an empty chain.
func (tx *Transaction) LatestHeight() *uint64 {
	return rawdb.ReadLatestHeight(tx)
}

// SetLatestHeight stages the latest height marker.
func (tx *Transaction) SetLatestHeight(height uint64) error {
	return rawdb.WriteLatestHeight(tx, height)
}

// SealBlock stages the consensus seal of a block and returns the seal the block
// had before, if any.
func (tx *Transaction) SealBlock(id common.Hash, seal *types.Consensus) (*types.Consensus, error) {
	return rawdb.InsertConsensus(tx, id, seal)
}

// BlockRoot returns the block root at height as seen by the transaction.
func (tx *Transaction) BlockRoot(height uint64) *common.Hash {
	return rawdb.ReadBlockRoot(tx, height)
}

// InsertBlockHeaderMerkleRoot stages the block root of height and returns the
// root stored for the height before, if any.
func (tx *Transaction) InsertBlockHeaderMerkleRoot(height uint64, root common.Hash) (*common.Hash, error) {
	return rawdb.InsertBlockRoot(tx, height, root)
}

// Utxo returns the unspent coin behind id as seen by the transaction.
func (tx *Transaction) Utxo(id types.UtxoID) *types.Coin {
	return rawdb.ReadCoin(tx, id)
}

// SpendCoin stages the removal of a coin.
func (tx *Transaction) SpendCoin(id types.UtxoID) error {
	return rawdb.DeleteCoin(tx, id)
}

// CreateCoin stages a new unspent coin.
func (tx *Transaction) CreateCoin(id types.UtxoID, coin *types.Coin) error {
	return rawdb.WriteCoin(tx, id, coin)
}

// ContainsTx reports whether the transaction is committed or staged.
func (tx *Transaction) ContainsTx(id common.Hash) bool {
	return rawdb.ReadTxLookupEntry(tx, id) != nil
}

// WriteBlock stages the header, the body and the transaction lookups of block.
func (tx *Transaction) WriteBlock(block *types.Block) error {
	if err := rawdb.WriteBlock(tx, block); err != nil {
		return err
	}
	return rawdb.WriteTxLookupEntriesByBlock(tx, block)
}
