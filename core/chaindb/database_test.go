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
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/ethdb/memorydb"
)

func newTestBlock(height uint64) *types.Block {
	tx := types.NewTx(&types.TxData{
		GasPrice: uint256.NewInt(1),
		Gas:      21000,
		Inputs:   []types.Input{{UtxoID: types.UtxoID{TxID: common.Hash{0x01}}, Amount: 5}},
		Outputs:  []types.Output{{Amount: 5}},
	})
	return types.NewBlock(&types.Header{Height: height, Time: height}, []*types.Transaction{tx})
}

func TestEmptyChain(t *testing.T) {
	db := New(memorydb.New(), 0)
	_, err := db.LatestBlockHeight()
	assert.ErrorIs(t, err, ErrNoBlocks)
	assert.Nil(t, db.ReadBlock(0))
	assert.Nil(t, db.ReadSealedBlock(0))
	assert.Nil(t, db.NewTransaction().LatestHeight())
}

func TestTransactionVisibility(t *testing.T) {
	db := New(memorydb.New(), 0)
	block := newTestBlock(0)
	seal := &types.Consensus{Kind: types.GenesisConsensus}
	coinID := types.UtxoID{TxID: common.HexToHash("0xc0"), OutputIndex: 1}

	tx := db.NewTransaction()
	require.NoError(t, tx.WriteBlock(block))
	prev, err := tx.SealBlock(block.ID(), seal)
	require.NoError(t, err)
	assert.Nil(t, prev)
	root, err := tx.InsertBlockHeaderMerkleRoot(0, types.NextBlockRoot(common.Hash{}, block.ID()))
	require.NoError(t, err)
	assert.Nil(t, root)
	require.NoError(t, tx.SetLatestHeight(0))
	require.NoError(t, tx.CreateCoin(coinID, &types.Coin{Amount: 3}))

	// Staged state is visible through the transaction only
	assert.NotNil(t, tx.LatestHeight())
	assert.NotNil(t, tx.BlockRoot(0))
	assert.NotNil(t, tx.Utxo(coinID))
	assert.True(t, tx.ContainsTx(block.Transactions()[0].ID()))

	_, err = db.LatestBlockHeight()
	assert.ErrorIs(t, err, ErrNoBlocks)
	assert.Nil(t, db.Utxo(coinID))
	assert.False(t, db.ContainsTx(block.Transactions()[0].ID()))

	require.NoError(t, tx.Commit())

	height, err := db.LatestBlockHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), height)
	assert.Equal(t, uint64(3), db.Utxo(coinID).Amount)
	assert.True(t, db.ContainsTx(block.Transactions()[0].ID()))

	sealed := db.ReadSealedBlock(0)
	require.NotNil(t, sealed)
	assert.Equal(t, block.ID(), sealed.Block.ID())
	assert.Equal(t, types.GenesisConsensus, sealed.Consensus.Kind)
	assert.Equal(t, types.NextBlockRoot(common.Hash{}, block.ID()), *db.ReadBlockRoot(0))

	found, at := db.ReadTransaction(block.Transactions()[0].ID())
	require.NotNil(t, found)
	assert.Equal(t, uint64(0), at)
}

func TestSpendCoin(t *testing.T) {
	db := New(memorydb.New(), 0)
	id := types.UtxoID{TxID: common.HexToHash("0x01")}
	require.NoError(t, rawdb.WriteCoin(db.DiskDB(), id, &types.Coin{Amount: 1}))

	tx := db.NewTransaction()
	require.NoError(t, tx.SpendCoin(id))
	assert.Nil(t, tx.Utxo(id))
	assert.NotNil(t, db.Utxo(id))
	require.NoError(t, tx.Commit())
	assert.Nil(t, db.Utxo(id))
}

func TestHeaderCache(t *testing.T) {
	db := New(memorydb.New(), 0)
	block := newTestBlock(4)
	require.NoError(t, rawdb.WriteBlock(db.DiskDB(), block))

	header := db.ReadHeader(4)
	require.NotNil(t, header)
	assert.Equal(t, block.ID(), header.ID())

	// Served from the cache once the store no longer has it
	require.NoError(t, db.DiskDB().Delete(append([]byte("h"), encodeHeight(4)...)))
	cached := db.ReadHeader(4)
	require.NotNil(t, cached)
	assert.Equal(t, block.ID(), cached.ID())
}
