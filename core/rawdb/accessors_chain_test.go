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
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/storage"
	"github.com/sunyihoo/go-txcore/core/types"
)

var testOwner = common.HexToAddress("0x71562b71999873db5b286df957af199ec94617f7")

func testBlock(height uint64, ntx int) *types.Block {
	txs := make([]*types.Transaction, ntx)
	for i := range txs {
		txs[i] = types.NewTx(&types.TxData{
			GasPrice: uint256.NewInt(uint64(i + 1)),
			Gas:      21000,
			Inputs:   []types.Input{{UtxoID: types.UtxoID{TxID: common.Hash{byte(i + 1)}}, Owner: testOwner, Amount: 10}},
			Outputs:  []types.Output{{Owner: testOwner, Amount: 10}},
		})
	}
	header := &types.Header{Height: height, Time: 1000 + height, Producer: testOwner}
	return types.NewBlock(header, txs)
}

func TestLatestHeightStorage(t *testing.T) {
	db := NewMemoryDatabase()
	assert.Nil(t, ReadLatestHeight(db))

	require.NoError(t, WriteLatestHeight(db, 42))
	height := ReadLatestHeight(db)
	require.NotNil(t, height)
	assert.Equal(t, uint64(42), *height)

	assert.Nil(t, ReadDatabaseVersion(db))
	require.NoError(t, WriteDatabaseVersion(db, 1))
	assert.Equal(t, uint64(1), *ReadDatabaseVersion(db))
}

func TestBlockStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block := testBlock(7, 3)

	assert.Nil(t, ReadBlock(db, 7))
	require.NoError(t, WriteBlock(db, block))

	entry := ReadBlock(db, 7)
	require.NotNil(t, entry)
	assert.Equal(t, block.ID(), entry.ID())
	assert.Equal(t, block.TxRoot(), entry.TxRoot())
	assert.Equal(t, block.Transactions().IDs(), entry.Transactions().IDs())

	height := ReadHeaderHeight(db, block.ID())
	require.NotNil(t, height)
	assert.Equal(t, uint64(7), *height)

	// Bodies without headers are not assembled into blocks
	require.NoError(t, db.Delete(headerKey(7)))
	assert.Nil(t, ReadBlock(db, 7))
	assert.NotNil(t, ReadBody(db, 7))
}

func TestConsensusInsert(t *testing.T) {
	db := NewMemoryDatabase()
	id := common.HexToHash("0x01")
	seal := &types.Consensus{Kind: types.PoAConsensus, Signature: []byte{1, 2, 3}}

	tx := storage.NewTransaction(db)
	prev, err := InsertConsensus(tx, id, seal)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = InsertConsensus(tx, id, &types.Consensus{Kind: types.PoAConsensus, Signature: []byte{4}})
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, seal.Signature, prev.Signature)

	assert.Nil(t, ReadConsensus(db, id))
	require.NoError(t, tx.Commit())
	stored := ReadConsensus(db, id)
	require.NotNil(t, stored)
	assert.Equal(t, []byte{4}, stored.Signature)
}

func TestBlockRootInsert(t *testing.T) {
	db := NewMemoryDatabase()
	tx := storage.NewTransaction(db)

	root := common.HexToHash("0xaa")
	prev, err := InsertBlockRoot(tx, 3, root)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = InsertBlockRoot(tx, 3, common.HexToHash("0xbb"))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, root, *prev)

	require.NoError(t, tx.Rollback())
	assert.Nil(t, ReadBlockRoot(db, 3))
}

func TestCoinStorage(t *testing.T) {
	db := NewMemoryDatabase()
	id := types.UtxoID{TxID: common.HexToHash("0x1234"), OutputIndex: 2}
	coin := &types.Coin{Owner: testOwner, Amount: 99, BlockCreated: 5}

	assert.False(t, HasCoin(db, id))
	assert.Nil(t, ReadCoin(db, id))

	require.NoError(t, WriteCoin(db, id, coin))
	assert.True(t, HasCoin(db, id))
	assert.Equal(t, coin, ReadCoin(db, id))

	// Sibling outputs use distinct keys
	assert.Nil(t, ReadCoin(db, types.UtxoID{TxID: id.TxID, OutputIndex: 3}))

	require.NoError(t, DeleteCoin(db, id))
	assert.False(t, HasCoin(db, id))
}

func TestTxLookupStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block := testBlock(11, 3)
	require.NoError(t, WriteBlock(db, block))
	require.NoError(t, WriteTxLookupEntriesByBlock(db, block))

	for _, tx := range block.Transactions() {
		number := ReadTxLookupEntry(db, tx.ID())
		require.NotNil(t, number)
		assert.Equal(t, uint64(11), *number)

		found, height := ReadTransaction(db, tx.ID())
		require.NotNil(t, found)
		assert.Equal(t, tx.ID(), found.ID())
		assert.Equal(t, uint64(11), height)
	}
	missing, _ := ReadTransaction(db, common.HexToHash("0xdead"))
	assert.Nil(t, missing)
}

func TestInspectDatabase(t *testing.T) {
	db := NewMemoryDatabase()
	block := testBlock(1, 2)
	require.NoError(t, WriteBlock(db, block))
	require.NoError(t, WriteTxLookupEntriesByBlock(db, block))
	require.NoError(t, WriteLatestHeight(db, 1))
	require.NoError(t, db.Put([]byte("zzz"), []byte("?")))

	stats, err := InspectDatabase(db, nil, nil)
	require.NoError(t, err)

	counts := make(map[string]uint64)
	for _, s := range stats {
		counts[s.Name] = s.Count
	}
	assert.Equal(t, uint64(1), counts["Headers"])
	assert.Equal(t, uint64(1), counts["Id->Height"])
	assert.Equal(t, uint64(1), counts["Bodies"])
	assert.Equal(t, uint64(2), counts["Tx lookups"])
	assert.Equal(t, uint64(1), counts["Metadata"])
	assert.Equal(t, uint64(1), counts["Unaccounted"])
}

func TestOpenDatabase(t *testing.T) {
	db, err := Open(OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(OpenOptions{Type: "rocksdb", Directory: t.TempDir()})
	assert.Error(t, err)

	dir := t.TempDir()
	db, err = Open(OpenOptions{Type: DBLeveldb, Directory: dir})
	require.NoError(t, err)
	require.NoError(t, WriteLatestHeight(db, 3))
	require.NoError(t, db.Close())
	assert.Equal(t, DBLeveldb, PreexistingDatabase(dir))

	// The existing engine wins over the default and conflicts with another choice
	_, err = Open(OpenOptions{Type: DBPebble, Directory: dir})
	assert.Error(t, err)
	db, err = Open(OpenOptions{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), *ReadLatestHeight(db))
	require.NoError(t, db.Close())
}
