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

package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/chaindb"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/ethdb/memorydb"
)

type testVerifier struct {
	err   error
	calls int
}

func (v *testVerifier) VerifyBlockFields(seal *types.Consensus, block *types.Block) error {
	v.calls++
	return v.err
}

type testExecutor struct {
	db    *chaindb.Database
	calls int
}

func (e *testExecutor) ExecuteWithoutCommit(sealed *types.SealedBlock) (*UncommittedResult[StorageTransaction], error) {
	e.calls++
	tx := e.db.NewTransaction()
	if err := tx.WriteBlock(sealed.Block); err != nil {
		return nil, err
	}
	return NewUncommittedResult[StorageTransaction](types.NewImportResult(sealed), tx), nil
}

func newTestImporter(t *testing.T) (*Importer, *chaindb.Database, *testVerifier, *testExecutor) {
	db := chaindb.New(memorydb.New(), 0)
	verifier := new(testVerifier)
	executor := &testExecutor{db: db}
	imp, err := New(db, executor, verifier, prometheus.NewRegistry())
	require.NoError(t, err)
	return imp, db, verifier, executor
}

func sealedAt(height uint64, prevRoot common.Hash) *types.SealedBlock {
	kind := types.PoAConsensus
	if height == 0 {
		kind = types.GenesisConsensus
	}
	block := types.NewBlock(&types.Header{PrevRoot: prevRoot, Height: height, Time: height}, nil)
	return &types.SealedBlock{Block: block, Consensus: &types.Consensus{Kind: kind}}
}

func uncommitted(db *chaindb.Database, sealed *types.SealedBlock) (*UncommittedResult[StorageTransaction], *chaindb.Transaction) {
	tx := db.NewTransaction()
	return NewUncommittedResult[StorageTransaction](types.NewImportResult(sealed), tx), tx
}

func TestCommitChain(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)

	events := make(chan *types.ImportResult, 2)
	sub := imp.SubscribeBlockEvents(events)
	defer sub.Unsubscribe()

	_, err := imp.LatestBlockHeight()
	assert.ErrorIs(t, err, chaindb.ErrNoBlocks)

	genesis := sealedAt(0, common.Hash{})
	result, tx := uncommitted(db, genesis)
	require.NoError(t, imp.CommitResult(result))
	assert.True(t, tx.Closed())

	root0 := types.NextBlockRoot(common.Hash{}, genesis.Block.ID())
	next := sealedAt(1, root0)
	result, _ = uncommitted(db, next)
	require.NoError(t, imp.CommitResult(result))

	height, err := imp.LatestBlockHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), height)
	assert.Equal(t, root0, *db.ReadBlockRoot(0))
	assert.Equal(t, types.NextBlockRoot(root0, next.Block.ID()), *db.ReadBlockRoot(1))
	assert.NotNil(t, db.ReadConsensus(next.Block.ID()))

	for _, want := range []*types.SealedBlock{genesis, next} {
		select {
		case ev := <-events:
			assert.Equal(t, want.Block.ID(), ev.Sealed.Block.ID())
		case <-time.After(time.Second):
			t.Fatal("block event not delivered")
		}
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(imp.metrics.height))
	assert.Equal(t, float64(2), testutil.ToFloat64(imp.metrics.commits))
}

func TestCommitInvalidHeight(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)

	result, tx := uncommitted(db, sealedAt(1, common.Hash{}))
	err := imp.CommitResult(result)
	assert.ErrorIs(t, err, ErrInvalidHeight)
	assert.True(t, tx.Closed(), "failed commit must discard the transaction")

	genesis := sealedAt(0, common.Hash{})
	result, _ = uncommitted(db, genesis)
	require.NoError(t, imp.CommitResult(result))

	// Replaying genesis does not extend the chain
	result, _ = uncommitted(db, genesis)
	assert.ErrorIs(t, imp.CommitResult(result), ErrInvalidHeight)
	assert.Equal(t, float64(2), testutil.ToFloat64(imp.metrics.commitFailures))
}

func TestCommitPrevRootMismatch(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)
	result, _ := uncommitted(db, sealedAt(0, common.Hash{}))
	require.NoError(t, imp.CommitResult(result))

	result, _ = uncommitted(db, sealedAt(1, common.HexToHash("0xbad")))
	assert.ErrorIs(t, imp.CommitResult(result), ErrPrevRootMismatch)

	height, err := imp.LatestBlockHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), height)
}

func TestCommitNotUnique(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)
	genesis := sealedAt(0, common.Hash{})

	// Seal the block out of band
	tx := db.NewTransaction()
	_, err := tx.SealBlock(genesis.Block.ID(), genesis.Consensus)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	result, _ := uncommitted(db, genesis)
	assert.ErrorIs(t, imp.CommitResult(result), ErrNotUnique)

	_, err = imp.LatestBlockHeight()
	assert.ErrorIs(t, err, chaindb.ErrNoBlocks)
	assert.Nil(t, db.ReadBlockRoot(0))
}

func TestCommitRootOverwriteIsAtomic(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)
	genesis := sealedAt(0, common.Hash{})

	// A root is already stored for height zero
	tx := db.NewTransaction()
	_, err := rawdb.InsertBlockRoot(tx, 0, common.HexToHash("0x01"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	result, staged := uncommitted(db, genesis)
	assert.ErrorIs(t, imp.CommitResult(result), ErrRootOverwrite)
	assert.True(t, staged.Closed())

	// The seal staged before the failure must not be visible
	assert.Nil(t, db.ReadConsensus(genesis.Block.ID()))
	assert.Equal(t, common.HexToHash("0x01"), *db.ReadBlockRoot(0))
	_, err = imp.LatestBlockHeight()
	assert.ErrorIs(t, err, chaindb.ErrNoBlocks)
}

func TestExecuteAndCommitVerifiesFirst(t *testing.T) {
	imp, _, verifier, executor := newTestImporter(t)
	verifier.err = errors.New("bad signature")

	err := imp.ExecuteAndCommit(sealedAt(0, common.Hash{}))
	assert.ErrorIs(t, err, verifier.err)
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, 0, executor.calls)

	verifier.err = nil
	require.NoError(t, imp.ExecuteAndCommit(sealedAt(0, common.Hash{})))
	assert.Equal(t, 1, executor.calls)
	height, err := imp.LatestBlockHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), height)
}

func TestStoppedImporter(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)
	events := make(chan *types.ImportResult)
	sub := imp.SubscribeBlockEvents(events)

	imp.Stop()
	select {
	case <-sub.Err():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on stop")
	}
	result, tx := uncommitted(db, sealedAt(0, common.Hash{}))
	assert.ErrorIs(t, imp.CommitResult(result), ErrStopped)
	assert.True(t, tx.Closed())
}
