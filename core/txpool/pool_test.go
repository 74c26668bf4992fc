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

package txpool

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/event"
)

func TestInsertBroadcastsAccepted(t *testing.T) {
	shared, db, p2p := newTestShared(t, testConfig())
	status, updates := shared.SubscribeStatus(), shared.SubscribeUpdates()

	tx := newTx(1, 100, db.fund(alice, 10))
	_, errs := shared.Insert([]*types.Transaction{tx})
	require.NoError(t, errs[0])
	assert.Equal(t, 1, p2p.count())
	assert.Equal(t, []TxStatus{{Kind: Submitted}}, drain(t, status))
	assert.Equal(t, []TxUpdate{{TxID: tx.ID()}}, drain(t, updates))

	// A rejected resubmission is neither broadcast nor announced.
	_, errs = shared.Insert([]*types.Transaction{tx})
	require.ErrorIs(t, errs[0], ErrAlreadyKnown)
	assert.Equal(t, 1, p2p.count())
	assert.Empty(t, drain(t, status))
	assert.Empty(t, drain(t, updates))
}

func TestInsertBroadcastFailureKeepsTx(t *testing.T) {
	shared, db, p2p := newTestShared(t, testConfig())
	p2p.fail = true

	tx := newTx(1, 100, db.fund(alice, 10))
	results, errs := shared.Insert([]*types.Transaction{tx})
	require.NoError(t, errs[0])
	assert.Equal(t, tx, results[0].Inserted)
	assert.Equal(t, 1, shared.PendingNumber())
}

func TestReplaceAndSelect(t *testing.T) {
	shared, db, p2p := newTestShared(t, testConfig())
	updates := shared.SubscribeUpdates()

	coin := db.fund(alice, 10)
	a := newTx(1, 100, coin)
	_, errs := shared.Insert([]*types.Transaction{a})
	require.NoError(t, errs[0])
	assert.Equal(t, 1, p2p.count())

	b := newTx(2, 100, coin)
	results, errs := shared.Insert([]*types.Transaction{b})
	require.NoError(t, errs[0])
	assert.Equal(t, []*types.Transaction{a}, results[0].Removed)

	got := drain(t, updates)
	require.Len(t, got, 3)
	assert.Equal(t, TxUpdate{TxID: a.ID()}, got[0])
	assert.Equal(t, b.ID(), got[1].TxID)
	assert.NoError(t, got[1].SqueezedOut)
	assert.Equal(t, a.ID(), got[2].TxID)
	assert.ErrorIs(t, got[2].SqueezedOut, ErrReplaced)

	assert.Equal(t, []*types.Transaction{b}, shared.SelectTransactions(100))
	assert.Equal(t, 0, shared.PendingNumber())
	assert.Nil(t, shared.FindOne(b.ID()))
}

func TestCollisionNeedsHigherPrice(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())

	coin := db.fund(alice, 10)
	_, errs := shared.Insert([]*types.Transaction{newTx(2, 100, coin)})
	require.NoError(t, errs[0])

	_, errs = shared.Insert([]*types.Transaction{newTx(2, 200, coin)})
	assert.ErrorIs(t, errs[0], ErrCollision)
	_, errs = shared.Insert([]*types.Transaction{newTx(1, 300, coin)})
	assert.ErrorIs(t, errs[0], ErrCollision)
	assert.Equal(t, 1, shared.PendingNumber())
}

func TestInsertRejections(t *testing.T) {
	config := testConfig()
	config.MinGasPrice = 2
	config.MaxDepth = 1
	shared, db, _ := newTestShared(t, config)

	coin := db.fund(alice, 10)
	unknown := types.Input{UtxoID: types.UtxoID{TxID: common.HexToHash("0xdead")}, Owner: alice, Amount: 10}
	wrong := coin
	wrong.Amount = 11

	parent := newTx(5, 100, coin)
	_, errs := shared.Insert([]*types.Transaction{parent})
	require.NoError(t, errs[0])
	child := newTx(5, 100, spendOutput(parent, 0))
	_, errs = shared.Insert([]*types.Transaction{child})
	require.NoError(t, errs[0])

	badIndex := spendOutput(parent, 0)
	badIndex.UtxoID.OutputIndex = 7

	tests := []struct {
		name string
		tx   *types.Transaction
		want error
	}{
		{"underpriced", newTx(1, 100, db.fund(alice, 1)), ErrUnderpriced},
		{"gas limit", newTx(5, 1001, db.fund(alice, 1)), ErrGasLimit},
		{"no inputs", newTx(5, 100), ErrNoInputs},
		{"unknown input", newTx(5, 100, unknown), ErrUnknownInput},
		{"unknown parent output", newTx(5, 100, badIndex), ErrUnknownInput},
		{"input mismatch", newTx(5, 100, wrong), ErrInputMismatch},
		{"multiple inputs", newTx(5, 100, db.fund(alice, 1), db.fund(alice, 2), db.fund(alice, 3)), nil},
		{"too deep", newTx(5, 100, spendOutput(child, 0)), ErrMaxDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := shared.Insert([]*types.Transaction{tt.tx})
			if tt.want == nil {
				assert.NoError(t, errs[0])
				return
			}
			assert.ErrorIs(t, errs[0], tt.want)
		})
	}
	dup := db.fund(alice, 4)
	_, errs = shared.Insert([]*types.Transaction{newTx(5, 100, dup, dup)})
	assert.ErrorIs(t, errs[0], ErrDuplicateInput)
}

func TestCommittedTxRejected(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())

	tx := newTx(1, 100, db.fund(alice, 10))
	_, errs := shared.Insert([]*types.Transaction{tx})
	require.NoError(t, errs[0])
	require.Equal(t, []*types.Transaction{tx}, shared.SelectTransactions(1000))

	// Selected transactions are not taken back before their block lands.
	_, errs = shared.Insert([]*types.Transaction{tx})
	assert.ErrorIs(t, errs[0], ErrAlreadyCommitted)

	other := newTx(1, 100, db.fund(alice, 3))
	db.commit(other)
	_, errs = shared.Insert([]*types.Transaction{other})
	assert.ErrorIs(t, errs[0], ErrAlreadyCommitted)
}

func TestSelectRespectsGasBudget(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())

	var txs []*types.Transaction
	for i, gas := range []uint64{400, 300, 300, 200} {
		txs = append(txs, newTx(uint64(10-i), gas, db.fund(alice, 1)))
	}
	_, errs := shared.Insert(txs)
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(1200), shared.ConsumableGas())

	selected := shared.SelectTransactions(800)
	assert.Equal(t, []*types.Transaction{txs[0], txs[1]}, selected)
	assert.Equal(t, 2, shared.PendingNumber())
	assert.Equal(t, uint64(500), shared.ConsumableGas())
	for _, tx := range selected {
		assert.Nil(t, shared.FindOne(tx.ID()))
	}
	infos := shared.Find([]common.Hash{txs[2].ID(), txs[0].ID()})
	require.Len(t, infos, 2)
	assert.Equal(t, txs[2], infos[0].Tx())
	assert.Nil(t, infos[1])

	assert.Empty(t, shared.SelectTransactions(100))
	assert.Equal(t, 2, shared.PendingNumber())
}

func TestDependentTransactions(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())

	parent := newTx(1, 100, db.fund(alice, 10))
	child := newTx(5, 100, spendOutput(parent, 0))
	grandchild := newTx(9, 100, spendOutput(child, 0))
	_, errs := shared.Insert([]*types.Transaction{parent, child, grandchild})
	for _, err := range errs {
		require.NoError(t, err)
	}

	includable := shared.Includable()
	require.Len(t, includable, 1)
	assert.Equal(t, parent, includable[0].Tx())
	assert.Equal(t, []*types.Transaction{parent, child, grandchild}, shared.FindDependent([]common.Hash{grandchild.ID()}))

	// Children follow their parent into consecutive blocks.
	assert.Equal(t, []*types.Transaction{parent}, shared.SelectTransactions(1000))
	assert.Equal(t, []*types.Transaction{child}, shared.SelectTransactions(1000))
	assert.Equal(t, []*types.Transaction{grandchild}, shared.SelectTransactions(1000))
}

func TestRemoveCascades(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())
	updates := shared.SubscribeUpdates()

	parent := newTx(1, 100, db.fund(alice, 10))
	child := newTx(1, 100, spendOutput(parent, 0))
	unrelated := newTx(1, 100, db.fund(alice, 5))
	shared.Insert([]*types.Transaction{parent, child, unrelated})
	drain(t, updates)

	removed := shared.Remove([]common.Hash{parent.ID(), common.HexToHash("0x01")})
	assert.Equal(t, []*types.Transaction{parent, child}, removed)
	assert.Equal(t, 1, shared.PendingNumber())
	assert.Equal(t, uint64(100), shared.ConsumableGas())

	got := drain(t, updates)
	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0].SqueezedOut, ErrRemoved)
	assert.Equal(t, child.ID(), got[1].TxID)
	assert.ErrorIs(t, got[1].SqueezedOut, ErrDependencyEvicted)
}

func TestPoolFullEvictsCheapest(t *testing.T) {
	config := testConfig()
	config.MaxTx = 2
	shared, db, _ := newTestShared(t, config)
	updates := shared.SubscribeUpdates()

	cheap := newTx(1, 100, db.fund(alice, 1))
	dear := newTx(5, 100, db.fund(alice, 1))
	shared.Insert([]*types.Transaction{cheap, dear})
	drain(t, updates)

	_, errs := shared.Insert([]*types.Transaction{newTx(1, 100, db.fund(alice, 1))})
	assert.ErrorIs(t, errs[0], ErrTxPoolFull)

	better := newTx(3, 100, db.fund(alice, 1))
	results, errs := shared.Insert([]*types.Transaction{better})
	require.NoError(t, errs[0])
	assert.Equal(t, []*types.Transaction{cheap}, results[0].Removed)
	assert.Equal(t, 2, shared.PendingNumber())

	got := drain(t, updates)
	require.Len(t, got, 2)
	assert.Equal(t, cheap.ID(), got[1].TxID)
	assert.ErrorIs(t, got[1].SqueezedOut, ErrEvictedByPrice)
}

func TestPoolFullKeepsAncestors(t *testing.T) {
	config := testConfig()
	config.MaxTx = 2
	shared, db, _ := newTestShared(t, config)

	parent := newTx(1, 100, db.fund(alice, 1))
	other := newTx(2, 100, db.fund(alice, 1))
	shared.Insert([]*types.Transaction{parent, other})

	// The parent is cheaper, but the child needs it.
	child := newTx(9, 100, spendOutput(parent, 0))
	results, errs := shared.Insert([]*types.Transaction{child})
	require.NoError(t, errs[0])
	assert.Equal(t, []*types.Transaction{other}, results[0].Removed)
	assert.NotNil(t, shared.FindOne(parent.ID()))
}

func TestBlockUpdate(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())
	status, updates := shared.SubscribeStatus(), shared.SubscribeUpdates()

	spent := db.fund(alice, 10)
	included := newTx(1, 100, db.fund(alice, 10))
	child := newTx(1, 100, spendOutput(included, 0))
	stale := newTx(1, 100, spent)
	survivor := newTx(1, 100, db.fund(alice, 10))
	shared.Insert([]*types.Transaction{included, child, stale, survivor})
	drain(t, status)
	drain(t, updates)

	// Another node's block included one transaction and spent the coin of another.
	sealed := db.commit(included)
	db.spend(spent.UtxoID)
	shared.blockUpdate(sealed)

	assert.Equal(t, 2, shared.PendingNumber())
	assert.NotNil(t, shared.FindOne(child.ID()))
	assert.NotNil(t, shared.FindOne(survivor.ID()))
	assert.Len(t, shared.Includable(), 2)

	got := drain(t, updates)
	require.Len(t, got, 2)
	assert.Equal(t, TxUpdate{TxID: included.ID()}, got[0])
	assert.Equal(t, stale.ID(), got[1].TxID)
	assert.ErrorIs(t, got[1].SqueezedOut, ErrInputSpent)

	kinds := drain(t, status)
	require.Len(t, kinds, 2)
	assert.Equal(t, Completed, kinds[0].Kind)
	assert.Equal(t, SqueezedOut, kinds[1].Kind)

	// Applying the same block again changes nothing but the completion notice.
	shared.blockUpdate(sealed)
	assert.Equal(t, 2, shared.PendingNumber())
	assert.Equal(t, []TxUpdate{{TxID: included.ID()}}, drain(t, updates))
}

func TestLaggingSubscriber(t *testing.T) {
	config := testConfig()
	config.StatusBufferSize = 2
	shared, db, _ := newTestShared(t, config)
	updates := shared.SubscribeUpdates()

	for i := 0; i < 3; i++ {
		_, errs := shared.Insert([]*types.Transaction{newTx(1, 10, db.fund(alice, 1))})
		require.NoError(t, errs[0])
	}
	_, err := updates.TryRecv()
	var lagged *event.LaggedError
	require.True(t, errors.As(err, &lagged))
	assert.Equal(t, uint64(1), lagged.Skipped)

	// The receiver resumes at the oldest retained value.
	assert.Len(t, drain(t, updates), 2)
	assert.Equal(t, 3, shared.PendingNumber())
}

func TestNotifySkipped(t *testing.T) {
	shared, _, _ := newTestShared(t, testConfig())
	status, updates := shared.SubscribeStatus(), shared.SubscribeUpdates()

	id := common.HexToHash("0x42")
	reason := errors.New("input coin not found")
	shared.NotifySkipped(id, reason)

	assert.Equal(t, []TxStatus{{Kind: SqueezedOut, Reason: reason}}, drain(t, status))
	assert.Equal(t, []TxUpdate{{TxID: id, SqueezedOut: reason}}, drain(t, updates))
}

func TestReleaseSelected(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())
	updates := shared.SubscribeUpdates()

	parent := newTx(2, 100, db.fund(alice, 10))
	child := newTx(1, 100, spendOutput(parent, 0))
	unrelated := newTx(1, 100, db.fund(alice, 5))
	_, errs := shared.Insert([]*types.Transaction{parent, child, unrelated})
	for _, err := range errs {
		require.NoError(t, err)
	}
	drain(t, updates)

	selected := shared.SelectTransactions(1000)
	require.ElementsMatch(t, []*types.Transaction{parent, unrelated}, selected)
	assert.Equal(t, 1, shared.PendingNumber())

	// The block carrying them was never committed.
	reason := fmt.Errorf("%w: disk full", ErrBlockAborted)
	shared.ReleaseSelected(selected, reason)

	got := make(map[common.Hash]error)
	for _, u := range drain(t, updates) {
		got[u.TxID] = u.SqueezedOut
	}
	require.Len(t, got, 3)
	assert.ErrorIs(t, got[parent.ID()], ErrBlockAborted)
	assert.ErrorIs(t, got[unrelated.ID()], ErrBlockAborted)
	assert.ErrorIs(t, got[child.ID()], ErrDependencyEvicted)
	assert.Zero(t, shared.PendingNumber())
	assert.Zero(t, shared.ConsumableGas())

	// Released transactions spend live coins and are accepted again.
	_, errs = shared.Insert([]*types.Transaction{parent, unrelated, child})
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 3, shared.PendingNumber())
}

func TestConcurrentSelectAndInsert(t *testing.T) {
	shared, db, _ := newTestShared(t, testConfig())

	const writers, perWriter = 4, 50
	var (
		wg   sync.WaitGroup
		done = make(chan struct{})
		seen = make(map[common.Hash]int)
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				tx := newTx(uint64(1+i%5), 100, db.fund(alice, 1))
				if _, errs := shared.Insert([]*types.Transaction{tx}); errs[0] != nil {
					t.Error(errs[0])
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	collect := func() {
		for _, tx := range shared.SelectTransactions(1000) {
			seen[tx.ID()]++
		}
	}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			collect()
		}
	}
	for shared.PendingNumber() > 0 {
		collect()
	}

	assert.Len(t, seen, writers*perWriter)
	for id, n := range seen {
		assert.Equal(t, 1, n, "transaction %x selected more than once", id)
	}
	assert.Zero(t, shared.ConsumableGas())
	assert.Empty(t, shared.Includable())
}
