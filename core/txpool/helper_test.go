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
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/common/mclock"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/event"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

// testDB is an in-memory coin set.
type testDB struct {
	mu    sync.Mutex
	coins map[types.UtxoID]*types.Coin
	txs   map[common.Hash]bool
	next  uint64
}

func newTestDB() *testDB {
	return &testDB{
		coins: make(map[types.UtxoID]*types.Coin),
		txs:   make(map[common.Hash]bool),
	}
}

func (db *testDB) Utxo(id types.UtxoID) *types.Coin {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.coins[id]
}

func (db *testDB) ContainsTx(id common.Hash) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.txs[id]
}

// fund creates a fresh chain coin and returns the input spending it.
func (db *testDB) fund(owner common.Address, amount uint64) types.Input {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.next++
	id := types.UtxoID{TxID: common.BytesToHash(uint256.NewInt(db.next).Bytes())}
	db.coins[id] = &types.Coin{Owner: owner, Amount: amount}
	return types.Input{UtxoID: id, Owner: owner, Amount: amount}
}

// commit applies a block to the coin set the way the executor does.
func (db *testDB) commit(txs ...*types.Transaction) *types.SealedBlock {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, tx := range txs {
		for _, in := range tx.Inputs() {
			delete(db.coins, in.UtxoID)
		}
		for i, out := range tx.Outputs() {
			db.coins[tx.OutputID(i)] = &types.Coin{Owner: out.Owner, Amount: out.Amount}
		}
		db.txs[tx.ID()] = true
	}
	return &types.SealedBlock{
		Block:     types.NewBlock(&types.Header{Height: 1}, txs),
		Consensus: &types.Consensus{Kind: types.PoAConsensus},
	}
}

func (db *testDB) spend(id types.UtxoID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.coins, id)
}

// newTx creates a transaction paying the sum of its inputs to bob.
func newTx(price, gas uint64, inputs ...types.Input) *types.Transaction {
	var sum uint64
	for _, in := range inputs {
		sum += in.Amount
	}
	return types.NewTx(&types.TxData{
		GasPrice: uint256.NewInt(price),
		Gas:      gas,
		Inputs:   inputs,
		Outputs:  []types.Output{{Owner: bob, Amount: sum}},
	})
}

// spendOutput returns the input spending output i of tx.
func spendOutput(tx *types.Transaction, i int) types.Input {
	out := tx.Outputs()[i]
	return types.Input{UtxoID: tx.OutputID(i), Owner: out.Owner, Amount: out.Amount}
}

// testP2P records broadcasts and lets tests inject gossip.
type testP2P struct {
	mu         sync.Mutex
	broadcasts []common.Hash
	fail       bool
	feed       event.FeedOf[*GossipData]
}

func (p *testP2P) SubscribeTransactions(ch chan<- *GossipData) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *testP2P) BroadcastTransaction(tx *types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, tx.ID())
	if p.fail {
		return errors.New("no peers")
	}
	return nil
}

func (p *testP2P) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.broadcasts)
}

type testImporter struct {
	feed event.FeedOf[*types.ImportResult]
}

func (imp *testImporter) SubscribeBlockEvents(ch chan<- *types.ImportResult) event.Subscription {
	return imp.feed.Subscribe(ch)
}

func testConfig() Config {
	config := DefaultConfig
	config.MaxBlockGas = 1000
	return config
}

func newTestShared(t *testing.T, config Config) (*SharedState, *testDB, *testP2P) {
	db, p2p := newTestDB(), new(testP2P)
	shared, err := NewSharedState(config, db, p2p, new(mclock.Simulated), nil)
	require.NoError(t, err)
	return shared, db, p2p
}

// drain collects everything buffered on a receiver.
func drain[T any](t *testing.T, r *event.Receiver[T]) []T {
	var out []T
	for {
		v, err := r.TryRecv()
		if errors.Is(err, event.ErrEmpty) {
			return out
		}
		require.NoError(t, err)
		out = append(out, v)
	}
}
