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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/common/mclock"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/event"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/sunyihoo/go-txcore/service"
)

const (
	// gossipChanSize is the size of channel listening to gossiped transactions.
	gossipChanSize = 4096

	// blockChanSize is the size of channel listening to committed blocks.
	blockChanSize = 10
)

// SharedState is the handle to the pool shared between the service task and
// outside callers. Every operation holds the pool lock for its whole duration.
type SharedState struct {
	mu     sync.Mutex
	pool   *TxPool
	status *TxStatusChange
	p2p    PeerToPeer
}

// NewSharedState creates the shared handle of a fresh pool.
func NewSharedState(config Config, db Database, p2p PeerToPeer, clock mclock.Clock, reg prometheus.Registerer) (*SharedState, error) {
	config = (&config).sanitize()
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &SharedState{
		pool:   newTxPool(config, db, clock, m),
		status: NewTxStatusChange(config.StatusBufferSize),
		p2p:    p2p,
	}, nil
}

// Insert admits externally submitted transactions and gossips every accepted
// one to the network. A gossip failure is logged and does not undo the
// acceptance.
func (s *SharedState) Insert(txs []*types.Transaction) ([]*InsertionResult, []error) {
	s.mu.Lock()
	results, errs := s.pool.Insert(s.status, txs)
	s.mu.Unlock()

	for i, res := range results {
		if errs[i] != nil {
			continue
		}
		if err := s.p2p.BroadcastTransaction(res.Inserted); err != nil {
			log.Error("Failed to broadcast transaction", "id", res.Inserted.ID(), "err", err)
		}
	}
	return results, errs
}

// insertGossiped admits a transaction received from a peer. It is never
// gossiped back out.
func (s *SharedState) insertGossiped(tx *types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, errs := s.pool.Insert(s.status, []*types.Transaction{tx})
	return errs[0]
}

// blockUpdate reconciles the pool with a committed block.
func (s *SharedState) blockUpdate(sealed *types.SealedBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool.BlockUpdate(s.status, sealed)
}

// Remove evicts the transactions with the given ids and their dependents.
func (s *SharedState) Remove(ids []common.Hash) []*types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Remove(s.status, ids)
}

// ReleaseSelected hands back selected transactions whose block was not
// committed. They are reported as SqueezedOut with reason.
func (s *SharedState) ReleaseSelected(txs []*types.Transaction, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Debug("Releasing selected transactions", "count", len(txs), "reason", reason)
	s.pool.ReleaseSelected(s.status, txs, reason)
}

// SelectTransactions selects transactions for a block of at most maxGas and
// removes them from the pool in the same critical section, so no other caller
// can select them again.
func (s *SharedState) SelectTransactions(maxGas uint64) []*types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := SelectTransactions(s.pool.Includable(), maxGas)
	for _, tx := range txs {
		s.pool.RemoveCommittedTx(tx.ID())
	}
	s.pool.metrics.selected.Add(float64(len(txs)))
	return txs
}

// NotifySkipped reports a selected transaction that did not make it into the
// produced block.
func (s *SharedState) NotifySkipped(id common.Hash, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Debug("Selected transaction skipped", "id", id, "reason", reason)
	s.status.SendSqueezedOut(id, reason)
	s.pool.metrics.squeezed.Inc()
}

// Find returns the pending transactions with the given ids, nil for absent ones.
func (s *SharedState) Find(ids []common.Hash) []*TxInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Find(ids)
}

// FindOne returns the pending transaction with the given id, or nil.
func (s *SharedState) FindOne(id common.Hash) *TxInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.FindOne(id)
}

// FindDependent returns the given pending transactions with everything they
// depend on, parents first.
func (s *SharedState) FindDependent(ids []common.Hash) []*types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.FindDependent(ids)
}

// Includable returns the transactions currently eligible for selection.
func (s *SharedState) Includable() []*TxInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Includable()
}

// PendingNumber returns the number of pending transactions.
func (s *SharedState) PendingNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.PendingNumber()
}

// ConsumableGas returns the total gas of pending transactions.
func (s *SharedState) ConsumableGas() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.ConsumableGas()
}

// SubscribeStatus subscribes to the coarse status topic.
func (s *SharedState) SubscribeStatus() *event.Receiver[TxStatus] {
	return s.status.Status.Subscribe()
}

// SubscribeUpdates subscribes to the per transaction update topic.
func (s *SharedState) SubscribeUpdates() *event.Receiver[TxUpdate] {
	return s.status.Update.Subscribe()
}

// Task is the pool service loop. Each Run services exactly one event: a
// shutdown request, a gossiped transaction or a committed block.
type Task struct {
	shared *SharedState

	gossipCh  chan *GossipData
	gossipSub event.Subscription
	blockCh   chan *types.ImportResult
	blockSub  event.Subscription
}

// Run implements service.RunnableTask.
func (t *Task) Run(watcher *service.StateWatcher) (bool, error) {
	select {
	case <-watcher.Stopping():
		return false, nil

	case data := <-t.gossipCh:
		if data == nil || data.Tx == nil {
			log.Debug("Dropping undecodable gossip", "peer", peerOf(data))
			return true, nil
		}
		if err := t.shared.insertGossiped(data.Tx); err != nil {
			log.Debug("Discarding gossiped transaction", "id", data.Tx.ID(), "peer", data.PeerID, "err", err)
		}
		return true, nil

	case result := <-t.blockCh:
		t.shared.blockUpdate(result.Sealed)
		return true, nil

	case err := <-t.gossipSub.Err():
		return false, sourceClosed("gossip", err)

	case err := <-t.blockSub.Err():
		return false, sourceClosed("block", err)
	}
}

// Shutdown implements service.RunnableTask.
func (t *Task) Shutdown() error {
	t.gossipSub.Unsubscribe()
	t.blockSub.Unsubscribe()
	return nil
}

func sourceClosed(name string, err error) error {
	if err == nil {
		log.Info("Event source closed, stopping txpool", "source", name)
		return nil
	}
	return fmt.Errorf("%s subscription failed: %w", name, err)
}

func peerOf(data *GossipData) string {
	if data == nil {
		return ""
	}
	return data.PeerID
}

// poolService is the runnable service of the pool.
type poolService struct {
	shared   *SharedState
	p2p      PeerToPeer
	importer BlockImporter
}

func (s *poolService) Name() string { return "txpool" }

func (s *poolService) SharedData() *SharedState { return s.shared }

// Into subscribes to the event sources and builds the service task.
func (s *poolService) Into() (service.RunnableTask, error) {
	t := &Task{
		shared:   s.shared,
		gossipCh: make(chan *GossipData, gossipChanSize),
		blockCh:  make(chan *types.ImportResult, blockChanSize),
	}
	t.gossipSub = s.p2p.SubscribeTransactions(t.gossipCh)
	t.blockSub = s.importer.SubscribeBlockEvents(t.blockCh)
	if t.gossipSub == nil || t.blockSub == nil {
		if t.gossipSub != nil {
			t.gossipSub.Unsubscribe()
		}
		if t.blockSub != nil {
			t.blockSub.Unsubscribe()
		}
		return nil, errors.New("event sources closed")
	}
	return t, nil
}

// NewService creates the pool service. The returned runner is not started;
// its Shared handle is usable right away.
func NewService(config Config, db Database, importer BlockImporter, p2p PeerToPeer, reg prometheus.Registerer) (*service.Runner[*SharedState], error) {
	shared, err := NewSharedState(config, db, p2p, mclock.System{}, reg)
	if err != nil {
		return nil, err
	}
	return service.New[*SharedState](&poolService{shared: shared, p2p: p2p, importer: importer}), nil
}
