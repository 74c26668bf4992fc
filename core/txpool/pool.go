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

// Package txpool implements the transaction pool: the set of transactions
// accepted from peers and local submitters that are waiting for a block.
package txpool

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/common/mclock"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/log"
)

// TxInfo is a pending transaction together with the time it entered the pool.
type TxInfo struct {
	tx        *types.Transaction
	submitted mclock.AbsTime
	seq       uint64 // insertion order, breaks price ties in selection
}

// Tx returns the pending transaction.
func (info *TxInfo) Tx() *types.Transaction { return info.tx }

// Submitted returns the time the transaction entered the pool.
func (info *TxInfo) Submitted() mclock.AbsTime { return info.submitted }

// InsertionResult is the outcome of admitting one transaction.
type InsertionResult struct {
	Inserted *types.Transaction
	Removed  []*types.Transaction // pending transactions evicted to make room
}

// poolTx is the pool-internal entry of a transaction.
type poolTx struct {
	info     *TxInfo
	parents  mapset.Set[common.Hash] // pending transactions whose outputs this one spends
	children mapset.Set[common.Hash] // pending transactions spending outputs of this one
	depth    uint64                  // zero if all inputs are chain coins
}

// eviction is a transaction squeezed out of the pool and the reason.
type eviction struct {
	tx     *types.Transaction
	reason error
}

// TxPool holds pending transactions and the spend graph between them. Coins
// spent by a transaction are either unspent chain coins or outputs of another
// pending transaction (its parent).
//
// TxPool is not safe for concurrent use; SharedState serializes access to it.
type TxPool struct {
	config      Config
	minGasPrice *uint256.Int
	db          Database
	clock       mclock.Clock
	metrics     *metrics

	all       map[common.Hash]*poolTx
	spenders  map[types.UtxoID]common.Hash // coin -> pending transaction spending it
	gas       uint64                       // total gas of pending transactions
	seq       uint64
	committed *lru.Cache[common.Hash, struct{}] // recently committed or selected ids
}

func newTxPool(config Config, db Database, clock mclock.Clock, m *metrics) *TxPool {
	config = (&config).sanitize()
	committed, err := lru.New[common.Hash, struct{}](config.CommittedCacheSize)
	if err != nil {
		panic(err) // size is sanitized
	}
	if clock == nil {
		clock = mclock.System{}
	}
	return &TxPool{
		config:      config,
		minGasPrice: uint256.NewInt(config.MinGasPrice),
		db:          db,
		clock:       clock,
		metrics:     m,
		all:         make(map[common.Hash]*poolTx),
		spenders:    make(map[types.UtxoID]common.Hash),
		committed:   committed,
	}
}

// Insert validates and admits txs in order. Results are per transaction: a
// rejection does not affect the others. Every accepted transaction is reported
// as Submitted, every transaction it displaced as SqueezedOut.
func (pool *TxPool) Insert(status *TxStatusChange, txs []*types.Transaction) ([]*InsertionResult, []error) {
	var (
		results = make([]*InsertionResult, len(txs))
		errs    = make([]error, len(txs))
	)
	for i, tx := range txs {
		res, evicted, err := pool.add(tx)
		if err != nil {
			log.Trace("Rejected transaction", "id", tx.ID(), "err", err)
			pool.metrics.rejected.Inc()
			errs[i] = err
			continue
		}
		log.Trace("Pooled new transaction", "id", tx.ID(), "gas", tx.Gas(), "price", tx.GasPrice())
		pool.metrics.inserted.Inc()
		status.SendSubmitted(tx.ID())
		pool.sendSqueezed(status, evicted)
		results[i] = res
	}
	pool.updateGauges()
	return results, errs
}

// add validates tx and inserts it, evicting colliding or cheaper transactions
// if needed. The pool is unchanged when an error is returned.
func (pool *TxPool) add(tx *types.Transaction) (*InsertionResult, []eviction, error) {
	id := tx.ID()
	if _, ok := pool.all[id]; ok {
		return nil, nil, ErrAlreadyKnown
	}
	if pool.committed.Contains(id) || pool.db.ContainsTx(id) {
		return nil, nil, ErrAlreadyCommitted
	}
	if tx.GasPriceIntCmp(pool.minGasPrice) < 0 {
		return nil, nil, fmt.Errorf("%w: have %v, want %v", ErrUnderpriced, tx.GasPrice(), pool.minGasPrice)
	}
	if tx.Gas() > pool.config.MaxBlockGas {
		return nil, nil, fmt.Errorf("%w: have %d, want %d", ErrGasLimit, tx.Gas(), pool.config.MaxBlockGas)
	}
	inputs := tx.Inputs()
	if len(inputs) == 0 {
		return nil, nil, ErrNoInputs
	}
	var (
		parents   = mapset.NewThreadUnsafeSet[common.Hash]()
		colliders = mapset.NewThreadUnsafeSet[common.Hash]()
		seen      = make(map[types.UtxoID]struct{}, len(inputs))
		depth     uint64
	)
	for _, input := range inputs {
		if _, ok := seen[input.UtxoID]; ok {
			return nil, nil, fmt.Errorf("%w: %v", ErrDuplicateInput, input.UtxoID)
		}
		seen[input.UtxoID] = struct{}{}

		if parent, ok := pool.all[input.UtxoID.TxID]; ok {
			outputs := parent.info.tx.Outputs()
			if int(input.UtxoID.OutputIndex) >= len(outputs) {
				return nil, nil, fmt.Errorf("%w: %v", ErrUnknownInput, input.UtxoID)
			}
			out := outputs[input.UtxoID.OutputIndex]
			if out.Owner != input.Owner || out.Amount != input.Amount {
				return nil, nil, fmt.Errorf("%w: %v", ErrInputMismatch, input.UtxoID)
			}
			parents.Add(input.UtxoID.TxID)
			if parent.depth+1 > depth {
				depth = parent.depth + 1
			}
		} else {
			coin := pool.db.Utxo(input.UtxoID)
			if coin == nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrUnknownInput, input.UtxoID)
			}
			if coin.Owner != input.Owner || coin.Amount != input.Amount {
				return nil, nil, fmt.Errorf("%w: %v", ErrInputMismatch, input.UtxoID)
			}
		}
		if spender, ok := pool.spenders[input.UtxoID]; ok {
			colliders.Add(spender)
		}
	}
	if depth > pool.config.MaxDepth {
		return nil, nil, fmt.Errorf("%w: have %d, want %d", ErrMaxDepth, depth, pool.config.MaxDepth)
	}
	// A colliding transaction is displaced only if the new one pays strictly
	// more and does not descend from it.
	ancestors := pool.ancestors(parents)
	for _, cid := range colliders.ToSlice() {
		if ancestors.Contains(cid) || tx.GasPriceCmp(pool.all[cid].info.tx) <= 0 {
			return nil, nil, fmt.Errorf("%w: %x", ErrCollision, cid)
		}
	}
	dropped := pool.descendants(colliders)

	// Make room if the pool is full, evicting the cheapest transaction that
	// is not needed by the new one.
	var victim *poolTx
	if uint64(len(pool.all)-dropped.Cardinality()) >= pool.config.MaxTx {
		victim = pool.cheapest(ancestors.Union(dropped))
		if victim == nil || tx.GasPriceCmp(victim.info.tx) <= 0 {
			return nil, nil, ErrTxPoolFull
		}
	}
	var evicted []eviction
	for _, cid := range pool.sortBySeq(colliders) {
		if _, ok := pool.all[cid]; ok {
			evicted = append(evicted, pool.removeWithDependents(cid, ErrReplaced)...)
		}
	}
	if victim != nil {
		evicted = append(evicted, pool.removeWithDependents(victim.info.tx.ID(), ErrEvictedByPrice)...)
	}
	pool.seq++
	ptx := &poolTx{
		info:     &TxInfo{tx: tx, submitted: pool.clock.Now(), seq: pool.seq},
		parents:  parents,
		children: mapset.NewThreadUnsafeSet[common.Hash](),
		depth:    depth,
	}
	pool.all[id] = ptx
	for _, input := range inputs {
		pool.spenders[input.UtxoID] = id
	}
	for _, pid := range parents.ToSlice() {
		pool.all[pid].children.Add(id)
	}
	pool.gas += tx.Gas()

	res := &InsertionResult{Inserted: tx}
	for _, ev := range evicted {
		res.Removed = append(res.Removed, ev.tx)
	}
	return res, evicted, nil
}

// Remove evicts the transactions with the given ids and everything depending
// on them. Each evicted transaction is reported as SqueezedOut.
func (pool *TxPool) Remove(status *TxStatusChange, ids []common.Hash) []*types.Transaction {
	var removed []*types.Transaction
	for _, id := range ids {
		if _, ok := pool.all[id]; !ok {
			continue
		}
		evicted := pool.removeWithDependents(id, ErrRemoved)
		pool.sendSqueezed(status, evicted)
		for _, ev := range evicted {
			removed = append(removed, ev.tx)
		}
	}
	pool.updateGauges()
	return removed
}

// RemoveCommittedTx drops a transaction that is part of a block, or about to
// be. No event is sent. Transactions spending its outputs stay in the pool and
// treat those outputs as chain coins from now on.
func (pool *TxPool) RemoveCommittedTx(id common.Hash) *types.Transaction {
	pool.committed.Add(id, struct{}{})

	ptx, ok := pool.all[id]
	if !ok {
		return nil
	}
	children := ptx.children.ToSlice()
	pool.removeOne(id)
	for _, cid := range children {
		pool.updateDepth(cid)
	}
	pool.updateGauges()
	return ptx.info.tx
}

// ReleaseSelected hands back transactions selected for a block that was never
// committed. Each is reported as SqueezedOut with reason and may be submitted
// again. Pending transactions spending their outputs are squeezed out with
// their dependents, as those outputs will not appear on chain.
func (pool *TxPool) ReleaseSelected(status *TxStatusChange, txs []*types.Transaction, reason error) {
	for _, tx := range txs {
		id := tx.ID()
		pool.committed.Remove(id)
		if _, ok := pool.all[id]; ok {
			continue
		}
		pool.sendSqueezed(status, []eviction{{tx: tx, reason: reason}})
		for i := range tx.Outputs() {
			cid, ok := pool.spenders[tx.OutputID(i)]
			if !ok {
				continue
			}
			evicted := pool.removeWithDependents(cid, fmt.Errorf("%w: %x", ErrDependencyEvicted, id))
			pool.sendSqueezed(status, evicted)
		}
	}
	pool.updateGauges()
}

// BlockUpdate reconciles the pool with a committed block. Every transaction of
// the block is reported as Completed and dropped from the pool. Afterwards any
// pending transaction spending a chain coin that no longer exists, or that is
// itself part of the chain, is squeezed out together with its dependents.
func (pool *TxPool) BlockUpdate(status *TxStatusChange, sealed *types.SealedBlock) {
	for _, tx := range sealed.Block.Transactions() {
		pool.RemoveCommittedTx(tx.ID())
		status.SendComplete(tx.ID())
	}
	for _, info := range pool.sortedInfos() {
		id := info.tx.ID()
		ptx, ok := pool.all[id]
		if !ok {
			continue // evicted as a dependent earlier in this pass
		}
		if reason := pool.invalidate(ptx); reason != nil {
			pool.sendSqueezed(status, pool.removeWithDependents(id, reason))
		}
	}
	pool.updateGauges()
}

// invalidate checks a pending transaction against the current chain state.
func (pool *TxPool) invalidate(ptx *poolTx) error {
	if pool.db.ContainsTx(ptx.info.tx.ID()) {
		return ErrAlreadyCommitted
	}
	for _, input := range ptx.info.tx.Inputs() {
		if ptx.parents.Contains(input.UtxoID.TxID) {
			continue
		}
		if pool.db.Utxo(input.UtxoID) == nil {
			return fmt.Errorf("%w: %v", ErrInputSpent, input.UtxoID)
		}
	}
	return nil
}

// Find returns the pending transactions with the given ids. Absent ids yield
// nil entries.
func (pool *TxPool) Find(ids []common.Hash) []*TxInfo {
	infos := make([]*TxInfo, len(ids))
	for i, id := range ids {
		infos[i] = pool.FindOne(id)
	}
	return infos
}

// FindOne returns the pending transaction with the given id, or nil.
func (pool *TxPool) FindOne(id common.Hash) *TxInfo {
	if ptx, ok := pool.all[id]; ok {
		return ptx.info
	}
	return nil
}

// FindDependent returns the pending transactions with the given ids together
// with every pending transaction they depend on, parents before children.
func (pool *TxPool) FindDependent(ids []common.Hash) []*types.Transaction {
	roots := mapset.NewThreadUnsafeSet[common.Hash]()
	for _, id := range ids {
		if _, ok := pool.all[id]; ok {
			roots.Add(id)
		}
	}
	set := pool.ancestors(roots)
	ptxs := make([]*poolTx, 0, set.Cardinality())
	for _, id := range set.ToSlice() {
		ptxs = append(ptxs, pool.all[id])
	}
	sort.Slice(ptxs, func(i, j int) bool {
		if ptxs[i].depth != ptxs[j].depth {
			return ptxs[i].depth < ptxs[j].depth
		}
		return ptxs[i].info.seq < ptxs[j].info.seq
	})
	txs := make([]*types.Transaction, len(ptxs))
	for i, ptx := range ptxs {
		txs[i] = ptx.info.tx
	}
	return txs
}

// Includable returns the pending transactions that depend on no other pending
// transaction, in insertion order.
func (pool *TxPool) Includable() []*TxInfo {
	var infos []*TxInfo
	for _, info := range pool.sortedInfos() {
		if pool.all[info.tx.ID()].parents.Cardinality() == 0 {
			infos = append(infos, info)
		}
	}
	return infos
}

// PendingNumber returns the number of pending transactions.
func (pool *TxPool) PendingNumber() int {
	return len(pool.all)
}

// ConsumableGas returns the total gas of pending transactions.
func (pool *TxPool) ConsumableGas() uint64 {
	return pool.gas
}

// removeWithDependents removes id and every transaction depending on it. The
// root is reported with reason, dependents with ErrDependencyEvicted.
func (pool *TxPool) removeWithDependents(id common.Hash, reason error) []eviction {
	var (
		evicted []eviction
		queue   = []common.Hash{id}
	)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		ptx, ok := pool.all[next]
		if !ok {
			continue
		}
		queue = append(queue, pool.sortBySeq(ptx.children)...)
		pool.removeOne(next)

		why := reason
		if next != id {
			why = fmt.Errorf("%w: %x", ErrDependencyEvicted, id)
		}
		evicted = append(evicted, eviction{tx: ptx.info.tx, reason: why})
	}
	return evicted
}

// removeOne unlinks a single transaction from the pool.
func (pool *TxPool) removeOne(id common.Hash) {
	ptx := pool.all[id]
	delete(pool.all, id)
	for _, input := range ptx.info.tx.Inputs() {
		if pool.spenders[input.UtxoID] == id {
			delete(pool.spenders, input.UtxoID)
		}
	}
	for _, pid := range ptx.parents.ToSlice() {
		if parent, ok := pool.all[pid]; ok {
			parent.children.Remove(id)
		}
	}
	for _, cid := range ptx.children.ToSlice() {
		if child, ok := pool.all[cid]; ok {
			child.parents.Remove(id)
		}
	}
	pool.gas -= ptx.info.tx.Gas()
}

// updateDepth recomputes the depth of id and its descendants after a parent
// left the pool.
func (pool *TxPool) updateDepth(id common.Hash) {
	queue := []common.Hash{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		ptx, ok := pool.all[next]
		if !ok {
			continue
		}
		var depth uint64
		for _, pid := range ptx.parents.ToSlice() {
			if d := pool.all[pid].depth + 1; d > depth {
				depth = d
			}
		}
		if depth != ptx.depth {
			ptx.depth = depth
			queue = append(queue, ptx.children.ToSlice()...)
		}
	}
}

// ancestors returns ids together with all pending transactions they depend on.
func (pool *TxPool) ancestors(ids mapset.Set[common.Hash]) mapset.Set[common.Hash] {
	return pool.closure(ids, func(ptx *poolTx) mapset.Set[common.Hash] { return ptx.parents })
}

// descendants returns ids together with all pending transactions depending on
// them.
func (pool *TxPool) descendants(ids mapset.Set[common.Hash]) mapset.Set[common.Hash] {
	return pool.closure(ids, func(ptx *poolTx) mapset.Set[common.Hash] { return ptx.children })
}

func (pool *TxPool) closure(ids mapset.Set[common.Hash], edges func(*poolTx) mapset.Set[common.Hash]) mapset.Set[common.Hash] {
	var (
		set   = mapset.NewThreadUnsafeSet[common.Hash]()
		queue = ids.ToSlice()
	)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if set.Contains(next) {
			continue
		}
		ptx, ok := pool.all[next]
		if !ok {
			continue
		}
		set.Add(next)
		queue = append(queue, edges(ptx).ToSlice()...)
	}
	return set
}

// cheapest returns the lowest priced pending transaction outside of excluded,
// the most recent one on ties.
func (pool *TxPool) cheapest(excluded mapset.Set[common.Hash]) *poolTx {
	var worst *poolTx
	for id, ptx := range pool.all {
		if excluded.Contains(id) {
			continue
		}
		if worst == nil {
			worst = ptx
			continue
		}
		switch cmp := ptx.info.tx.GasPriceCmp(worst.info.tx); {
		case cmp < 0, cmp == 0 && ptx.info.seq > worst.info.seq:
			worst = ptx
		}
	}
	return worst
}

// sortedInfos returns all pending transactions in insertion order.
func (pool *TxPool) sortedInfos() []*TxInfo {
	infos := make([]*TxInfo, 0, len(pool.all))
	for _, ptx := range pool.all {
		infos = append(infos, ptx.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].seq < infos[j].seq })
	return infos
}

// sortBySeq returns the pending ids of set in insertion order.
func (pool *TxPool) sortBySeq(set mapset.Set[common.Hash]) []common.Hash {
	ids := make([]common.Hash, 0, set.Cardinality())
	for _, id := range set.ToSlice() {
		if _, ok := pool.all[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return pool.all[ids[i]].info.seq < pool.all[ids[j]].info.seq })
	return ids
}

func (pool *TxPool) sendSqueezed(status *TxStatusChange, evicted []eviction) {
	for _, ev := range evicted {
		log.Debug("Squeezed out transaction", "id", ev.tx.ID(), "reason", ev.reason)
		status.SendSqueezedOut(ev.tx.ID(), ev.reason)
	}
	pool.metrics.squeezed.Add(float64(len(evicted)))
}

func (pool *TxPool) updateGauges() {
	pool.metrics.pending.Set(float64(len(pool.all)))
	pool.metrics.gas.Set(float64(pool.gas))
}
