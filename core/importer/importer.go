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

// Package importer commits executed blocks to the chain database.
package importer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/event"
	"github.com/sunyihoo/go-txcore/log"
)

var (
	// ErrNotUnique is returned if the block was already sealed.
	ErrNotUnique = errors.New("block is not unique")

	// ErrInvalidHeight is returned if the block does not extend the latest
	// committed height.
	ErrInvalidHeight = errors.New("invalid block height")

	// ErrPrevRootMismatch is returned if the block does not link to the root
	// committed at the previous height.
	ErrPrevRootMismatch = errors.New("previous block root mismatch")

	// ErrRootOverwrite is returned if a block root already exists at the
	// block's height.
	ErrRootOverwrite = errors.New("block root already stored")

	// ErrStopped is returned when committing to a stopped importer.
	ErrStopped = errors.New("importer stopped")
)

// Importer commits the results of block execution. Commits are serialized, and
// each committed block is published to the block event subscribers.
type Importer struct {
	db       Database
	executor Executor
	verifier BlockVerifier

	mu      sync.Mutex // serializes commits
	stopped bool

	blockFeed event.FeedOf[*types.ImportResult]
	scope     event.SubscriptionScope
	metrics   *metrics
}

// New creates an importer. Metrics are registered with reg when it is not nil.
func New(db Database, executor Executor, verifier BlockVerifier, reg prometheus.Registerer) (*Importer, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	imp := &Importer{
		db:       db,
		executor: executor,
		verifier: verifier,
		metrics:  m,
	}
	if height, err := db.LatestBlockHeight(); err == nil {
		m.height.Set(float64(height))
	}
	return imp, nil
}

// SubscribeBlockEvents registers a subscription for committed blocks.
func (imp *Importer) SubscribeBlockEvents(ch chan<- *types.ImportResult) event.Subscription {
	return imp.scope.Track(imp.blockFeed.Subscribe(ch))
}

// LatestBlockHeight returns the height of the latest committed block.
func (imp *Importer) LatestBlockHeight() (uint64, error) {
	return imp.db.LatestBlockHeight()
}

// VerifyBlockFields checks the consensus fields of block. It must succeed
// before the block's execution result is committed.
func (imp *Importer) VerifyBlockFields(seal *types.Consensus, block *types.Block) error {
	return imp.verifier.VerifyBlockFields(seal, block)
}

// ExecuteAndCommit imports a sealed block received from outside: the block is
// verified, executed and committed, in that order. It is the entry point for
// block sync; locally produced blocks go through CommitResult directly.
func (imp *Importer) ExecuteAndCommit(sealed *types.SealedBlock) error {
	if err := imp.VerifyBlockFields(sealed.Consensus, sealed.Block); err != nil {
		return fmt.Errorf("block verification failed: %w", err)
	}
	result, err := imp.executor.ExecuteWithoutCommit(sealed)
	if err != nil {
		return fmt.Errorf("block execution failed: %w", err)
	}
	return imp.CommitResult(result)
}

// CommitResult stages the seal, the block root and the latest height of the
// executed block in its storage transaction and commits it. On any failure the
// transaction is discarded and nothing is persisted.
func (imp *Importer) CommitResult(result *UncommittedResult[StorageTransaction]) error {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	tx := result.Changes
	defer tx.RollbackUnlessClosed()

	if imp.stopped {
		return ErrStopped
	}
	if err := imp.commit(result.Result.Sealed, tx); err != nil {
		imp.metrics.commitFailures.Inc()
		return err
	}
	block := result.Result.Sealed.Block
	imp.metrics.commits.Inc()
	imp.metrics.height.Set(float64(block.Height()))
	log.Info("Committed new block", "height", block.Height(), "id", block.ID(), "txs", len(block.Transactions()))

	imp.blockFeed.Send(result.Result)
	return nil
}

func (imp *Importer) commit(sealed *types.SealedBlock, tx StorageTransaction) error {
	var (
		block  = sealed.Block
		id     = block.ID()
		height = block.Height()
	)
	switch latest := tx.LatestHeight(); {
	case latest == nil && height != 0:
		return fmt.Errorf("%w: have %d, want genesis", ErrInvalidHeight, height)
	case latest != nil && height != *latest+1:
		return fmt.Errorf("%w: have %d, want %d", ErrInvalidHeight, height, *latest+1)
	}
	var prevRoot common.Hash
	if height > 0 {
		root := tx.BlockRoot(height - 1)
		if root == nil {
			return fmt.Errorf("%w: no root at height %d", ErrPrevRootMismatch, height-1)
		}
		prevRoot = *root
	}
	if block.PrevRoot() != prevRoot {
		return fmt.Errorf("%w: have %x, want %x", ErrPrevRootMismatch, block.PrevRoot(), prevRoot)
	}
	prev, err := tx.SealBlock(id, sealed.Consensus)
	if err != nil {
		return err
	}
	if prev != nil {
		return fmt.Errorf("%w: %x", ErrNotUnique, id)
	}
	old, err := tx.InsertBlockHeaderMerkleRoot(height, types.NextBlockRoot(prevRoot, id))
	if err != nil {
		return err
	}
	if old != nil {
		return fmt.Errorf("%w: height %d", ErrRootOverwrite, height)
	}
	if err := tx.SetLatestHeight(height); err != nil {
		return err
	}
	return tx.Commit()
}

// Stop unsubscribes all block event subscribers and rejects further commits.
func (imp *Importer) Stop() {
	// Unsubscribing first releases a commit blocked on a slow subscriber.
	imp.scope.Close()

	imp.mu.Lock()
	imp.stopped = true
	imp.mu.Unlock()
}
