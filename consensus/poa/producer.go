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

package poa

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/common/mclock"
	"github.com/sunyihoo/go-txcore/core/executor"
	"github.com/sunyihoo/go-txcore/core/importer"
	"github.com/sunyihoo/go-txcore/core/txpool"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/crypto"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/sunyihoo/go-txcore/service"
)

// TxPool is the transaction source of the producer.
type TxPool interface {
	// SelectTransactions removes and returns the best transactions fitting
	// into maxGas.
	SelectTransactions(maxGas uint64) []*types.Transaction

	// NotifySkipped reports a selected transaction left out of the block.
	NotifySkipped(id common.Hash, reason error)

	// ReleaseSelected hands back selected transactions whose block was not
	// committed.
	ReleaseSelected(txs []*types.Transaction, reason error)
}

// Chain is the read side of the chain the producer builds on.
type Chain interface {
	LatestBlockHeight() (uint64, error)
	ReadHeader(height uint64) *types.Header
	ReadBlockRoot(height uint64) *common.Hash
}

// BlockExecutor assembles a block from selected transactions.
type BlockExecutor interface {
	Produce(header *types.Header, txs []*types.Transaction) (*executor.Result, error)
}

// BlockImporter verifies and commits produced blocks.
type BlockImporter interface {
	VerifyBlockFields(seal *types.Consensus, block *types.Block) error
	CommitResult(result *importer.UncommittedResult[importer.StorageTransaction]) error
}

// Producer seals blocks with the authority key on a fixed period.
type Producer struct {
	config   Config
	key      *secp256k1.PrivateKey
	signer   common.Address
	chain    Chain
	pool     TxPool
	executor BlockExecutor
	importer BlockImporter
	clock    mclock.Clock
	now      func() time.Time

	mu sync.Mutex // serializes block production
}

// NewProducer creates a block producer signing with key.
func NewProducer(config Config, key *secp256k1.PrivateKey, chain Chain, pool TxPool, exec BlockExecutor, imp BlockImporter, clock mclock.Clock) *Producer {
	if clock == nil {
		clock = mclock.System{}
	}
	return &Producer{
		config:   (&config).sanitize(),
		key:      key,
		signer:   crypto.PubkeyToAddress(key.PubKey()),
		chain:    chain,
		pool:     pool,
		executor: exec,
		importer: imp,
		clock:    clock,
		now:      time.Now,
	}
}

// Signer returns the address blocks are sealed with.
func (p *Producer) Signer() common.Address {
	return p.signer
}

// ProduceBlock builds a block on top of the latest committed one, seals it and
// commits it through the importer.
func (p *Producer) ProduceBlock() (*types.SealedBlock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	latest, err := p.chain.LatestBlockHeight()
	if err != nil {
		return nil, fmt.Errorf("no chain head: %w", err)
	}
	parent := p.chain.ReadHeader(latest)
	if parent == nil {
		return nil, fmt.Errorf("missing header %d", latest)
	}
	prevRoot := p.chain.ReadBlockRoot(latest)
	if prevRoot == nil {
		return nil, fmt.Errorf("missing block root %d", latest)
	}
	timestamp := uint64(p.now().Unix())
	if timestamp < parent.Time {
		timestamp = parent.Time
	}
	header := &types.Header{
		PrevRoot: *prevRoot,
		Height:   latest + 1,
		Time:     timestamp,
		Producer: p.signer,
	}
	txs := p.pool.SelectTransactions(p.config.BlockGasLimit)

	res, err := p.executor.Produce(header, txs)
	if err != nil {
		p.release(txs, err)
		return nil, err
	}
	for _, skipped := range res.Skipped {
		p.pool.NotifySkipped(skipped.Tx.ID(), skipped.Err)
	}
	included := res.Block.Transactions()
	seal, err := SignBlock(res.Block, p.key)
	if err != nil {
		res.Changes.Rollback()
		p.release(included, err)
		return nil, err
	}
	if err := p.importer.VerifyBlockFields(seal, res.Block); err != nil {
		res.Changes.Rollback()
		p.release(included, err)
		return nil, fmt.Errorf("produced invalid block: %w", err)
	}
	sealed := &types.SealedBlock{Block: res.Block, Consensus: seal}
	result := importer.NewUncommittedResult[importer.StorageTransaction](types.NewImportResult(sealed), res.Changes)
	if err := p.importer.CommitResult(result); err != nil {
		p.release(included, err)
		return nil, err
	}
	log.Info("Produced new block", "number", header.Height, "id", res.Block.ID(),
		"txs", len(res.Block.Transactions()), "skipped", len(res.Skipped), "gas", res.GasUsed,
		"elapsed", time.Since(start).Round(time.Microsecond))
	return sealed, nil
}

// release returns txs of an aborted block to the pool.
func (p *Producer) release(txs []*types.Transaction, cause error) {
	if len(txs) == 0 {
		return
	}
	log.Warn("Block production aborted", "txs", len(txs), "err", cause)
	p.pool.ReleaseSelected(txs, fmt.Errorf("%w: %w", txpool.ErrBlockAborted, cause))
}

type producerTask struct {
	producer *Producer
	timer    mclock.ChanTimer
}

func (t *producerTask) Run(watcher *service.StateWatcher) (bool, error) {
	select {
	case <-watcher.Stopping():
		return false, nil

	case <-t.timer.C():
		_, err := t.producer.ProduceBlock()
		t.timer.Reset(t.producer.config.Period)
		if errors.Is(err, importer.ErrStopped) {
			return false, nil
		}
		return true, err
	}
}

func (t *producerTask) Shutdown() error {
	t.timer.Stop()
	return nil
}

type producerService struct {
	producer *Producer
}

func (s *producerService) Name() string { return "poa" }

func (s *producerService) SharedData() *Producer { return s.producer }

func (s *producerService) Into() (service.RunnableTask, error) {
	return &producerTask{
		producer: s.producer,
		timer:    s.producer.clock.NewTimer(s.producer.config.Period),
	}, nil
}

// NewService wraps the producer into a service sealing one block per period.
func NewService(producer *Producer) *service.Runner[*Producer] {
	return service.New[*Producer](&producerService{producer: producer})
}
