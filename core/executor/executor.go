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

// Package executor applies the transactions of a block to the coin set.
package executor

import (
	"fmt"
	"math"

	"github.com/sunyihoo/go-txcore/core/chaindb"
	"github.com/sunyihoo/go-txcore/core/importer"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/log"
)

// SkippedTx is a transaction left out of a produced block.
type SkippedTx struct {
	Tx  *types.Transaction
	Err error
}

// Result is the outcome of producing a block. Changes holds the staged chain
// changes and must be committed or rolled back by the caller.
type Result struct {
	Block   *types.Block
	Skipped []SkippedTx
	GasUsed uint64
	Changes *chaindb.Transaction
}

// Executor applies blocks to the chain state without committing them.
type Executor struct {
	db       *chaindb.Database
	gasLimit uint64
}

// New creates an executor limiting every block to gasLimit.
func New(db *chaindb.Database, gasLimit uint64) *Executor {
	return &Executor{db: db, gasLimit: gasLimit}
}

// Produce executes txs in order on top of the current chain and assembles a
// block from header and the transactions that applied. Transactions that fail
// are reported in Result.Skipped.
func (e *Executor) Produce(header *types.Header, txs []*types.Transaction) (*Result, error) {
	var (
		tx       = e.db.NewTransaction()
		gp       = new(GasPool).AddGas(e.gasLimit)
		included = make([]*types.Transaction, 0, len(txs))
		skipped  []SkippedTx
	)
	for _, t := range txs {
		if err := applyTransaction(tx, gp, header.Height, t); err != nil {
			log.Debug("Skipping transaction", "id", t.ID(), "err", err)
			skipped = append(skipped, SkippedTx{Tx: t, Err: err})
			continue
		}
		included = append(included, t)
	}
	block := types.NewBlock(header, included)
	if err := tx.WriteBlock(block); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Result{
		Block:   block,
		Skipped: skipped,
		GasUsed: e.gasLimit - gp.Gas(),
		Changes: tx,
	}, nil
}

// ExecuteWithoutCommit executes an imported block. Every transaction must
// apply, otherwise the block is rejected and nothing is staged.
func (e *Executor) ExecuteWithoutCommit(sealed *types.SealedBlock) (*importer.UncommittedResult[importer.StorageTransaction], error) {
	var (
		block = sealed.Block
		tx    = e.db.NewTransaction()
		gp    = new(GasPool).AddGas(e.gasLimit)
	)
	for i, t := range block.Transactions() {
		if err := applyTransaction(tx, gp, block.Height(), t); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("could not apply tx %d [%v]: %w", i, t.ID(), err)
		}
	}
	if err := tx.WriteBlock(block); err != nil {
		tx.Rollback()
		return nil, err
	}
	return importer.NewUncommittedResult[importer.StorageTransaction](types.NewImportResult(sealed), tx), nil
}

// Genesis stages the genesis block together with its initial coins. The coin
// of alloc[i] is created at output i of the genesis block id.
func (e *Executor) Genesis(header *types.Header, alloc []types.Output) (*types.Block, *chaindb.Transaction, error) {
	if header.Height != 0 {
		return nil, nil, fmt.Errorf("genesis height %d", header.Height)
	}
	if len(alloc) > math.MaxUint16+1 {
		return nil, nil, fmt.Errorf("too many genesis coins: %d", len(alloc))
	}
	var (
		tx    = e.db.NewTransaction()
		block = types.NewBlock(header, nil)
	)
	for i, out := range alloc {
		id := types.UtxoID{TxID: block.ID(), OutputIndex: uint16(i)}
		if err := tx.CreateCoin(id, &types.Coin{Owner: out.Owner, Amount: out.Amount}); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}
	if err := tx.WriteBlock(block); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	return block, tx, nil
}

// applyTransaction checks t against the staged chain state and, if it is
// valid, spends its inputs and creates its outputs. A transaction that fails
// validation stages nothing.
func applyTransaction(tx *chaindb.Transaction, gp *GasPool, height uint64, t *types.Transaction) error {
	if tx.ContainsTx(t.ID()) {
		return ErrAlreadyCommitted
	}
	inputs := t.Inputs()
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	var (
		seen = make(map[types.UtxoID]struct{}, len(inputs))
		in   uint64
		out  uint64
	)
	for _, input := range inputs {
		if _, ok := seen[input.UtxoID]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateInput, input.UtxoID)
		}
		seen[input.UtxoID] = struct{}{}

		coin := tx.Utxo(input.UtxoID)
		if coin == nil {
			return fmt.Errorf("%w: %v", ErrMissingInput, input.UtxoID)
		}
		if coin.Owner != input.Owner || coin.Amount != input.Amount {
			return fmt.Errorf("%w: %v", ErrInputMismatch, input.UtxoID)
		}
		if in+coin.Amount < in {
			return fmt.Errorf("%w: input value overflow", ErrInsufficientFunds)
		}
		in += coin.Amount
	}
	outputs := t.Outputs()
	for _, output := range outputs {
		if out+output.Amount < out {
			return fmt.Errorf("%w: output value overflow", ErrInsufficientFunds)
		}
		out += output.Amount
	}
	if out > in {
		return fmt.Errorf("%w: have %d, want %d", ErrInsufficientFunds, in, out)
	}
	if err := gp.SubGas(t.Gas()); err != nil {
		return err
	}
	for _, input := range inputs {
		if err := tx.SpendCoin(input.UtxoID); err != nil {
			return err
		}
	}
	for i, output := range outputs {
		coin := &types.Coin{Owner: output.Owner, Amount: output.Amount, BlockCreated: height}
		if err := tx.CreateCoin(t.OutputID(i), coin); err != nil {
			return err
		}
	}
	return nil
}
