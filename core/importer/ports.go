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
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
)

// Database is the read side of the chain the importer depends on.
type Database interface {
	// LatestBlockHeight returns the height of the latest committed block.
	LatestBlockHeight() (uint64, error)
}

// StorageTransaction is a staged set of chain changes produced by block
// execution. It is owned by the commit that consumes it.
type StorageTransaction interface {
	// LatestHeight returns the latest height as seen by the transaction, or
	// nil on an empty chain.
	LatestHeight() *uint64

	// SetLatestHeight stages the latest height marker.
	SetLatestHeight(height uint64) error

	// SealBlock stages the seal of a block, returning the previous seal.
	SealBlock(id common.Hash, seal *types.Consensus) (*types.Consensus, error)

	// BlockRoot returns the block root at height as seen by the transaction.
	BlockRoot(height uint64) *common.Hash

	// InsertBlockHeaderMerkleRoot stages the block root of height, returning
	// the previous root.
	InsertBlockHeaderMerkleRoot(height uint64, root common.Hash) (*common.Hash, error)

	// Commit applies every staged change atomically.
	Commit() error

	// RollbackUnlessClosed discards the staged changes unless the transaction
	// was already committed or rolled back.
	RollbackUnlessClosed() error
}

// BlockVerifier checks the consensus fields of a block before it is committed.
type BlockVerifier interface {
	VerifyBlockFields(seal *types.Consensus, block *types.Block) error
}

// Executor executes a block without committing its changes.
type Executor interface {
	ExecuteWithoutCommit(sealed *types.SealedBlock) (*UncommittedResult[StorageTransaction], error)
}

// UncommittedResult is the outcome of block execution whose changes have not
// been applied to the database yet.
type UncommittedResult[T any] struct {
	Result  *types.ImportResult
	Changes T
}

// NewUncommittedResult pairs an import result with its staged changes.
func NewUncommittedResult[T any](result *types.ImportResult, changes T) *UncommittedResult[T] {
	return &UncommittedResult[T]{Result: result, Changes: changes}
}
