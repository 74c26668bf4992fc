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

package types

import (
	"fmt"

	"github.com/sunyihoo/go-txcore/common"
)

// ConsensusKind tells how a block was sealed.
type ConsensusKind uint8

const (
	// GenesisConsensus seals the block at height zero.
	GenesisConsensus ConsensusKind = iota
	// PoAConsensus seals a block with the signature of the authority.
	PoAConsensus
)

func (k ConsensusKind) String() string {
	switch k {
	case GenesisConsensus:
		return "genesis"
	case PoAConsensus:
		return "poa"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Consensus is the seal attached to a block when it is committed.
type Consensus struct {
	Kind      ConsensusKind
	Signature []byte // [R || S || V] over the block id, empty for genesis
}

// SealedBlock is a block together with its consensus seal.
type SealedBlock struct {
	Block     *Block
	Consensus *Consensus
}

// ImportResult is published after a sealed block has been committed.
type ImportResult struct {
	Sealed *SealedBlock
	// TxIDs lists the transactions the block finalized, in block order.
	TxIDs []common.Hash
}

// NewImportResult creates the import notification of a committed block.
func NewImportResult(sealed *SealedBlock) *ImportResult {
	return &ImportResult{
		Sealed: sealed,
		TxIDs:  sealed.Block.Transactions().IDs(),
	}
}
