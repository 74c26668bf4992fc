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

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/chaindb"
	"github.com/sunyihoo/go-txcore/core/executor"
	"github.com/sunyihoo/go-txcore/core/importer"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/log"
)

// Genesis specifies the header fields and initial coins of a genesis block.
type Genesis struct {
	Time      uint64         `toml:",omitempty"`
	Authority common.Address // Only signer of blocks after genesis
	Alloc     []types.Output `toml:",omitempty"`
}

// GenesisMismatchError is returned if the database holds a different genesis.
type GenesisMismatchError struct {
	Stored, New common.Hash
}

func (e *GenesisMismatchError) Error() string {
	return fmt.Sprintf("database contains incompatible genesis (have %x, new %x)", e.Stored, e.New)
}

// Header returns the genesis header.
func (g *Genesis) Header() *types.Header {
	return &types.Header{Time: g.Time, Producer: g.Authority}
}

// ID returns the id of the genesis block.
func (g *Genesis) ID() common.Hash {
	return types.NewBlock(g.Header(), nil).ID()
}

// SetupGenesisBlock commits the genesis block if the chain is empty, or checks
// that the stored one matches. It returns the id of the genesis block.
func SetupGenesisBlock(db *chaindb.Database, exec *executor.Executor, imp *importer.Importer, genesis *Genesis) (common.Hash, error) {
	if genesis == nil {
		return common.Hash{}, errors.New("missing genesis")
	}
	want := genesis.ID()
	_, err := db.LatestBlockHeight()
	if err == nil {
		stored := db.ReadHeader(0)
		if stored == nil {
			return common.Hash{}, errors.New("missing genesis header")
		}
		if id := stored.ID(); id != want {
			return id, &GenesisMismatchError{Stored: id, New: want}
		}
		return want, nil
	}
	if !errors.Is(err, chaindb.ErrNoBlocks) {
		return common.Hash{}, err
	}
	block, changes, err := exec.Genesis(genesis.Header(), genesis.Alloc)
	if err != nil {
		return common.Hash{}, err
	}
	sealed := &types.SealedBlock{Block: block, Consensus: &types.Consensus{Kind: types.GenesisConsensus}}
	if err := imp.VerifyBlockFields(sealed.Consensus, block); err != nil {
		changes.Rollback()
		return common.Hash{}, err
	}
	result := importer.NewUncommittedResult[importer.StorageTransaction](types.NewImportResult(sealed), changes)
	if err := imp.CommitResult(result); err != nil {
		return common.Hash{}, err
	}
	log.Info("Wrote genesis block", "id", block.ID(), "coins", len(genesis.Alloc))
	return block.ID(), nil
}
