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

// Package poa implements a single-authority proof-of-authority chain: one
// configured key seals every block after genesis.
package poa

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/consensus"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/crypto"
)

const inmemorySignatures = 4096 // Number of recent block signatures to keep in memory

// Verifier checks blocks against the authority of the chain.
type Verifier struct {
	authority  common.Address
	signatures *lru.Cache[common.Hash, common.Address] // hash(block id, signature) -> signer
}

var _ consensus.Engine = (*Verifier)(nil)

// NewVerifier creates a verifier accepting blocks sealed by authority.
func NewVerifier(authority common.Address) *Verifier {
	signatures, _ := lru.New[common.Hash, common.Address](inmemorySignatures)
	return &Verifier{authority: authority, signatures: signatures}
}

// Authority returns the address allowed to seal blocks.
func (v *Verifier) Authority() common.Address {
	return v.authority
}

// Author implements consensus.Engine, returning the address recovered from the
// signature in the seal.
func (v *Verifier) Author(seal *types.Consensus, block *types.Block) (common.Address, error) {
	if seal == nil {
		return common.Address{}, consensus.ErrMissingSeal
	}
	return v.ecrecover(block.ID(), seal.Signature)
}

// VerifyBlockFields implements consensus.Engine.
func (v *Verifier) VerifyBlockFields(seal *types.Consensus, block *types.Block) error {
	if seal == nil {
		return consensus.ErrMissingSeal
	}
	if root := types.DeriveTxRoot(block.Transactions()); root != block.TxRoot() {
		return consensus.ErrInvalidTxRoot
	}
	if block.Height() == 0 {
		if seal.Kind != types.GenesisConsensus {
			return consensus.ErrInvalidKind
		}
		if len(seal.Signature) != 0 {
			return consensus.ErrUnexpectedSignature
		}
		return nil
	}
	if seal.Kind != types.PoAConsensus {
		return consensus.ErrInvalidKind
	}
	if block.Producer() != v.authority {
		return consensus.ErrUnauthorizedProducer
	}
	signer, err := v.ecrecover(block.ID(), seal.Signature)
	if err != nil {
		return err
	}
	if signer != v.authority {
		return consensus.ErrUnauthorizedSigner
	}
	return nil
}

// ecrecover extracts the signer address from a block signature.
func (v *Verifier) ecrecover(id common.Hash, sig []byte) (common.Address, error) {
	if len(sig) == 0 {
		return common.Address{}, consensus.ErrMissingSignature
	}
	// Seals are kept apart from the header, so the cache key covers both.
	key := crypto.Keccak256Hash(id[:], sig)
	if signer, known := v.signatures.Get(key); known {
		return signer, nil
	}
	signer, err := crypto.SigToAddress(id[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	v.signatures.Add(key, signer)
	return signer, nil
}

// SignBlock seals block with key.
func SignBlock(block *types.Block, key *secp256k1.PrivateKey) (*types.Consensus, error) {
	id := block.ID()
	sig, err := crypto.Sign(id[:], key)
	if err != nil {
		return nil, err
	}
	return &types.Consensus{Kind: types.PoAConsensus, Signature: sig}, nil
}
