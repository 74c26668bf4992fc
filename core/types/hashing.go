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
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/crypto"
	"golang.org/x/crypto/sha3"
)

// hasherPool holds LegacyKeccak256 hashers for rlpHash.
var hasherPool = sync.Pool{
	New: func() interface{} { return sha3.NewLegacyKeccak256() },
}

var (
	// EmptyRootHash is the root of a block without transactions.
	EmptyRootHash = crypto.Keccak256Hash(nil)

	// merkleNodePrefix separates inner nodes from leaves so a leaf can never
	// be mistaken for a subtree.
	merkleNodePrefix = []byte{0x01}
	merkleLeafPrefix = []byte{0x00}
)

// rlpHash encodes x and hashes the encoded bytes.
func rlpHash(x interface{}) (h common.Hash) {
	sha := hasherPool.Get().(crypto.KeccakState)
	defer hasherPool.Put(sha)
	sha.Reset()
	rlp.Encode(sha, x)
	sha.Read(h[:])
	return h
}

// MerkleRoot computes the root of a binary Keccak256 merkle tree over the given
// leaves. An odd node at the end of a level is carried up unchanged.
func MerkleRoot(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return EmptyRootHash
	}
	level := make([]common.Hash, len(leaves))
	for i, leaf := range leaves {
		level[i] = crypto.Keccak256Hash(merkleLeafPrefix, leaf[:])
	}
	for len(level) > 1 {
		next := level[:0:0]
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, crypto.Keccak256Hash(merkleNodePrefix, level[i][:], level[i+1][:]))
		}
		level = next
	}
	return level[0]
}

// DeriveTxRoot returns the merkle root over the ids of txs.
func DeriveTxRoot(txs Transactions) common.Hash {
	return MerkleRoot(txs.IDs())
}

// NextBlockRoot folds a block id into the chain commitment of its parent
// height. The root of height h commits to every block id up to h.
func NextBlockRoot(prev common.Hash, blockID common.Hash) common.Hash {
	return crypto.Keccak256Hash(prev[:], blockID[:])
}
