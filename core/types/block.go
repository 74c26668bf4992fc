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
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-txcore/common"
)

// Header represents a block header.
type Header struct {
	// PrevRoot is the block root committed at Height-1, zero for genesis.
	PrevRoot common.Hash
	Height   uint64
	Time     uint64
	TxRoot   common.Hash
	Producer common.Address
}

// ID returns the block id, the Keccak256 hash of the header's RLP encoding.
func (h *Header) ID() common.Hash {
	return rlpHash(h)
}

// Body is a simple (mutable, non-safe) data container for storing and moving
// a block's data contents (transactions) together.
type Body struct {
	Transactions []*Transaction
}

// Block represents an entire block.
//
// Note the Block type tries to be 'immutable', and contains certain caches that rely
// on that. The rules are as follows:
//
// Header: the header is copied on construction and on retrieval.
//
// Body: the transaction slice is copied on construction.
type Block struct {
	header       *Header
	transactions Transactions

	// caches
	id atomic.Pointer[common.Hash]
}

// "external" block encoding, used for storage and transport.
type extblock struct {
	Header *Header
	Txs    []*Transaction
}

// NewBlock creates a new block. The input data is copied, changes to header and to the
// field values will not affect the block. The TxRoot of the header is derived
// from txs.
func NewBlock(header *Header, txs []*Transaction) *Block {
	b := &Block{header: CopyHeader(header)}
	b.transactions = append(Transactions(nil), txs...)
	b.header.TxRoot = DeriveTxRoot(b.transactions)
	return b
}

// NewBlockWithHeader creates a block with the given header data, keeping the
// header's TxRoot as is. Used when loading blocks whose root must be checked
// against their body.
func NewBlockWithHeader(header *Header, txs []*Transaction) *Block {
	b := &Block{header: CopyHeader(header)}
	b.transactions = append(Transactions(nil), txs...)
	return b
}

// CopyHeader creates a deep copy of a block header.
func CopyHeader(h *Header) *Header {
	cpy := *h
	return &cpy
}

// DecodeRLP decodes a block from RLP.
func (b *Block) DecodeRLP(s *rlp.Stream) error {
	var eb extblock
	if err := s.Decode(&eb); err != nil {
		return err
	}
	b.header, b.transactions = eb.Header, eb.Txs
	return nil
}

// EncodeRLP serializes a block as RLP.
func (b *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &extblock{
		Header: b.header,
		Txs:    b.transactions,
	})
}

// Body returns the non-header content of the block.
func (b *Block) Body() *Body {
	return &Body{Transactions: b.transactions}
}

// Header returns the block header (as a copy).
func (b *Block) Header() *Header { return CopyHeader(b.header) }

// Transactions returns the transactions of the block.
func (b *Block) Transactions() Transactions { return b.transactions }

// Height returns the block height.
func (b *Block) Height() uint64 { return b.header.Height }

// Time returns the block timestamp.
func (b *Block) Time() uint64 { return b.header.Time }

// TxRoot returns the transaction root committed by the header.
func (b *Block) TxRoot() common.Hash { return b.header.TxRoot }

// PrevRoot returns the block root of the parent height.
func (b *Block) PrevRoot() common.Hash { return b.header.PrevRoot }

// Producer returns the address of the block producer.
func (b *Block) Producer() common.Address { return b.header.Producer }

// ID returns the keccak256 hash of b's header.
// The id is computed on the first call and cached thereafter.
func (b *Block) ID() common.Hash {
	if id := b.id.Load(); id != nil {
		return *id
	}
	id := b.header.ID()
	b.id.Store(&id)
	return id
}

func (b *Block) String() string {
	return fmt.Sprintf("Block(#%d %s txs=%d)", b.Height(), b.ID().TerminalString(), len(b.transactions))
}
