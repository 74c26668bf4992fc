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
	"errors"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-txcore/common"
)

var errEmptyTx = errors.New("empty transaction encoding")

// Input spends a coin.
type Input struct {
	UtxoID UtxoID
	Owner  common.Address
	Amount uint64
}

// Output creates a coin.
type Output struct {
	Owner  common.Address
	Amount uint64
}

// TxData is the consensus content of a transaction.
type TxData struct {
	GasPrice *uint256.Int
	Gas      uint64
	Inputs   []Input
	Outputs  []Output
}

// copy creates a deep copy of the transaction data.
func (d *TxData) copy() *TxData {
	cpy := &TxData{
		GasPrice: new(uint256.Int),
		Gas:      d.Gas,
		Inputs:   append([]Input(nil), d.Inputs...),
		Outputs:  append([]Output(nil), d.Outputs...),
	}
	if d.GasPrice != nil {
		cpy.GasPrice.Set(d.GasPrice)
	}
	return cpy
}

// Transaction is an immutable coin transfer. Values are shared by pointer
// between the pool, blocks and subscribers and are never modified after
// construction.
type Transaction struct {
	inner *TxData

	// caches
	id   atomic.Pointer[common.Hash]
	size atomic.Uint64
}

// NewTx creates a new transaction from a copy of data.
func NewTx(data *TxData) *Transaction {
	return &Transaction{inner: data.copy()}
}

// EncodeRLP implements rlp.Encoder
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, tx.inner)
}

// DecodeRLP implements rlp.Decoder
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	_, size, err := s.Kind()
	if err != nil {
		return err
	}
	var inner TxData
	if err := s.Decode(&inner); err != nil {
		return err
	}
	if inner.GasPrice == nil {
		inner.GasPrice = new(uint256.Int)
	}
	tx.inner = &inner
	tx.size.Store(rlp.ListSize(size))
	return nil
}

// MarshalBinary returns the canonical encoding of the transaction.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(tx.inner)
}

// UnmarshalBinary decodes the canonical encoding of transactions.
func (tx *Transaction) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return errEmptyTx
	}
	var inner TxData
	if err := rlp.DecodeBytes(b, &inner); err != nil {
		return err
	}
	if inner.GasPrice == nil {
		inner.GasPrice = new(uint256.Int)
	}
	tx.inner = &inner
	tx.size.Store(uint64(len(b)))
	return nil
}

// ID returns the transaction id, the Keccak256 hash of its encoding.
func (tx *Transaction) ID() common.Hash {
	if id := tx.id.Load(); id != nil {
		return *id
	}
	id := rlpHash(tx.inner)
	tx.id.Store(&id)
	return id
}

// Size returns the encoded size of the transaction.
func (tx *Transaction) Size() uint64 {
	if size := tx.size.Load(); size > 0 {
		return size
	}
	c := writeCounter(0)
	rlp.Encode(&c, tx.inner)
	size := uint64(c)
	tx.size.Store(size)
	return size
}

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.Gas }

// GasPrice returns a copy of the gas price of the transaction.
func (tx *Transaction) GasPrice() *uint256.Int { return new(uint256.Int).Set(tx.inner.GasPrice) }

// GasPriceCmp compares the gas prices of two transactions.
func (tx *Transaction) GasPriceCmp(other *Transaction) int {
	return tx.inner.GasPrice.Cmp(other.inner.GasPrice)
}

// GasPriceIntCmp compares the gas price of the transaction against the given price.
func (tx *Transaction) GasPriceIntCmp(other *uint256.Int) int {
	return tx.inner.GasPrice.Cmp(other)
}

// MaxFee returns gas * gasPrice.
func (tx *Transaction) MaxFee() *uint256.Int {
	fee := new(uint256.Int).SetUint64(tx.inner.Gas)
	return fee.Mul(fee, tx.inner.GasPrice)
}

// Inputs returns a copy of the coins spent by the transaction.
func (tx *Transaction) Inputs() []Input { return append([]Input(nil), tx.inner.Inputs...) }

// Outputs returns a copy of the coins created by the transaction.
func (tx *Transaction) Outputs() []Output { return append([]Output(nil), tx.inner.Outputs...) }

// OutputID returns the UtxoID of the i-th output.
func (tx *Transaction) OutputID(i int) UtxoID {
	return UtxoID{TxID: tx.ID(), OutputIndex: uint16(i)}
}

// Transactions is a list of transactions.
type Transactions []*Transaction

// Len returns the length of s.
func (s Transactions) Len() int { return len(s) }

// IDs returns the ids of all transactions in order.
func (s Transactions) IDs() []common.Hash {
	ids := make([]common.Hash, len(s))
	for i, tx := range s {
		ids[i] = tx.ID()
	}
	return ids
}

// TxDifference returns a new set of transactions that are present in a but not in b.
func TxDifference(a, b Transactions) Transactions {
	keep := make(Transactions, 0, len(a))

	remove := make(map[common.Hash]struct{}, len(b))
	for _, tx := range b {
		remove[tx.ID()] = struct{}{}
	}
	for _, tx := range a {
		if _, ok := remove[tx.ID()]; !ok {
			keep = append(keep, tx)
		}
	}
	return keep
}

type writeCounter uint64

func (c *writeCounter) Write(b []byte) (int, error) {
	*c += writeCounter(len(b))
	return len(b), nil
}
