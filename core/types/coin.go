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

// UtxoID points at one output of a transaction.
type UtxoID struct {
	TxID        common.Hash
	OutputIndex uint16
}

func (id UtxoID) String() string {
	return fmt.Sprintf("%x:%d", id.TxID[:], id.OutputIndex)
}

// TerminalString implements log.TerminalStringer.
func (id UtxoID) TerminalString() string {
	return fmt.Sprintf("%s:%d", id.TxID.TerminalString(), id.OutputIndex)
}

// Coin is an unspent output as recorded in the chain database.
type Coin struct {
	Owner        common.Address
	Amount       uint64
	BlockCreated uint64
}
