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

// Package consensus defines the interface of the block sealing rules.
package consensus

import (
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
)

// Engine checks the consensus fields of blocks.
type Engine interface {
	// Author retrieves the address of the account that sealed the block.
	Author(seal *types.Consensus, block *types.Block) (common.Address, error)

	// VerifyBlockFields checks whether seal is a valid seal of block and the
	// header fields covered by consensus are well formed.
	VerifyBlockFields(seal *types.Consensus, block *types.Block) error
}
