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

package executor

import "errors"

// List of transaction execution errors. In block production a failing
// transaction is left out of the block; in block import it rejects the block.
var (
	// ErrGasLimitReached is returned by the gas pool if the amount of gas required
	// by a transaction is higher than what's left in the block.
	ErrGasLimitReached = errors.New("gas limit reached")

	// ErrAlreadyCommitted is returned if the transaction is already part of
	// the chain.
	ErrAlreadyCommitted = errors.New("transaction already committed")

	// ErrNoInputs is returned if the transaction spends no coin.
	ErrNoInputs = errors.New("transaction has no inputs")

	// ErrMissingInput is returned if an input refers to a coin that does not
	// exist or was spent.
	ErrMissingInput = errors.New("input coin not found")

	// ErrInputMismatch is returned if an input disagrees with the owner or
	// amount of the coin it spends.
	ErrInputMismatch = errors.New("input does not match coin")

	// ErrDuplicateInput is returned if a transaction spends the same coin twice.
	ErrDuplicateInput = errors.New("duplicate input")

	// ErrInsufficientFunds is returned if the outputs of a transaction are
	// worth more than its inputs.
	ErrInsufficientFunds = errors.New("insufficient funds for outputs")
)
