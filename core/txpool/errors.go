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

package txpool

import "errors"

// Admission errors. A rejected transaction is not retried by the pool.
var (
	// ErrAlreadyKnown is returned if the transactions is already contained
	// within the pool.
	ErrAlreadyKnown = errors.New("already known")

	// ErrAlreadyCommitted is returned if the transaction was already included
	// in a block, or selected for one.
	ErrAlreadyCommitted = errors.New("already committed")

	// ErrUnderpriced is returned if a transaction's gas price is below the minimum
	// configured for the transaction pool.
	ErrUnderpriced = errors.New("transaction underpriced")

	// ErrGasLimit is returned if a transaction's requested gas limit exceeds the
	// maximum allowance of a block.
	ErrGasLimit = errors.New("exceeds block gas limit")

	// ErrNoInputs is returned if a transaction spends no coin.
	ErrNoInputs = errors.New("transaction has no inputs")

	// ErrUnknownInput is returned if an input is neither an unspent coin nor an
	// output of a pending transaction.
	ErrUnknownInput = errors.New("unknown input")

	// ErrInputMismatch is returned if an input disagrees with the owner or
	// amount of the coin it spends.
	ErrInputMismatch = errors.New("input does not match coin")

	// ErrDuplicateInput is returned if a transaction spends the same coin twice.
	ErrDuplicateInput = errors.New("duplicate input")

	// ErrCollision is returned if a pending transaction spends one of the same
	// coins at an equal or better gas price.
	ErrCollision = errors.New("collides with better priced pending transaction")

	// ErrMaxDepth is returned if a transaction would extend a chain of pending
	// dependent transactions beyond the configured depth.
	ErrMaxDepth = errors.New("dependency depth exceeded")

	// ErrTxPoolFull is returned if the pool is full and the transaction does
	// not pay more than the cheapest pending one.
	ErrTxPoolFull = errors.New("txpool is full")
)

// Squeeze-out reasons, reported for transactions evicted from the pool other
// than by block inclusion.
var (
	// ErrReplaced is reported for a transaction displaced by a better priced
	// transaction spending the same coin.
	ErrReplaced = errors.New("replaced by better priced transaction")

	// ErrDependencyEvicted is reported for a transaction whose in-pool parent
	// was evicted.
	ErrDependencyEvicted = errors.New("dependency evicted")

	// ErrEvictedByPrice is reported for the cheapest transaction when a better
	// paying one arrives at a full pool.
	ErrEvictedByPrice = errors.New("evicted by better priced transaction")

	// ErrRemoved is reported for a transaction removed on request.
	ErrRemoved = errors.New("removed")

	// ErrInputSpent is reported for a transaction spending a coin that a
	// committed block consumed.
	ErrInputSpent = errors.New("input spent by committed block")

	// ErrBlockAborted is reported for a transaction selected for a block that
	// failed to be produced or committed.
	ErrBlockAborted = errors.New("block production aborted")
)
