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

import (
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/event"
)

// GossipData is a transaction received from a peer. Tx is nil if the message
// could not be decoded.
type GossipData struct {
	Tx     *types.Transaction
	PeerID string
}

// PeerToPeer is the transaction gossip transport.
type PeerToPeer interface {
	// SubscribeTransactions delivers transactions gossiped by peers.
	SubscribeTransactions(ch chan<- *GossipData) event.Subscription

	// BroadcastTransaction gossips a transaction to the network.
	BroadcastTransaction(tx *types.Transaction) error
}

// BlockImporter notifies about committed blocks.
type BlockImporter interface {
	SubscribeBlockEvents(ch chan<- *types.ImportResult) event.Subscription
}

// Database supplies the chain state the pool validates against.
type Database interface {
	// Utxo returns the unspent coin behind id, or nil.
	Utxo(id types.UtxoID) *types.Coin

	// ContainsTx reports whether the transaction is part of the chain.
	ContainsTx(id common.Hash) bool
}
