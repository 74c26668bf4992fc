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
	"fmt"

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/event"
)

// StatusKind is the kind of pool activity a TxStatus signals.
type StatusKind uint8

const (
	// Submitted signals a transaction was accepted into the pool.
	Submitted StatusKind = iota
	// Completed signals a transaction was included in a committed block.
	Completed
	// SqueezedOut signals a transaction was evicted from the pool.
	SqueezedOut
)

func (k StatusKind) String() string {
	switch k {
	case Submitted:
		return "submitted"
	case Completed:
		return "completed"
	case SqueezedOut:
		return "squeezed out"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// TxStatus is the coarse pool activity signal. It carries no transaction id.
type TxStatus struct {
	Kind   StatusKind
	Reason error // set for SqueezedOut
}

func (s TxStatus) String() string {
	if s.Kind == SqueezedOut {
		return fmt.Sprintf("%v: %v", s.Kind, s.Reason)
	}
	return s.Kind.String()
}

// TxUpdate reports activity of one transaction. A nil SqueezedOut means the
// transaction was submitted or completed, otherwise it holds the eviction
// reason.
type TxUpdate struct {
	TxID        common.Hash
	SqueezedOut error
}

// TxStatusChange fans pool activity out to two lossy topics: Status for
// wake-up signals and Update for tracking individual transactions. Sending
// never blocks; receivers that fall behind lose the oldest messages.
type TxStatusChange struct {
	Status *event.Broadcast[TxStatus]
	Update *event.Broadcast[TxUpdate]
}

// NewTxStatusChange creates both topics with the given capacity.
func NewTxStatusChange(capacity int) *TxStatusChange {
	return &TxStatusChange{
		Status: event.NewBroadcast[TxStatus](capacity),
		Update: event.NewBroadcast[TxUpdate](capacity),
	}
}

// SendSubmitted reports a transaction accepted into the pool.
func (c *TxStatusChange) SendSubmitted(id common.Hash) {
	c.Status.Send(TxStatus{Kind: Submitted})
	c.Update.Send(TxUpdate{TxID: id})
}

// SendComplete reports a transaction included in a committed block.
func (c *TxStatusChange) SendComplete(id common.Hash) {
	c.Status.Send(TxStatus{Kind: Completed})
	c.Update.Send(TxUpdate{TxID: id})
}

// SendSqueezedOut reports a transaction evicted from the pool.
func (c *TxStatusChange) SendSqueezedOut(id common.Hash, reason error) {
	c.Status.Send(TxStatus{Kind: SqueezedOut, Reason: reason})
	c.Update.Send(TxUpdate{TxID: id, SqueezedOut: reason})
}

// Close closes both topics. Receivers drain what is buffered and then stop.
func (c *TxStatusChange) Close() {
	c.Status.Close()
	c.Update.Close()
}
