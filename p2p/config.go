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

package p2p

import (
	"github.com/libp2p/go-libp2p/core/crypto"
)

const (
	// DefaultTopic is the gossipsub topic transactions are published on.
	DefaultTopic = "/txcore/tx/1"

	// DefaultMaxMessageSize is the largest transaction message accepted.
	DefaultMaxMessageSize = 128 * 1024
)

// Config holds Server options.
type Config struct {
	// PrivateKey is the libp2p identity of the node. A random key is
	// generated if nil.
	PrivateKey crypto.PrivKey `toml:"-"`

	// ListenAddrs are the multiaddrs the host listens on. If empty, the
	// server does not accept inbound connections.
	ListenAddrs []string

	// BootstrapNodes are full /p2p/ multiaddrs dialed on startup.
	BootstrapNodes []string

	// Topic is the gossipsub topic name.
	Topic string `toml:",omitempty"`

	// MaxMessageSize bounds the size of a gossiped transaction.
	MaxMessageSize int `toml:",omitempty"`

	// PeerRate is the number of transactions per second accepted from a
	// single peer, zero disables the limit. PeerBurst is the allowed burst.
	PeerRate  int `toml:",omitempty"`
	PeerBurst int `toml:",omitempty"`
}

// DefaultConfig contains the default p2p settings.
var DefaultConfig = Config{
	ListenAddrs:    []string{"/ip4/0.0.0.0/tcp/30333"},
	Topic:          DefaultTopic,
	MaxMessageSize: DefaultMaxMessageSize,
	PeerRate:       100,
	PeerBurst:      200,
}
