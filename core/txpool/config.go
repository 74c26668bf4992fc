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
	"github.com/sunyihoo/go-txcore/log"
)

// Config are the configuration parameters of the transaction pool.
type Config struct {
	MaxTx       uint64 // Maximum number of transactions held by the pool
	MaxDepth    uint64 // Maximum length of a chain of dependent pending transactions
	MinGasPrice uint64 // Minimum gas price to enforce for acceptance into the pool
	MaxBlockGas uint64 // Gas limit of a block, no transaction may exceed it

	CommittedCacheSize int // Number of recently committed transaction ids remembered
	StatusBufferSize   int // Capacity of the status and update topics
}

// DefaultConfig contains the default configurations for the transaction pool.
var DefaultConfig = Config{
	MaxTx:       4096,
	MaxDepth:    32,
	MinGasPrice: 1,
	MaxBlockGas: 30_000_000,

	CommittedCacheSize: 16384,
	StatusBufferSize:   100,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *Config) sanitize() Config {
	conf := *config
	if conf.MaxTx < 1 {
		log.Warn("Sanitizing invalid txpool max transactions", "provided", conf.MaxTx, "updated", DefaultConfig.MaxTx)
		conf.MaxTx = DefaultConfig.MaxTx
	}
	if conf.MaxDepth < 1 {
		log.Warn("Sanitizing invalid txpool max depth", "provided", conf.MaxDepth, "updated", DefaultConfig.MaxDepth)
		conf.MaxDepth = DefaultConfig.MaxDepth
	}
	if conf.MaxBlockGas < 1 {
		log.Warn("Sanitizing invalid txpool block gas", "provided", conf.MaxBlockGas, "updated", DefaultConfig.MaxBlockGas)
		conf.MaxBlockGas = DefaultConfig.MaxBlockGas
	}
	if conf.CommittedCacheSize < 1 {
		log.Warn("Sanitizing invalid txpool committed cache", "provided", conf.CommittedCacheSize, "updated", DefaultConfig.CommittedCacheSize)
		conf.CommittedCacheSize = DefaultConfig.CommittedCacheSize
	}
	if conf.StatusBufferSize < 1 {
		log.Warn("Sanitizing invalid txpool status buffer", "provided", conf.StatusBufferSize, "updated", DefaultConfig.StatusBufferSize)
		conf.StatusBufferSize = DefaultConfig.StatusBufferSize
	}
	return conf
}
