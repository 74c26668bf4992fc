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

package poa

import (
	"time"

	"github.com/sunyihoo/go-txcore/log"
)

// Config are the configuration parameters of the block producer.
type Config struct {
	Period        time.Duration // Time between produced blocks
	BlockGasLimit uint64        // Gas limit of produced blocks
}

// DefaultConfig contains the default configurations for the block producer.
var DefaultConfig = Config{
	Period:        time.Second,
	BlockGasLimit: 30_000_000,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *Config) sanitize() Config {
	conf := *config
	if conf.Period <= 0 {
		log.Warn("Sanitizing invalid block period", "provided", conf.Period, "updated", DefaultConfig.Period)
		conf.Period = DefaultConfig.Period
	}
	if conf.BlockGasLimit == 0 {
		log.Warn("Sanitizing invalid block gas limit", "provided", conf.BlockGasLimit, "updated", DefaultConfig.BlockGasLimit)
		conf.BlockGasLimit = DefaultConfig.BlockGasLimit
	}
	return conf
}
