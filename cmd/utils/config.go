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

package utils

import (
	"path/filepath"
)

const (
	datadirChainData   = "chaindata"
	datadirNodeKey     = "nodekey"
	datadirLockFile    = "LOCK"
	defaultMetricsAddr = "127.0.0.1:6061"
)

// NodeConfig holds the settings of the node process itself, as opposed to
// the services running inside it.
type NodeConfig struct {
	// DataDir is the directory holding the chain database and the node key.
	// An empty value runs the node on an in-memory database.
	DataDir string

	DBEngine        string `toml:",omitempty"` // Database engine, the pre-existing one or pebble if empty
	DatabaseCache   int    // Megabytes of memory allocated to caching
	DatabaseHandles int    `toml:"-"`

	// AuthorityKey is the file with the secp256k1 key blocks are signed with.
	AuthorityKey string `toml:",omitempty"`

	// Produce enables the block producer. It requires AuthorityKey.
	Produce bool

	// NodeKey is the libp2p identity file. It defaults to a key inside DataDir.
	NodeKey string `toml:",omitempty"`

	Metrics     bool   // Serve the prometheus endpoint
	MetricsAddr string `toml:",omitempty"`
}

// DefaultNodeConfig contains reasonable default settings.
var DefaultNodeConfig = NodeConfig{
	DataDir:         DefaultDataDir(),
	DatabaseCache:   256,
	DatabaseHandles: 512,
	MetricsAddr:     defaultMetricsAddr,
}

// ResolvePath resolves path in the data directory. Absolute paths are
// returned unchanged.
func (c *NodeConfig) ResolvePath(path string) string {
	if filepath.IsAbs(path) || c.DataDir == "" {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// ChainDataDir is the directory of the chain database, or empty for an
// in-memory database.
func (c *NodeConfig) ChainDataDir() string {
	if c.DataDir == "" {
		return ""
	}
	return c.ResolvePath(datadirChainData)
}

// LockFile is the path of the file guarding the data directory.
func (c *NodeConfig) LockFile() string {
	return c.ResolvePath(datadirLockFile)
}

// NodeKeyFile returns the libp2p key file, or empty if the node runs without
// a data directory and no key file was configured.
func (c *NodeConfig) NodeKeyFile() string {
	if c.NodeKey != "" {
		return c.NodeKey
	}
	if c.DataDir == "" {
		return ""
	}
	return c.ResolvePath(datadirNodeKey)
}
