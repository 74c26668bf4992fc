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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/urfave/cli/v2"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	cfg.Node.DataDir = "/var/lib/txcore"
	cfg.Node.Produce = true
	cfg.Node.AuthorityKey = "authority.key"
	cfg.TxPool.MaxTx = 100
	cfg.Producer.Period = 2 * time.Second
	cfg.P2P.BootstrapNodes = []string{"/ip4/10.0.0.1/tcp/30333/p2p/12D3KooWDpJ7As7BWAwRMfu1VU2WCqNjvq387JEYKDBj4kx6nXTN"}
	cfg.Genesis.Time = 7
	cfg.Genesis.Authority = common.HexToAddress("0x1234")
	cfg.Genesis.Alloc = []types.Output{{Owner: common.HexToAddress("0xb0b"), Amount: 1000}}

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, &cfg))

	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0644))

	loaded := defaultConfig()
	require.NoError(t, loadConfig(file, &loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[TxPool]\nMaxSlots = 5\n"), 0644))

	cfg := defaultConfig()
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'MaxSlots' is not defined")
	assert.Contains(t, err.Error(), file)
}

// runFlags parses args with the node flags and returns the resulting config.
func runFlags(t *testing.T, args ...string) txpooldConfig {
	var cfg txpooldConfig
	app := cli.NewApp()
	app.Flags = nodeFlags
	app.Action = func(ctx *cli.Context) error {
		cfg = loadBaseConfig(ctx)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"txpoold"}, args...)))
	return cfg
}

func TestLoadBaseConfigFlags(t *testing.T) {
	cfg := runFlags(t,
		"--datadir", "/tmp/txcore/../node",
		"--txpool.maxtx", "10",
		"--txpool.mingasprice", "3",
		"--produce",
		"--produce.key", "auth.key",
		"--produce.period", "250ms",
		"--produce.gaslimit", "5000",
		"--p2p.listen", "/ip4/127.0.0.1/tcp/1, /ip4/127.0.0.1/tcp/2",
		"--p2p.topic", "/test/tx",
	)
	assert.Equal(t, "/tmp/node", cfg.Node.DataDir)
	assert.True(t, cfg.Node.Produce)
	assert.Equal(t, "auth.key", cfg.Node.AuthorityKey)
	assert.Equal(t, uint64(10), cfg.TxPool.MaxTx)
	assert.Equal(t, uint64(3), cfg.TxPool.MinGasPrice)
	assert.Equal(t, 250*time.Millisecond, cfg.Producer.Period)
	assert.Equal(t, uint64(5000), cfg.Producer.BlockGasLimit)
	assert.Equal(t, uint64(5000), cfg.TxPool.MaxBlockGas)
	assert.Equal(t, []string{"/ip4/127.0.0.1/tcp/1", "/ip4/127.0.0.1/tcp/2"}, cfg.P2P.ListenAddrs)
	assert.Equal(t, "/test/tx", cfg.P2P.Topic)
}

func TestLoadBaseConfigFileAndFlags(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[TxPool]\nMaxTx = 55\nMaxDepth = 4\n"), 0644))

	cfg := runFlags(t, "--config", file, "--txpool.maxtx", "66", "--p2p.nolisten")
	assert.Equal(t, uint64(66), cfg.TxPool.MaxTx)
	assert.Equal(t, uint64(4), cfg.TxPool.MaxDepth)
	assert.Empty(t, cfg.P2P.ListenAddrs)
}
