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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/sunyihoo/go-txcore/cmd/utils"
	"github.com/sunyihoo/go-txcore/consensus/poa"
	"github.com/sunyihoo/go-txcore/core/txpool"
	"github.com/sunyihoo/go-txcore/internal/flags"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/sunyihoo/go-txcore/p2p"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile (optional)>",
		Flags:       nodeFlags,
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}

	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.ChainCategory,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type txpooldConfig struct {
	Node     utils.NodeConfig
	TxPool   txpool.Config
	Producer poa.Config
	P2P      p2p.Config
	Genesis  poa.Genesis
}

func defaultConfig() txpooldConfig {
	return txpooldConfig{
		Node:     utils.DefaultNodeConfig,
		TxPool:   txpool.DefaultConfig,
		Producer: poa.DefaultConfig,
		P2P:      p2p.DefaultConfig,
	}
}

func loadConfig(file string, cfg *txpooldConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// loadBaseConfig loads the txpooldConfig based on the given command line
// parameters and config file.
func loadBaseConfig(ctx *cli.Context) txpooldConfig {
	// Load defaults.
	cfg := defaultConfig()

	// Load config file.
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}

	// Apply flags.
	utils.SetNodeConfig(ctx, &cfg.Node)
	utils.SetTxPoolConfig(ctx, &cfg.TxPool)
	utils.SetProducerConfig(ctx, &cfg.Producer)
	utils.SetP2PConfig(ctx, &cfg.P2P)

	// The pool only admits transactions that fit into a produced block.
	if cfg.TxPool.MaxBlockGas != cfg.Producer.BlockGasLimit {
		log.Debug("Aligning txpool block gas with producer", "txpool", cfg.TxPool.MaxBlockGas, "producer", cfg.Producer.BlockGasLimit)
		cfg.TxPool.MaxBlockGas = cfg.Producer.BlockGasLimit
	}
	return cfg
}

// writeConfig encodes cfg as TOML into w.
func writeConfig(w io.Writer, cfg *txpooldConfig) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)

	dump := os.Stdout
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	return writeConfig(dump, &cfg)
}
