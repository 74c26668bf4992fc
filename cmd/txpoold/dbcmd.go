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
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sunyihoo/go-txcore/cmd/utils"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/chaindb"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/internal/flags"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/urfave/cli/v2"
)

var (
	dbCommand = &cli.Command{
		Name:      "db",
		Usage:     "Low level database operations",
		ArgsUsage: "",
		Subcommands: []*cli.Command{
			dbInspectCmd,
			dbStatCmd,
			dbBlockCmd,
		},
	}
	dbInspectCmd = &cli.Command{
		Action:    inspect,
		Name:      "inspect",
		ArgsUsage: "<prefix> <start>",
		Flags:     flags.Merge([]cli.Flag{configFileFlag}, utils.DatabaseFlags),
		Usage:     "Inspect the storage size for each type of data in the database",
		Description: `This commands iterates the entire database. If the optional 'prefix' and 'start' arguments are provided, then the iteration is limited to the given subset of data.`,
	}
	dbStatCmd = &cli.Command{
		Action: dbStats,
		Name:   "stats",
		Usage:  "Print leveldb or pebble statistics",
		Flags:  flags.Merge([]cli.Flag{configFileFlag}, utils.DatabaseFlags),
	}
	dbBlockCmd = &cli.Command{
		Action:    dbBlock,
		Name:      "block",
		ArgsUsage: "<height>",
		Usage:     "Print a committed block and its seal, the latest one by default",
		Flags:     flags.Merge([]cli.Flag{configFileFlag}, utils.DatabaseFlags),
	}
)

// openChain opens the configured chain database read-only.
func openChain(ctx *cli.Context) *chaindb.Database {
	cfg := loadBaseConfig(ctx)
	if cfg.Node.DataDir == "" {
		utils.Fatalf("No data directory configured")
	}
	half := cfg.Node.DatabaseCache / 2
	kv, err := rawdb.Open(rawdb.OpenOptions{
		Type:      cfg.Node.DBEngine,
		Directory: cfg.Node.ChainDataDir(),
		Cache:     half,
		Handles:   cfg.Node.DatabaseHandles,
		ReadOnly:  true,
	})
	if err != nil {
		utils.Fatalf("Could not open database: %v", err)
	}
	return chaindb.New(kv, half*1024*1024)
}

func inspect(ctx *cli.Context) error {
	var (
		prefix []byte
		start  []byte
	)
	if ctx.NArg() > 2 {
		return fmt.Errorf("max 2 arguments: %v", ctx.Command.ArgsUsage)
	}
	if ctx.NArg() >= 1 {
		d, err := decodeHex(ctx.Args().Get(0))
		if err != nil {
			return fmt.Errorf("failed to hex-decode 'prefix': %v", err)
		}
		prefix = d
	}
	if ctx.NArg() >= 2 {
		d, err := decodeHex(ctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("failed to hex-decode 'start': %v", err)
		}
		start = d
	}
	db := openChain(ctx)
	defer db.Close()

	stats, err := rawdb.InspectDatabase(db.DiskDB(), prefix, start)
	if err != nil {
		return err
	}
	var (
		total uint64
		rows  [][]string
	)
	for _, s := range stats {
		rows = append(rows, []string{s.Name, common.StorageSize(s.Size).String(), strconv.FormatUint(s.Count, 10)})
		total += s.Size
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Size", "Items"})
	table.SetFooter([]string{"Total", common.StorageSize(total).String(), " "})
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func showDBStats(db ethdb.KeyValueStater) {
	stats, err := db.Stat()
	if err != nil {
		log.Warn("Failed to read database stats", "error", err)
		return
	}
	fmt.Println(stats)
}

func dbStats(ctx *cli.Context) error {
	db := openChain(ctx)
	defer db.Close()

	showDBStats(db.DiskDB())
	return nil
}

func dbBlock(ctx *cli.Context) error {
	db := openChain(ctx)
	defer db.Close()

	var height uint64
	if ctx.NArg() > 0 {
		h, err := strconv.ParseUint(ctx.Args().Get(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid height: %v", err)
		}
		height = h
	} else {
		h, err := db.LatestBlockHeight()
		if err != nil {
			return err
		}
		height = h
	}
	sealed := db.ReadSealedBlock(height)
	if sealed == nil {
		return fmt.Errorf("block %d not found", height)
	}
	header := sealed.Block.Header()
	fmt.Printf("Height:   %d\n", header.Height)
	fmt.Printf("ID:       %s\n", sealed.Block.ID())
	fmt.Printf("PrevRoot: %s\n", header.PrevRoot)
	fmt.Printf("TxRoot:   %s\n", header.TxRoot)
	fmt.Printf("Producer: %s\n", header.Producer)
	fmt.Printf("Time:     %d\n", header.Time)
	fmt.Printf("Seal:     %s\n", sealed.Consensus.Kind)
	for i, tx := range sealed.Block.Transactions() {
		fmt.Printf("  tx %d: %s gas=%d price=%s\n", i, tx.ID(), tx.Gas(), tx.GasPrice())
	}
	if root := db.ReadBlockRoot(height); root != nil {
		fmt.Printf("Root:     %s\n", *root)
	}
	return nil
}
