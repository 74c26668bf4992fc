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

// Package utils contains internal helper functions for go-txcore commands.
package utils

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sunyihoo/go-txcore/consensus/poa"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/core/txpool"
	"github.com/sunyihoo/go-txcore/internal/flags"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/sunyihoo/go-txcore/p2p"
	"github.com/urfave/cli/v2"
)

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
//
// The flags are defined here so their names and help texts
// are the same for all commands.

var (
	// General settings
	DataDirFlag = &flags.DirectoryFlag{
		Name:     "datadir",
		Usage:    "Data directory for the databases and keys",
		Value:    flags.DirectoryString(DefaultDataDir()),
		Category: flags.ChainCategory,
	}
	DBEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backing database implementation to use ('pebble', 'leveldb' or 'memory')",
		Value:    "",
		Category: flags.DatabaseCategory,
	}
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to internal caching",
		Value:    DefaultNodeConfig.DatabaseCache,
		Category: flags.DatabaseCategory,
	}
	DBHandlesFlag = &cli.IntFlag{
		Name:     "db.handles",
		Usage:    "Number of file descriptors the database may keep open",
		Value:    DefaultNodeConfig.DatabaseHandles,
		Category: flags.DatabaseCategory,
	}

	// Transaction pool settings
	TxPoolMaxTxFlag = &cli.Uint64Flag{
		Name:     "txpool.maxtx",
		Usage:    "Maximum number of transactions held by the pool",
		Value:    txpool.DefaultConfig.MaxTx,
		Category: flags.TxPoolCategory,
	}
	TxPoolMaxDepthFlag = &cli.Uint64Flag{
		Name:     "txpool.maxdepth",
		Usage:    "Maximum length of a chain of dependent pending transactions",
		Value:    txpool.DefaultConfig.MaxDepth,
		Category: flags.TxPoolCategory,
	}
	TxPoolMinGasPriceFlag = &cli.Uint64Flag{
		Name:     "txpool.mingasprice",
		Usage:    "Minimum gas price for acceptance into the pool",
		Value:    txpool.DefaultConfig.MinGasPrice,
		Category: flags.TxPoolCategory,
	}
	TxPoolCommittedCacheFlag = &cli.IntFlag{
		Name:     "txpool.committedcache",
		Usage:    "Number of recently committed transaction ids remembered",
		Value:    txpool.DefaultConfig.CommittedCacheSize,
		Category: flags.TxPoolCategory,
	}
	TxPoolStatusBufferFlag = &cli.IntFlag{
		Name:     "txpool.statusbuffer",
		Usage:    "Capacity of the transaction status and update topics",
		Value:    txpool.DefaultConfig.StatusBufferSize,
		Category: flags.TxPoolCategory,
	}

	// Block producer settings
	ProduceFlag = &cli.BoolFlag{
		Name:     "produce",
		Usage:    "Enable block production with the authority key",
		Category: flags.ProducerCategory,
	}
	ProducerKeyFlag = &cli.StringFlag{
		Name:     "produce.key",
		Usage:    "File holding the hex encoded secp256k1 authority key",
		Category: flags.ProducerCategory,
	}
	ProducerPeriodFlag = &cli.DurationFlag{
		Name:     "produce.period",
		Usage:    "Time between produced blocks",
		Value:    poa.DefaultConfig.Period,
		Category: flags.ProducerCategory,
	}
	ProducerGasLimitFlag = &cli.Uint64Flag{
		Name:     "produce.gaslimit",
		Usage:    "Gas limit of produced blocks",
		Value:    poa.DefaultConfig.BlockGasLimit,
		Category: flags.ProducerCategory,
	}

	// Network settings
	ListenAddrsFlag = &cli.StringFlag{
		Name:     "p2p.listen",
		Usage:    "Comma separated multiaddrs to listen on",
		Value:    strings.Join(p2p.DefaultConfig.ListenAddrs, ","),
		Category: flags.NetworkingCategory,
	}
	NoListenFlag = &cli.BoolFlag{
		Name:     "p2p.nolisten",
		Usage:    "Do not accept inbound connections",
		Category: flags.NetworkingCategory,
	}
	BootnodesFlag = &cli.StringFlag{
		Name:     "bootnodes",
		Usage:    "Comma separated /p2p/ multiaddrs of the nodes dialed on startup",
		Value:    "",
		Category: flags.NetworkingCategory,
	}
	NodeKeyFileFlag = &cli.StringFlag{
		Name:     "nodekey",
		Usage:    "P2P node key file (created in the datadir if unset)",
		Category: flags.NetworkingCategory,
	}
	TopicFlag = &cli.StringFlag{
		Name:     "p2p.topic",
		Usage:    "Gossipsub topic transactions are published on",
		Value:    p2p.DefaultTopic,
		Category: flags.NetworkingCategory,
	}

	// Metrics settings
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and reporting",
		Category: flags.MetricsCategory,
	}
	MetricsHTTPFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Enable stand-alone metrics HTTP server listening interface.",
		Value:    DefaultNodeConfig.MetricsAddr,
		Category: flags.MetricsCategory,
	}
)

var (
	DatabaseFlags = []cli.Flag{
		DataDirFlag,
		DBEngineFlag,
		CacheFlag,
		DBHandlesFlag,
	}
	TxPoolFlags = []cli.Flag{
		TxPoolMaxTxFlag,
		TxPoolMaxDepthFlag,
		TxPoolMinGasPriceFlag,
		TxPoolCommittedCacheFlag,
		TxPoolStatusBufferFlag,
	}
	ProducerFlags = []cli.Flag{
		ProduceFlag,
		ProducerKeyFlag,
		ProducerPeriodFlag,
		ProducerGasLimitFlag,
	}
	NetworkFlags = []cli.Flag{
		ListenAddrsFlag,
		NoListenFlag,
		BootnodesFlag,
		NodeKeyFileFlag,
		TopicFlag,
	}
	MetricsFlags = []cli.Flag{
		MetricsEnabledFlag,
		MetricsHTTPFlag,
	}
)

// DefaultDataDir is the default data directory to use for the databases and other
// persistence requirements.
func DefaultDataDir() string {
	home := flags.HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "TxCore")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "TxCore")
	default:
		return filepath.Join(home, ".txcore")
	}
}

// splitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func splitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

// SetNodeConfig applies node-related command line flags to the config.
func SetNodeConfig(ctx *cli.Context, cfg *NodeConfig) {
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(DBEngineFlag.Name) {
		dbEngine := ctx.String(DBEngineFlag.Name)
		if dbEngine != rawdb.DBLeveldb && dbEngine != rawdb.DBPebble && dbEngine != rawdb.DBMemory {
			Fatalf("Invalid choice for db.engine '%s', allowed 'leveldb', 'pebble' or 'memory'", dbEngine)
		}
		log.Info(fmt.Sprintf("Using %s as db engine", dbEngine))
		cfg.DBEngine = dbEngine
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.DatabaseCache = ctx.Int(CacheFlag.Name)
	}
	if ctx.IsSet(DBHandlesFlag.Name) {
		cfg.DatabaseHandles = ctx.Int(DBHandlesFlag.Name)
	}
	if ctx.IsSet(ProducerKeyFlag.Name) {
		cfg.AuthorityKey = ctx.String(ProducerKeyFlag.Name)
	}
	if ctx.IsSet(ProduceFlag.Name) {
		cfg.Produce = ctx.Bool(ProduceFlag.Name)
	}
	if ctx.IsSet(NodeKeyFileFlag.Name) {
		cfg.NodeKey = ctx.String(NodeKeyFileFlag.Name)
	}
	if ctx.IsSet(MetricsEnabledFlag.Name) {
		cfg.Metrics = ctx.Bool(MetricsEnabledFlag.Name)
	}
	if ctx.IsSet(MetricsHTTPFlag.Name) {
		cfg.MetricsAddr = ctx.String(MetricsHTTPFlag.Name)
	}
}

// SetTxPoolConfig applies the transaction pool flags to the config.
func SetTxPoolConfig(ctx *cli.Context, cfg *txpool.Config) {
	if ctx.IsSet(TxPoolMaxTxFlag.Name) {
		cfg.MaxTx = ctx.Uint64(TxPoolMaxTxFlag.Name)
	}
	if ctx.IsSet(TxPoolMaxDepthFlag.Name) {
		cfg.MaxDepth = ctx.Uint64(TxPoolMaxDepthFlag.Name)
	}
	if ctx.IsSet(TxPoolMinGasPriceFlag.Name) {
		cfg.MinGasPrice = ctx.Uint64(TxPoolMinGasPriceFlag.Name)
	}
	if ctx.IsSet(TxPoolCommittedCacheFlag.Name) {
		cfg.CommittedCacheSize = ctx.Int(TxPoolCommittedCacheFlag.Name)
	}
	if ctx.IsSet(TxPoolStatusBufferFlag.Name) {
		cfg.StatusBufferSize = ctx.Int(TxPoolStatusBufferFlag.Name)
	}
}

// SetProducerConfig applies the block producer flags to the config.
func SetProducerConfig(ctx *cli.Context, cfg *poa.Config) {
	if ctx.IsSet(ProducerPeriodFlag.Name) {
		cfg.Period = ctx.Duration(ProducerPeriodFlag.Name)
	}
	if ctx.IsSet(ProducerGasLimitFlag.Name) {
		cfg.BlockGasLimit = ctx.Uint64(ProducerGasLimitFlag.Name)
	}
}

// SetP2PConfig applies the networking flags to the config.
func SetP2PConfig(ctx *cli.Context, cfg *p2p.Config) {
	if ctx.IsSet(ListenAddrsFlag.Name) {
		cfg.ListenAddrs = splitAndTrim(ctx.String(ListenAddrsFlag.Name))
	}
	if ctx.Bool(NoListenFlag.Name) {
		cfg.ListenAddrs = nil
	}
	if ctx.IsSet(BootnodesFlag.Name) {
		cfg.BootstrapNodes = splitAndTrim(ctx.String(BootnodesFlag.Name))
	}
	if ctx.IsSet(TopicFlag.Name) {
		cfg.Topic = ctx.String(TopicFlag.Name)
	}
}
