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

// txpoold runs a transaction pool node with a proof-of-authority block producer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sunyihoo/go-txcore/cmd/utils"
	"github.com/sunyihoo/go-txcore/internal/debug"
	"github.com/sunyihoo/go-txcore/internal/flags"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/urfave/cli/v2"
)

const (
	clientIdentifier = "txpoold" // Client identifier used in logs and the version string
	envPrefix        = "TXPOOLD" // Prefix of the environment variables bound to flags
)

var (
	nodeFlags = flags.Merge([]cli.Flag{
		configFileFlag,
	}, utils.DatabaseFlags, utils.TxPoolFlags, utils.ProducerFlags, utils.NetworkFlags, utils.MetricsFlags)
)

var app = flags.NewApp("the go-txcore transaction pool node")

func init() {
	app.Action = txpoold
	app.Commands = []*cli.Command{
		// See config.go
		dumpConfigCommand,
		// See dbcmd.go
		dbCommand,
		// See keycmd.go
		keyCommand,
	}
	app.Flags = flags.Merge(nodeFlags, debug.Flags)
	flags.AutoEnvVars(app.Flags, envPrefix)

	app.Before = func(ctx *cli.Context) error {
		flags.MigrateGlobalFlags(ctx)
		if err := debug.Setup(ctx); err != nil {
			return err
		}
		for _, key := range flags.CheckEnvVars(app.Flags, envPrefix) {
			log.Warn("Unknown environment variable, is it a typo?", "key", key)
		}
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// txpoold is the main entry point into the system if no special subcommand is run.
// It creates a node based on the command line arguments and runs it in
// blocking mode, waiting for it to be shut down.
func txpoold(ctx *cli.Context) error {
	if args := ctx.Args().Slice(); len(args) > 0 {
		return fmt.Errorf("invalid command: %s", args[0])
	}
	cfg := loadBaseConfig(ctx)
	stack, err := makeNode(cfg, nil)
	if err != nil {
		return err
	}
	sigctx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := stack.Start(sigctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(err, stack.Shutdown(closeCtx))
	}
	<-sigctx.Done()
	log.Info("Got interrupt, shutting down...")

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	go func() {
		// A second interrupt skips the graceful shutdown.
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		select {
		case <-sigc:
			log.Warn("Already shutting down, interrupt more to panic.")
			cancel()
		case <-closeCtx.Done():
		}
	}()
	return stack.Shutdown(closeCtx)
}
