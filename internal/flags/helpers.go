// Copyright 2020 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package flags

import (
	"os"
	"sort"
	"strings"

	"github.com/sunyihoo/go-txcore/internal/version"
	"github.com/urfave/cli/v2"
)

// NewApp creates an app with sane defaults.
func NewApp(usage string) *cli.App {
	git, _ := version.VCS()
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = version.WithCommit(git.Commit, git.Date)
	app.Usage = usage
	app.Copyright = "Copyright 2024 The go-txcore Authors"
	app.Before = func(ctx *cli.Context) error {
		MigrateGlobalFlags(ctx)
		return nil
	}
	return app
}

// Merge merges the given flag slices.
func Merge(groups ...[]cli.Flag) []cli.Flag {
	var ret []cli.Flag
	for _, group := range groups {
		ret = append(ret, group...)
	}
	return ret
}

// MigrateGlobalFlags makes global flags visible to subcommands, so that
// "txpoold --datadir /tmp/x db inspect" works like "txpoold db inspect
// --datadir /tmp/x". It should be called as early as possible in app.Before.
func MigrateGlobalFlags(ctx *cli.Context) {
	var wrap func(cs []*cli.Command)
	wrap = func(cs []*cli.Command) {
		for _, cmd := range cs {
			wrap(cmd.Subcommands)
			if cmd.Action == nil {
				continue
			}
			action := cmd.Action
			cmd.Action = func(ctx *cli.Context) error {
				migrateFlags(ctx)
				return action(ctx)
			}
		}
	}
	wrap(ctx.App.Commands)
}

// migrateFlags copies every flag set on an ancestor context into ctx.
func migrateFlags(ctx *cli.Context) {
	// Aliases would be served next to their canonical name and set slice
	// flags twice.
	aliases := make(map[string]bool)
	for _, fl := range ctx.Command.Flags {
		for _, alias := range fl.Names()[1:] {
			aliases[alias] = true
		}
	}
	for _, name := range ctx.FlagNames() {
		if aliases[name] {
			continue
		}
		for _, parent := range ctx.Lineage()[1:] {
			if !parent.IsSet(name) {
				continue
			}
			// Slices are re-joined, their String form would not parse back.
			if result := parent.StringSlice(name); len(result) > 0 {
				ctx.Set(name, strings.Join(result, ","))
			} else {
				ctx.Set(name, parent.String(name))
			}
			break
		}
	}
}

// envName returns the environment variable bound to the flag name.
func envName(prefix, name string) string {
	return strings.ToUpper(prefix + "_" + strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

// AutoEnvVars binds every flag to the environment variable PREFIX_NAME, with
// the dots and dashes of the flag name turned into underscores.
func AutoEnvVars(flags []cli.Flag, prefix string) {
	for _, flag := range flags {
		env := envName(prefix, flag.Names()[0])
		switch flag := flag.(type) {
		case *cli.StringFlag:
			flag.EnvVars = append(flag.EnvVars, env)
		case *cli.BoolFlag:
			flag.EnvVars = append(flag.EnvVars, env)
		case *cli.IntFlag:
			flag.EnvVars = append(flag.EnvVars, env)
		case *cli.Uint64Flag:
			flag.EnvVars = append(flag.EnvVars, env)
		case *cli.DurationFlag:
			flag.EnvVars = append(flag.EnvVars, env)
		case *DirectoryFlag:
			flag.EnvVars = append(flag.EnvVars, env)
		}
	}
}

// CheckEnvVars returns the environment variables carrying prefix that no flag
// consumes, which are likely typos.
func CheckEnvVars(flags []cli.Flag, prefix string) []string {
	known := make(map[string]bool)
	for _, flag := range flags {
		for _, name := range flag.Names() {
			known[envName(prefix, name)] = true
		}
	}
	var unknown []string
	for _, keyval := range os.Environ() {
		key, _, _ := strings.Cut(keyval, "=")
		if strings.HasPrefix(key, prefix+"_") && !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
