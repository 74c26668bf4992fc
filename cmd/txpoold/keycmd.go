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
	"errors"
	"fmt"
	"os"

	"github.com/sunyihoo/go-txcore/crypto"
	"github.com/urfave/cli/v2"
)

var keyCommand = &cli.Command{
	Name:  "key",
	Usage: "Manage the block authority key",
	Subcommands: []*cli.Command{
		{
			Action:    generateKey,
			Name:      "generate",
			ArgsUsage: "<keyfile>",
			Usage:     "Generate a new authority key and print its address",
		},
		{
			Action:    inspectKey,
			Name:      "inspect",
			ArgsUsage: "<keyfile>",
			Usage:     "Print the address of an authority key",
		},
	},
}

func generateKey(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the key file as argument")
	}
	file := ctx.Args().First()
	if _, err := os.Stat(file); err == nil {
		return fmt.Errorf("key file %s already exists", file)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveKey(file, key); err != nil {
		return err
	}
	fmt.Println("Address:", crypto.PubkeyToAddress(key.PubKey()))
	return nil
}

func inspectKey(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the key file as argument")
	}
	key, err := crypto.LoadKey(ctx.Args().First())
	if err != nil {
		return err
	}
	fmt.Println("Address:", crypto.PubkeyToAddress(key.PubKey()))
	return nil
}
