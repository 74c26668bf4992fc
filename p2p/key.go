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

package p2p

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// GenerateNodeKey creates a new random libp2p identity.
func GenerateNodeKey() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	return priv, err
}

// LoadNodeKey loads a libp2p identity from file.
func LoadNodeKey(file string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.UnmarshalPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("invalid node key %s: %w", file, err)
	}
	return priv, nil
}

// SaveNodeKey writes a libp2p identity to file with restrictive permissions.
func SaveNodeKey(file string, priv crypto.PrivKey) error {
	data, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0600)
}

// LoadOrCreateNodeKey loads the identity in file, creating and storing a new
// one if the file does not exist.
func LoadOrCreateNodeKey(file string) (crypto.PrivKey, error) {
	priv, err := LoadNodeKey(file)
	if err == nil {
		return priv, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	if priv, err = GenerateNodeKey(); err != nil {
		return nil, err
	}
	if err := SaveNodeKey(file, priv); err != nil {
		return nil, err
	}
	return priv, nil
}
