// Copyright 2014 The go-ethereum Authors
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

package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/sunyihoo/go-txcore/common"
	"golang.org/x/crypto/sha3"
)

// SignatureLength indicates the byte length required to carry a signature with recovery id.
const SignatureLength = 64 + 1 // 64 bytes ECDSA signature + 1 byte recovery id

// RecoveryIDOffset points to the byte offset within the signature that contains the recovery id.
const RecoveryIDOffset = 64

// KeccakState wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

func newKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, 32)
	d := newKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(b)
	return b
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := newKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(h[:])
	return h
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// toKey creates a private key with the given 32 byte scalar.
func toKey(d []byte) (*secp256k1.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("invalid length, need 256 bits")
	}
	var key secp256k1.ModNScalar
	if overflow := key.SetByteSlice(d); overflow || key.IsZero() {
		return nil, errors.New("invalid private key, >=N or zero")
	}
	return secp256k1.NewPrivateKey(&key), nil
}

// FromKey exports a private key into a binary dump.
func FromKey(priv *secp256k1.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.Serialize()
}

// HexToKey parses a secp256k1 private key.
func HexToKey(hexkey string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(hexkey, "0x"))
	if byteErr, ok := err.(hex.InvalidByteError); ok {
		return nil, fmt.Errorf("invalid hex character %q in private key", byte(byteErr))
	} else if err != nil {
		return nil, errors.New("invalid hex data for private key")
	}
	return toKey(b)
}

// LoadKey loads a secp256k1 private key from the given file. The file holds the
// hex encoded key, surrounding whitespace is ignored.
func LoadKey(file string) (*secp256k1.PrivateKey, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return HexToKey(strings.TrimSpace(string(data)))
}

// SaveKey saves a secp256k1 private key to the given file with
// restrictive permissions. The key data is saved hex-encoded.
func SaveKey(file string, key *secp256k1.PrivateKey) error {
	k := hex.EncodeToString(FromKey(key))
	return os.WriteFile(file, []byte(k), 0600)
}

// PubkeyToAddress derives the address of a public key: the last 20 bytes of the
// Keccak256 hash of its uncompressed form, without the 0x04 prefix.
func PubkeyToAddress(p *secp256k1.PublicKey) common.Address {
	pubBytes := p.SerializeUncompressed()
	return common.BytesToAddress(Keccak256(pubBytes[1:])[12:])
}
