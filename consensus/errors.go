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

package consensus

import "errors"

var (
	// ErrMissingSeal is returned if a block is verified without its seal.
	ErrMissingSeal = errors.New("missing seal")

	// ErrInvalidTxRoot is returned if the transaction root in the header does
	// not match the block body.
	ErrInvalidTxRoot = errors.New("invalid transaction root")

	// ErrInvalidKind is returned if the seal kind does not fit the block height.
	ErrInvalidKind = errors.New("invalid consensus kind")

	// ErrUnexpectedSignature is returned if the genesis block carries a signature.
	ErrUnexpectedSignature = errors.New("signature on genesis block")

	// ErrMissingSignature is returned if a block's seal has no signature.
	ErrMissingSignature = errors.New("missing signature")

	// ErrUnauthorizedProducer is returned if the header names a producer other
	// than the authority.
	ErrUnauthorizedProducer = errors.New("unauthorized producer")

	// ErrUnauthorizedSigner is returned if a block is signed by a non-authorized
	// entity.
	ErrUnauthorizedSigner = errors.New("unauthorized signer")
)
