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

// Package storage implements single-use staged write transactions on top of a
// key-value store.
package storage

import (
	"errors"

	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/ethdb"
)

// ErrTransactionClosed is returned by any operation on a transaction that was
// already committed or rolled back.
var ErrTransactionClosed = errors.New("storage transaction closed")

// Transaction stages writes against a key-value store. Reads observe the staged
// writes first and fall through to the store. Nothing reaches the store until
// Commit, which applies every staged write with a single batch write.
//
// A transaction is not safe for concurrent use.
type Transaction struct {
	db     ethdb.KeyValueStore
	batch  ethdb.Batch
	staged map[string][]byte // nil value marks a staged deletion
	closed bool
}

// NewTransaction opens a transaction on db.
func NewTransaction(db ethdb.KeyValueStore) *Transaction {
	return &Transaction{
		db:     db,
		batch:  db.NewBatch(),
		staged: make(map[string][]byte),
	}
}

// Has retrieves if a key is present, taking staged writes into account.
func (tx *Transaction) Has(key []byte) (bool, error) {
	if tx.closed {
		return false, ErrTransactionClosed
	}
	if val, ok := tx.staged[string(key)]; ok {
		return val != nil, nil
	}
	return tx.db.Has(key)
}

// Get retrieves the value of key, taking staged writes into account. A missing
// key yields ethdb.ErrNotFound.
func (tx *Transaction) Get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, ErrTransactionClosed
	}
	if val, ok := tx.staged[string(key)]; ok {
		if val == nil {
			return nil, ethdb.ErrNotFound
		}
		return common.CopyBytes(val), nil
	}
	return tx.db.Get(key)
}

// Put stages the value of key.
func (tx *Transaction) Put(key []byte, value []byte) error {
	if tx.closed {
		return ErrTransactionClosed
	}
	if value == nil {
		value = []byte{}
	}
	if err := tx.batch.Put(key, value); err != nil {
		return err
	}
	tx.staged[string(key)] = common.CopyBytes(value)
	return nil
}

// Delete stages the removal of key.
func (tx *Transaction) Delete(key []byte) error {
	if tx.closed {
		return ErrTransactionClosed
	}
	if err := tx.batch.Delete(key); err != nil {
		return err
	}
	tx.staged[string(key)] = nil
	return nil
}

// Insert stages the value of key and returns the value the key held before,
// or nil if it held none.
func (tx *Transaction) Insert(key []byte, value []byte) ([]byte, error) {
	prev, err := tx.Get(key)
	switch {
	case errors.Is(err, ethdb.ErrNotFound):
		prev = nil
	case err != nil:
		return nil, err
	}
	if err := tx.Put(key, value); err != nil {
		return nil, err
	}
	return prev, nil
}

// Commit applies all staged writes atomically and closes the transaction. The
// transaction is closed even when the write fails.
func (tx *Transaction) Commit() error {
	if tx.closed {
		return ErrTransactionClosed
	}
	tx.closed = true
	tx.staged = nil
	return tx.batch.Write()
}

// Rollback discards all staged writes and closes the transaction.
func (tx *Transaction) Rollback() error {
	if tx.closed {
		return ErrTransactionClosed
	}
	tx.closed = true
	tx.staged = nil
	tx.batch.Reset()
	return nil
}

// RollbackUnlessClosed rolls the transaction back unless it was already
// committed or rolled back. It is meant to be deferred right after the
// transaction is opened.
func (tx *Transaction) RollbackUnlessClosed() error {
	if tx.closed {
		return nil
	}
	return tx.Rollback()
}

// Closed reports whether the transaction was committed or rolled back.
func (tx *Transaction) Closed() bool {
	return tx.closed
}
