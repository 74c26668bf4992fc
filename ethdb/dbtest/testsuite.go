// Copyright 2019 The go-ethereum Authors
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

// Package dbtest holds the behaviour every ethdb.KeyValueStore backend must
// share, run by each backend's own tests.
package dbtest

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/ethdb"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() ethdb.KeyValueStore) {
	t.Run("Iterator", func(t *testing.T) {
		tests := []struct {
			content map[string]string
			prefix  string
			start   string
			order   []string
		}{
			// Empty databases should be iterable
			{map[string]string{}, "", "", nil},
			{map[string]string{}, "non-existent-prefix", "", nil},

			// Single-item databases should be iterable
			{map[string]string{"key": "val"}, "", "", []string{"key"}},
			{map[string]string{"key": "val"}, "k", "", []string{"key"}},
			{map[string]string{"key": "val"}, "l", "", nil},

			// Multi-item databases should be fully iterable
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"", "",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"k", "",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"l", "",
				nil,
			},
			// Multi-item databases should be prefix-iterable
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka", "",
				[]string{"ka1", "ka2", "ka3", "ka4", "ka5"},
			},
			// Multi-item databases should be prefix-iterable with start position
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka", "3",
				[]string{"ka3", "ka4", "ka5"},
			},
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka", "8",
				nil,
			},
		}
		for i, tt := range tests {
			// Create the key-value data store
			db := New()
			for key, val := range tt.content {
				require.NoError(t, db.Put([]byte(key), []byte(val)), "test %d", i)
			}
			// Iterate over the database with the given configs and verify the results
			it, idx := db.NewIterator([]byte(tt.prefix), []byte(tt.start)), 0
			for it.Next() {
				require.Less(t, idx, len(tt.order), "test %d: prefix=%q more items than expected", i, tt.prefix)
				require.Equal(t, tt.order[idx], string(it.Key()), "test %d: item %d", i, idx)
				require.Equal(t, tt.content[tt.order[idx]], string(it.Value()), "test %d: item %d", i, idx)
				idx++
			}
			require.NoError(t, it.Error(), "test %d", i)
			require.Equal(t, len(tt.order), idx, "test %d: iteration terminated prematurely", i)
			it.Release()
			db.Close()
		}
	})

	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")

		got, err := db.Has(key)
		require.NoError(t, err)
		require.False(t, got)

		_, err = db.Get(key)
		require.ErrorIs(t, err, ethdb.ErrNotFound)

		value := []byte("hello world")
		require.NoError(t, db.Put(key, value))

		got, err = db.Has(key)
		require.NoError(t, err)
		require.True(t, got)

		have, err := db.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, have)

		require.NoError(t, db.Delete(key))
		got, err = db.Has(key)
		require.NoError(t, err)
		require.False(t, got)
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		for _, k := range []string{"1", "2", "3", "4"} {
			require.NoError(t, b.Put([]byte(k), nil))
		}
		has, err := db.Has([]byte("1"))
		require.NoError(t, err)
		require.False(t, has, "db contains element before batch write")

		require.NoError(t, b.Write())
		require.Equal(t, []string{"1", "2", "3", "4"}, iterateKeys(db.NewIterator(nil, nil)))

		// Mix writes and deletes in batch
		b.Reset()
		for i := 0; i < 10; i++ {
			k := []byte{byte('0' + i)}
			if i%2 == 0 {
				require.NoError(t, b.Put(k, nil))
			} else {
				require.NoError(t, b.Delete(k))
			}
		}
		require.NoError(t, b.Write())
		require.Equal(t, []string{"0", "2", "4", "6", "8"}, iterateKeys(db.NewIterator(nil, nil)))
	})

	t.Run("BatchReset", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		require.NoError(t, b.Put([]byte("dropped"), []byte("v")))
		b.Reset()
		require.NoError(t, b.Put([]byte("kept"), []byte("v")))
		require.NoError(t, b.Write())
		require.Equal(t, []string{"kept"}, iterateKeys(db.NewIterator(nil, nil)))
	})

	t.Run("Stat", func(t *testing.T) {
		db := New()
		defer db.Close()

		require.NoError(t, db.Put([]byte("key"), []byte("value")))
		stats, err := db.Stat()
		require.NoError(t, err)
		require.NotEmpty(t, stats)
	})

	t.Run("OperationsAfterClose", func(t *testing.T) {
		db := New()
		db.Put([]byte("key"), []byte("value"))
		db.Close()

		_, err := db.Get([]byte("key"))
		require.ErrorIs(t, err, ethdb.ErrClosed)
		require.ErrorIs(t, db.Put([]byte("another"), []byte("value")), ethdb.ErrClosed)
	})
}

func iterateKeys(it ethdb.Iterator) []string {
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	slices.SortFunc(keys, func(a, b string) int { return bytes.Compare([]byte(a), []byte(b)) })
	it.Release()
	return keys
}
