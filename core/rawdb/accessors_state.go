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

package rawdb

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/ethdb"
	"github.com/sunyihoo/go-txcore/log"
)

// ReadCoin retrieves the unspent coin behind the utxo id, or nil if the coin
// does not exist or was spent.
func ReadCoin(db ethdb.KeyValueReader, id types.UtxoID) *types.Coin {
	data, _ := db.Get(coinKey(id))
	if len(data) == 0 {
		return nil
	}
	coin := new(types.Coin)
	if err := rlp.DecodeBytes(data, coin); err != nil {
		log.Error("Invalid coin RLP", "utxo", id, "err", err)
		return nil
	}
	return coin
}

// HasCoin checks if the unspent coin behind the utxo id is present.
func HasCoin(db ethdb.KeyValueReader, id types.UtxoID) bool {
	ok, _ := db.Has(coinKey(id))
	return ok
}

// WriteCoin stores an unspent coin.
func WriteCoin(db ethdb.KeyValueWriter, id types.UtxoID, coin *types.Coin) error {
	data, err := rlp.EncodeToBytes(coin)
	if err != nil {
		return fmt.Errorf("failed to RLP encode coin: %w", err)
	}
	if err := db.Put(coinKey(id), data); err != nil {
		return fmt.Errorf("failed to store coin: %w", err)
	}
	return nil
}

// DeleteCoin removes a spent coin.
func DeleteCoin(db ethdb.KeyValueWriter, id types.UtxoID) error {
	if err := db.Delete(coinKey(id)); err != nil {
		return fmt.Errorf("failed to delete coin: %w", err)
	}
	return nil
}
