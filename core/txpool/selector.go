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

package txpool

import (
	"container/heap"

	"github.com/sunyihoo/go-txcore/core/types"
)

type txByPriceAndTime []*TxInfo

func (s txByPriceAndTime) Len() int { return len(s) }
func (s txByPriceAndTime) Less(i, j int) bool {
	// If the prices are equal, use the order the transactions entered the
	// pool for deterministic sorting
	cmp := s[i].tx.GasPriceCmp(s[j].tx)
	if cmp == 0 {
		return s[i].seq < s[j].seq
	}
	return cmp > 0
}
func (s txByPriceAndTime) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *txByPriceAndTime) Push(x interface{}) {
	*s = append(*s, x.(*TxInfo))
}

func (s *txByPriceAndTime) Pop() interface{} {
	old := *s
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*s = old[0 : n-1]
	return x
}

// SelectTransactions picks transactions for a block from candidates, best gas
// price first and earlier submissions first on ties. A candidate that does not
// fit into the remaining gas is skipped; smaller ones behind it may still fit.
// The total gas of the result never exceeds maxGas.
func SelectTransactions(candidates []*TxInfo, maxGas uint64) []*types.Transaction {
	heads := make(txByPriceAndTime, len(candidates))
	copy(heads, candidates)
	heap.Init(&heads)

	var (
		selected []*types.Transaction
		left     = maxGas
	)
	for len(heads) > 0 {
		info := heap.Pop(&heads).(*TxInfo)
		if gas := info.tx.Gas(); gas <= left {
			selected = append(selected, info.tx)
			left -= gas
		}
	}
	return selected
}
