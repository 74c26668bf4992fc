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

package ethdb

// KeyRange returns the bounds of an iteration over keys carrying prefix,
// starting at prefix+start. lower is inclusive, upper exclusive. A nil upper
// means the range is open ended.
func KeyRange(prefix, start []byte) (lower, upper []byte) {
	lower = make([]byte, 0, len(prefix)+len(start))
	lower = append(append(lower, prefix...), start...)

	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == 0xff {
			continue
		}
		upper = make([]byte, i+1)
		copy(upper, prefix)
		upper[i]++
		break
	}
	return lower, upper
}

// InRange reports whether key lies within the bounds returned by KeyRange.
func InRange(key, lower, upper []byte) bool {
	if string(key) < string(lower) {
		return false
	}
	return upper == nil || string(key) < string(upper)
}
