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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUncleanShutdownMarkers(t *testing.T) {
	db := NewMemoryDatabase()

	previous, discarded, err := PushUncleanShutdownMarker(db)
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Zero(t, discarded)

	// A clean shutdown leaves nothing to report.
	PopUncleanShutdownMarker(db)
	previous, _, err = PushUncleanShutdownMarker(db)
	require.NoError(t, err)
	assert.Empty(t, previous)

	// The marker of a crashed run is reported on the next start.
	UpdateUncleanShutdownMarker(db)
	previous, _, err = PushUncleanShutdownMarker(db)
	require.NoError(t, err)
	assert.Len(t, previous, 1)
}

func TestUncleanShutdownMarkersDiscard(t *testing.T) {
	db := NewMemoryDatabase()
	for i := 0; i < crashesToKeep+3; i++ {
		_, _, err := PushUncleanShutdownMarker(db)
		require.NoError(t, err)
	}
	previous, discarded, err := PushUncleanShutdownMarker(db)
	require.NoError(t, err)
	assert.Len(t, previous, crashesToKeep+1)
	assert.Equal(t, uint64(2), discarded)
}
