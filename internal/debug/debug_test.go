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

package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/log"
)

func TestNewLogHandler(t *testing.T) {
	for _, format := range []string{"", "terminal", "json", "logfmt"} {
		var file bytes.Buffer
		h, err := newLogHandler(format, &file, true)
		require.NoError(t, err, "format %q", format)

		log.NewLogger(h).Info("Pooled new transaction", "gas", 21000)
		assert.Contains(t, file.String(), "Pooled new transaction", "format %q", format)
		assert.NotContains(t, file.String(), "\x1b[", "format %q", format)
	}
	_, err := newLogHandler("xml", nil, false)
	assert.ErrorContains(t, err, "unknown log format")
}

func TestValidateLogLocation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "txpoold")
	require.NoError(t, validateLogLocation(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, validateLogLocation(filepath.Join(file, "sub")))
}

func TestRecordingOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, StartGoTrace(filepath.Join(dir, "trace.out")))
	assert.ErrorContains(t, StartGoTrace(filepath.Join(dir, "again.out")), "already in progress")
	stopRecordings()

	info, err := os.Stat(filepath.Join(dir, "trace.out"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	_, err = os.Stat(filepath.Join(dir, "again.out"))
	assert.True(t, os.IsNotExist(err))

	// Stopped recordings can be started again.
	require.NoError(t, StartGoTrace(filepath.Join(dir, "again.out")))
	stopRecordings()
}
