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

package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestTerminalHandlerWithAttrs(t *testing.T) {
	out := new(bytes.Buffer)
	glog := NewGlogHandler(NewTerminalHandlerWithLevel(out, LevelTrace, false))
	glog.Verbosity(LevelTrace)
	logger := NewLogger(glog)
	logger.With("baz", "bat").Trace("a message", "foo", "bar")

	have := out.String()
	// The timestamp is locale-dependent, so we want to trim that off
	// "TRACE[01-01|00:00:00.000] a message ..." -> "a message..."
	have = strings.Split(have, "]")[1]
	want := " a message                                baz=bat foo=bar\n"
	require.Equal(t, want, have)
}

func TestGlogVerbosity(t *testing.T) {
	out := new(bytes.Buffer)
	glog := NewGlogHandler(NewTerminalHandler(out, false))
	glog.Verbosity(LevelInfo)
	logger := NewLogger(glog)

	logger.Debug("dropped")
	require.Zero(t, out.Len())

	logger.Info("kept")
	require.Contains(t, out.String(), "kept")
}

func TestGlogVmodule(t *testing.T) {
	out := new(bytes.Buffer)
	glog := NewGlogHandler(NewTerminalHandler(out, false))
	glog.Verbosity(LevelCrit)
	require.NoError(t, glog.Vmodule("logger_test.go=5"))
	NewLogger(glog).Trace("from vmodule")
	require.Contains(t, out.String(), "from vmodule")

	require.ErrorIs(t, glog.Vmodule("logger_test.go"), errVmoduleSyntax)
	require.ErrorIs(t, glog.Vmodule("logger_test.go=x"), errVmoduleSyntax)
	require.ErrorIs(t, glog.Vmodule("a=1=2"), errVmoduleSyntax)
}

func TestGlogVmoduleNoMatch(t *testing.T) {
	out := new(bytes.Buffer)
	glog := NewGlogHandler(NewTerminalHandler(out, false))
	glog.Verbosity(LevelWarn)
	require.NoError(t, glog.Vmodule("core/txpool/*=5"))

	logger := NewLogger(glog)
	logger.Info("other file")
	require.Zero(t, out.Len())

	require.NoError(t, glog.Vmodule("log/*=4"))
	logger.Debug("same directory")
	require.Contains(t, out.String(), "same directory")
}

func TestGlogDerivedFollowsVerbosity(t *testing.T) {
	out := new(bytes.Buffer)
	glog := NewGlogHandler(NewTerminalHandler(out, false))
	glog.Verbosity(LevelInfo)
	logger := NewLogger(glog).With("module", "txpool")

	logger.Debug("before")
	require.Zero(t, out.Len())
	glog.Verbosity(LevelDebug)
	logger.Debug("after")
	require.Contains(t, out.String(), "after")
	require.Contains(t, out.String(), "module=txpool")
}

func TestTerminalFormatting(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandler(out, false))
	price := uint256.NewInt(1_000_000)
	logger.Info("Formatted", "gas", uint64(1234567), "price", price, "err", errors.New("boom"))

	have := out.String()
	require.Contains(t, have, "gas=1,234,567")
	require.Contains(t, have, "price=1,000,000")
	require.Contains(t, have, "err=boom")
}

func TestJSONHandler(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(JSONHandler(out))
	logger.Warn("hi there", "price", uint256.NewInt(7))

	require.Contains(t, out.String(), `"lvl":"warn"`)
	require.Contains(t, out.String(), `"price":"7"`)
}

func TestOddArgs(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(LogfmtHandler(out))
	logger.Info("odd", "key")
	require.Contains(t, out.String(), errorKey)
}

func TestLevelStrings(t *testing.T) {
	require.Equal(t, LevelCrit, FromLegacyLevel(0))
	require.Equal(t, LevelTrace, FromLegacyLevel(9))
	require.Equal(t, slog.LevelInfo, FromLegacyLevel(3))
	require.Equal(t, "WARN ", LevelAlignedString(LevelWarn))
}

func TestWriteTimeTermFormat(t *testing.T) {
	b := new(bytes.Buffer)
	tm := time.Date(2024, time.March, 7, 4, 5, 6, 7_000_000, time.UTC)
	writeTimeTermFormat(b, tm)
	require.Equal(t, "03-07|04:05:06.007", b.String())
}
