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

package flags

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathExpansion(t *testing.T) {
	home := HomeDir()
	tests := map[string]string{
		"/home/someuser/tmp": "/home/someuser/tmp",
		"~/tmp":              home + "/tmp",
		"~thisOtherUser/b/":  "~thisOtherUser/b",
		"$DDDXXX/a/b":        "/tmp/a/b",
		"/a/b/":              "/a/b",
	}
	if runtime.GOOS == "windows" {
		t.Skip("path layout differs on windows")
	}
	os.Setenv("DDDXXX", "/tmp")
	defer os.Unsetenv("DDDXXX")
	for test, expected := range tests {
		assert.Equal(t, expected, ExpandPath(test), "input %s", test)
	}
}

func TestDirectoryString(t *testing.T) {
	var s DirectoryString
	assert.NoError(t, s.Set("/data/../chain/"))
	assert.Equal(t, "/chain", s.String())
}
