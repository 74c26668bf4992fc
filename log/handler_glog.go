// Copyright 2017 The go-ethereum Authors
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

package log

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// errVmoduleSyntax is returned when a user vmodule pattern is invalid.
var errVmoduleSyntax = errors.New("expect comma-separated list of filename=N")

// GlogHandler filters records the way Google's glog does: by a global
// verbosity, raised for individual files with vmodule patterns. Handlers
// derived with WithAttrs share the filter settings of their parent.
type GlogHandler struct {
	origin slog.Handler
	filter *glogFilter
}

type glogFilter struct {
	level atomic.Int32
	rules atomic.Pointer[vmodule] // nil without vmodule patterns
}

// vmodule is an immutable set of file patterns with a cache of the level
// resolved for every call site seen.
type vmodule struct {
	patterns []pattern
	sites    sync.Map // uintptr -> slog.Level
}

type pattern struct {
	re    *regexp.Regexp
	level slog.Level
}

// NewGlogHandler wraps h into a glog style filter.
func NewGlogHandler(h slog.Handler) *GlogHandler {
	return &GlogHandler{origin: h, filter: new(glogFilter)}
}

// Verbosity sets the global verbosity ceiling.
func (h *GlogHandler) Verbosity(level slog.Level) {
	h.filter.level.Store(int32(level))
}

// Vmodule replaces the per file verbosity patterns.
//
// The argument is a comma-separated list of pattern=N, where the pattern is a
// literal file name or a path ending in "*" and N is a legacy verbosity level:
//
//	core/txpool/*=5  raises all files below any directory ending in core/txpool
//	importer.go=4    raises all files named importer.go
func (h *GlogHandler) Vmodule(ruleset string) error {
	patterns, err := parseVmodule(ruleset)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		h.filter.rules.Store(nil)
	} else {
		h.filter.rules.Store(&vmodule{patterns: patterns})
	}
	return nil
}

func parseVmodule(ruleset string) ([]pattern, error) {
	var patterns []pattern
	for _, rule := range strings.Split(ruleset, ",") {
		if rule == "" {
			continue
		}
		file, lvl, ok := strings.Cut(rule, "=")
		file, lvl = strings.TrimSpace(file), strings.TrimSpace(lvl)
		if !ok || file == "" || lvl == "" || strings.Contains(lvl, "=") {
			return nil, errVmoduleSyntax
		}
		n, err := strconv.Atoi(lvl)
		if err != nil {
			return nil, errVmoduleSyntax
		}
		level := FromLegacyLevel(n)
		if level == LevelCrit {
			continue
		}
		var expr strings.Builder
		expr.WriteString(".*")
		for _, comp := range strings.Split(file, "/") {
			switch comp {
			case "":
			case "*":
				expr.WriteString("(/.*)?")
			default:
				expr.WriteString("/" + regexp.QuoteMeta(comp))
			}
		}
		if !strings.HasSuffix(file, ".go") {
			expr.WriteString(`/[^/]+\.go`)
		}
		expr.WriteString("$")
		patterns = append(patterns, pattern{regexp.MustCompile(expr.String()), level})
	}
	return patterns, nil
}

// level returns the lowest level enabled at the call site pc. The last
// matching pattern wins.
func (m *vmodule) level(pc uintptr) slog.Level {
	if lvl, ok := m.sites.Load(pc); ok {
		return lvl.(slog.Level)
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	lvl := slog.Level(math.MaxInt32)
	for _, p := range m.patterns {
		if p.re.MatchString("/" + frame.File) {
			lvl = p.level
		}
	}
	m.sites.Store(pc, lvl)
	return lvl
}

// Enabled implements slog.Handler.
func (h *GlogHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return slog.Level(h.filter.level.Load()) <= lvl || h.filter.rules.Load() != nil
}

// WithAttrs implements slog.Handler.
func (h *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GlogHandler{origin: h.origin.WithAttrs(attrs), filter: h.filter}
}

// WithGroup implements slog.Handler.
func (h *GlogHandler) WithGroup(name string) slog.Handler {
	return &GlogHandler{origin: h.origin.WithGroup(name), filter: h.filter}
}

// Handle implements slog.Handler, passing r on if the global verbosity or a
// vmodule pattern for its call site allows it.
func (h *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	if slog.Level(h.filter.level.Load()) <= r.Level {
		return h.origin.Handle(ctx, r)
	}
	if rules := h.filter.rules.Load(); rules != nil && rules.level(r.PC) <= r.Level {
		return h.origin.Handle(ctx, r)
	}
	return nil
}
