// Copyright 2016 The go-ethereum Authors
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

package debug

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sunyihoo/go-txcore/internal/flags"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	logVmoduleFlag = &cli.StringFlag{
		Name:     "log.vmodule",
		Usage:    "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. core/txpool/*=5,p2p=4)",
		Category: flags.LoggingCategory,
	}
	logFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "Log format to use (json|logfmt|terminal)",
		Value:    "terminal",
		Category: flags.LoggingCategory,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Also write logs to the given file",
		Category: flags.LoggingCategory,
	}
	logRotateFlag = &cli.BoolFlag{
		Name:     "log.rotate",
		Usage:    "Rotate the log file, keeping at most log.maxbackups old files",
		Category: flags.LoggingCategory,
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Size in MBs at which the log file is rotated",
		Value:    100,
		Category: flags.LoggingCategory,
	}
	logMaxBackupsFlag = &cli.IntFlag{
		Name:     "log.maxbackups",
		Usage:    "Number of rotated log files to keep",
		Value:    10,
		Category: flags.LoggingCategory,
	}
	logMaxAgeFlag = &cli.IntFlag{
		Name:     "log.maxage",
		Usage:    "Days after which rotated log files are removed",
		Value:    30,
		Category: flags.LoggingCategory,
	}
	logCompressFlag = &cli.BoolFlag{
		Name:     "log.compress",
		Usage:    "Gzip rotated log files",
		Category: flags.LoggingCategory,
	}
	pprofAddrFlag = &cli.StringFlag{
		Name:     "pprof.addr",
		Usage:    "Serve pprof on the given address (e.g. 127.0.0.1:6060), off when empty",
		Category: flags.LoggingCategory,
	}
	cpuprofileFlag = &cli.StringFlag{
		Name:     "pprof.cpuprofile",
		Usage:    "Write a CPU profile to the given file",
		Category: flags.LoggingCategory,
	}
	traceFlag = &cli.StringFlag{
		Name:     "go-execution-trace",
		Usage:    "Write a Go execution trace to the given file",
		Category: flags.LoggingCategory,
	}
)

// Flags holds all command-line flags required for debugging.
var Flags = []cli.Flag{
	verbosityFlag,
	logVmoduleFlag,
	logFormatFlag,
	logFileFlag,
	logRotateFlag,
	logMaxSizeFlag,
	logMaxBackupsFlag,
	logMaxAgeFlag,
	logCompressFlag,
	pprofAddrFlag,
	cpuprofileFlag,
	traceFlag,
}

// logFile is the open log file, if any. Exit closes it.
var logFile io.WriteCloser

// openLogFile opens path for appending, through lumberjack when rotation is
// requested.
func openLogFile(ctx *cli.Context, path string) (io.WriteCloser, error) {
	if err := validateLogLocation(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to initialize file logger: %v", err)
	}
	if ctx.Bool(logRotateFlag.Name) {
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    ctx.Int(logMaxSizeFlag.Name),
			MaxBackups: ctx.Int(logMaxBackupsFlag.Name),
			MaxAge:     ctx.Int(logMaxAgeFlag.Name),
			Compress:   ctx.Bool(logCompressFlag.Name),
		}, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// newLogHandler creates the handler for format writing to stderr and file, if
// not nil. Colors are only used for terminal output without a log file.
func newLogHandler(format string, file io.Writer, color bool) (slog.Handler, error) {
	color = color && file == nil
	out := io.Writer(os.Stderr)
	switch {
	case color:
		out = colorable.NewColorableStderr()
	case file != nil:
		out = io.MultiWriter(out, file)
	}
	switch format {
	case "json":
		return log.JSONHandler(out), nil
	case "logfmt":
		return log.LogfmtHandler(out), nil
	case "", "terminal":
		return log.NewTerminalHandler(out, color), nil
	}
	return nil, fmt.Errorf("unknown log format: %v", format)
}

// Setup initializes logging and profiling from the command line. It should be
// called as early as possible in the program.
func Setup(ctx *cli.Context) error {
	path := ctx.String(logFileFlag.Name)
	if path != "" {
		f, err := openLogFile(ctx, path)
		if err != nil {
			return err
		}
		logFile = f
	}
	color := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	var file io.Writer
	if logFile != nil {
		file = logFile
	}
	handler, err := newLogHandler(ctx.String(logFormatFlag.Name), file, color)
	if err != nil {
		return err
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))
	if err := glogger.Vmodule(ctx.String(logVmoduleFlag.Name)); err != nil {
		return err
	}
	log.SetDefault(log.NewLogger(glogger))
	if path != "" {
		log.Info("Logging to file", "location", path, "rotate", ctx.Bool(logRotateFlag.Name))
	}

	if file := ctx.String(traceFlag.Name); file != "" {
		if err := StartGoTrace(file); err != nil {
			return err
		}
	}
	if file := ctx.String(cpuprofileFlag.Name); file != "" {
		if err := StartCPUProfile(file); err != nil {
			return err
		}
	}
	if addr := ctx.String(pprofAddrFlag.Name); addr != "" {
		// "metrics.addr" is the node's own metrics server flag, which would
		// also serve the registry.
		StartPProf(addr, !ctx.IsSet("metrics.addr"))
	}
	return nil
}

// StartPProf starts the pprof HTTP server. If withMetrics is set, the
// Prometheus registry is served on /debug/metrics/prometheus as well.
func StartPProf(address string, withMetrics bool) {
	if withMetrics {
		http.Handle("/debug/metrics/prometheus", promhttp.Handler())
	}
	log.Info("Starting pprof server", "addr", fmt.Sprintf("http://%s/debug/pprof", address))
	go func() {
		if err := http.ListenAndServe(address, nil); err != nil {
			log.Error("Failure in running pprof server", "err", err)
		}
	}()
}

// Exit stops all running profiles and closes the log file.
func Exit() {
	stopRecordings()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// validateLogLocation checks that the log directory exists and is writable.
func validateLogLocation(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("error creating the directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "txpoold-log-check")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}
