// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logging builds the per-subsystem loggers every other package
// binds with UseLogger: a single rotating-file-plus-stdout backend, split
// into one slog.Logger per subsystem tag (PEER, CHCN, CMGR, AMGR, IBD, RPC,
// ...) so each can carry its own verbosity level.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

var logRotator *rotator.Rotator

// logWriter sends the formatted log line to stdout and, once
// InitLogRotator has been called, to the rotating log file as well.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var backendLog = slog.NewBackend(logWriter{})

// subsystemLoggers records every logger handed out by NewSubsystemLogger so
// SetLogLevels can re-level all of them from one config flag, the same
// registry dcrd-lineage daemons keep for their -debuglevel option.
var subsystemLoggers = make(map[string]slog.Logger)

// InitLogRotator creates a rotating log file at logFile, 10 MiB per file,
// keeping 3 old rolls. Call once at daemon start-up before any subsystem
// logger is used.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("logging: failed to create log rotator: %w", err)
	}
	logRotator = r
	return nil
}

// NewSubsystemLogger returns a logger tagged with the given four-to-six
// character subsystem name, defaulting to LevelInfo.
func NewSubsystemLogger(subsystem string) slog.Logger {
	l := backendLog.Logger(subsystem)
	l.SetLevel(slog.LevelInfo)
	subsystemLoggers[subsystem] = l
	return l
}

// SetLogLevels applies level (e.g. "debug", "info", "warn") to every logger
// previously handed out by NewSubsystemLogger, for a global verbosity flag.
func SetLogLevels(level string) error {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("logging: unknown log level %q", level)
	}
	for _, l := range subsystemLoggers {
		l.SetLevel(lvl)
	}
	return nil
}

// Close flushes and closes the rotating log file, if one was opened.
func Close() {
	if logRotator != nil {
		logRotator.Close()
	}
}

var _ io.Writer = logWriter{}
