// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package logger provides the structured logger used throughout geosim.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps a slog.Logger.
type Logger struct {
	*slog.Logger
}

// New returns a Logger that writes text records of the given level or above to stderr.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a Logger that writes text records of the given level or above to output.
func NewLogger(level slog.Level, output io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))}
}

// Err returns the log attribute for an error.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
