// Package logging builds the logrus logger shared by the CLI and services.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

const logFileMode = 0o600

type Options struct {
	Level string
	// File, when set, receives every entry in addition to the writers below.
	File string
	// Stdout receives trace, debug and info; Stderr receives warn and above.
	// Both default to os.Stderr so command output on stdout stays clean.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a logger and a closer for the log file, if one was opened.
func New(opts Options) (*logrus.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stderr
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(io.Discard)

	closer := func() error { return nil }
	if opts.File != "" {
		file, err := openLogFile(opts.File)
		if err != nil {
			return nil, nil, err
		}
		logger.SetOutput(file)
		closer = file.Close
	}

	logger.AddHook(&writer.Hook{
		Writer: stderr,
		LogLevels: []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
			logrus.WarnLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: stdout,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.InfoLevel,
			logrus.DebugLevel,
		},
	})

	return logger, closer, nil
}

// ParseLevel accepts logrus level names; empty means info.
func ParseLevel(raw string) (logrus.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return logrus.InfoLevel, nil
	}

	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}

	return level, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}
