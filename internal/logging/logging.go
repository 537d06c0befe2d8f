// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Options select verbosity and destination.
type Options struct {
	Verbose bool   // info level
	Debug   bool   // debug level with caller info
	File    string // log to this file instead of stderr, e.g. while the TUI owns the terminal
}

// Level returns the level implied by opts. Warn is the quiet default.
func (o Options) Level() logrus.Level {
	switch {
	case o.Debug:
		return logrus.DebugLevel
	case o.Verbose:
		return logrus.InfoLevel
	}
	return logrus.WarnLevel
}

// Setup applies opts to the standard logger. The returned closer releases
// the log file, if one was opened.
func Setup(opts Options) (io.Closer, error) {
	return apply(logrus.StandardLogger(), opts)
}

func apply(l *logrus.Logger, opts Options) (io.Closer, error) {
	l.SetLevel(opts.Level())
	l.SetReportCaller(opts.Debug)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	if opts.File == "" {
		l.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	l.SetOutput(f)
	return f, nil
}
