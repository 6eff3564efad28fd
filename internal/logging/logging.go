// Package logging builds the log15 root logger. The terminal belongs to the
// UI, so records go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/inconshreveable/log15"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger tagged with module=main that writes logfmt records
// at or above level to path, and the closer for the log file. An empty path
// discards everything.
func New(path, level string) (log15.Logger, io.Closer, error) {
	log := log15.New("module", "main")
	if path == "" {
		log.SetHandler(log15.DiscardHandler())
		return log, nopCloser{}, nil
	}

	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(f, log15.LogfmtFormat())))
	return log, f, nil
}

// Discard returns a logger that drops every record.
func Discard() log15.Logger {
	log := log15.New()
	log.SetHandler(log15.DiscardHandler())
	return log
}
