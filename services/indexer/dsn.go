package indexer

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	filePragmas   = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL"
	memoryPragmas = "mode=memory&cache=shared"
)

// FileDSN turns the configured indexer location into a SQLite DSN. A plain
// path becomes an absolute WAL-mode file, ":memory:" selects a shared
// in-memory database and file: URIs are used as given.
func FileDSN(location string) (string, error) {
	loc := strings.TrimSpace(location)
	switch {
	case loc == "":
		return "", ErrPathRequired
	case loc == ":memory:":
		return "file:dust-index?" + memoryPragmas, nil
	case strings.HasPrefix(loc, "file:"):
		return loc, nil
	}
	abs, err := filepath.Abs(loc)
	if err != nil {
		return "", fmt.Errorf("indexer: resolve path: %w", err)
	}
	return "file:" + abs + "?" + filePragmas, nil
}
