package config

import (
	"fmt"
	"os"
	"strconv"
)

// StatusLine writes a single human-readable phase string to a file so an
// operator (or a wrapper script) can see what a starting node is doing
// without tailing logs. Grounded on StorageNode's nodeStatus field in
// original_source, which does the same thing under the name "status.txt".
// A zero-value StatusLine with an empty path is a no-op, since the field
// is optional config.
type StatusLine struct {
	path string
}

// NewStatusLine returns a StatusLine writing to path. An empty path makes
// every Set call a no-op.
func NewStatusLine(path string) StatusLine {
	return StatusLine{path: path}
}

// Set overwrites the status file with msg, logging (not failing) on error:
// a node's own health must never depend on this file being writable.
func (s StatusLine) Set(msg string) {
	if s.path == "" {
		return
	}
	if err := os.WriteFile(s.path, []byte(msg+"\n"), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "storagenode: write status file %s: %v\n", s.path, err)
	}
}

// WritePIDFile writes the current process's PID to path. An empty path is
// a no-op. Grounded on StorageNode's pidFile, populated from a -DpidFile
// system property there and removed by its ShutdownHandler.
func WritePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// RemovePIDFile deletes path if set, ignoring a missing file. Call this
// from shutdown, mirroring ShutdownHandler.run's pidFile.delete().
func RemovePIDFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "storagenode: remove pid file %s: %v\n", path, err)
	}
}
