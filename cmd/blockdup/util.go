package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// parseSize parses a human-readable size string into bytes. Supports
// formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// humanSize formats a byte count for display.
func humanSize(n int64) string {
	return humanize.IBytes(uint64(n))
}

// isTerminal reports whether f is connected to an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
