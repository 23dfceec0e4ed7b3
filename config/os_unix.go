//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const badFileName = "_bad_file_name_"

// CleanFileName strips path separator characters and leading dots so the
// result is always a plain file name suitable for an output .trbk path.
func CleanFileName(in string) string {
	drop := string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.Map(func(r rune) rune {
		if strings.ContainsRune(drop, r) {
			return -1
		}
		return r
	}, in)
	out = strings.TrimLeft(out, ".")
	if out == "" {
		return badFileName
	}
	return out
}

// EnableColorOutput reports whether stream is attached to a terminal.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
