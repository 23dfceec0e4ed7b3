//go:build windows

package config

import (
	"os"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/term"
)

const badFileName = "_bad_file_name_"

// ntReservedChars are the characters NTFS refuses in file names, on top of
// the usual path separators.
const ntReservedChars = `<>":/\|?*`

// CleanFileName strips characters not allowed in Windows file names so the
// result is always a plain file name suitable for an output .trbk path.
func CleanFileName(in string) string {
	drop := ntReservedChars + string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.Map(func(r rune) rune {
		if r == 0 || strings.ContainsRune(drop, r) {
			return -1
		}
		return r
	}, in)
	if out == "" {
		return badFileName
	}
	return out
}

// EnableColorOutput reports whether stream supports colorized output and
// turns on VT100 sequence processing in the console when it does. Consoles
// before Windows 10 have no VT support at all.
func EnableColorOutput(stream *os.File) bool {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()

	major, _, err := k.GetIntegerValue("CurrentMajorVersionNumber")
	if err != nil || major < 10 {
		return false
	}
	if !term.IsTerminal(int(stream.Fd())) {
		return false
	}

	var mode uint32
	if err = windows.GetConsoleMode(windows.Handle(stream.Fd()), &mode); err != nil {
		return false
	}
	mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
	return windows.SetConsoleMode(windows.Handle(stream.Fd()), mode) == nil
}
