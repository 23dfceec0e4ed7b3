package convert

import (
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// isEpubFile sniffs the file content, the extension is not trusted. EPUB is
// a ZIP with "mimetype" stored first, which is exactly what the matcher
// checks.
func isEpubFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 261)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return filetype.IsType(buf[:n], matchers.TypeEpub), nil
}
