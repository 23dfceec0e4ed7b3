// Package archive builds small read helpers on top of "archive/zip" for the
// EPUB container. EPUBs are plain zip files; entries are addressed by the
// hrefs the package document declares.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// ReadFile returns the contents of a single entry. Names are matched both
// verbatim and with a leading "./" stripped, which sloppy packaging tools
// like to emit. Entries with path traversal components ("..") or absolute
// paths are rejected to prevent Zip Slip attacks.
func ReadFile(archive, name string) ([]byte, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f := find(r, name)
	if f == nil {
		return nil, fmt.Errorf("no entry %q in %q", name, archive)
	}
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Exists reports whether the archive has an entry under the given name.
func Exists(archive, name string) bool {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return false
	}
	defer r.Close()
	return find(r, name) != nil
}

func find(r *zip.ReadCloser, name string) *zip.File {
	stripped := strings.TrimPrefix(name, "./")
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == name || f.Name == stripped || strings.TrimPrefix(f.Name, "./") == stripped {
			return f
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
