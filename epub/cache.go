package epub

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Extraction results are cached in a small SQLite database next to the
// source file, keyed on the source size and mtime. Opening a large EPUB and
// flattening its outline is the expensive part of repeated conversions; the
// content documents themselves are always re-read from the archive.

const cacheSchemaVersion = 1

const cacheSchema = `
CREATE TABLE IF NOT EXISTS source (
	id INTEGER PRIMARY KEY CHECK (id = 0),
	version INTEGER NOT NULL,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	opf_path TEXT NOT NULL,
	cover_href TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS spine (
	idx INTEGER PRIMARY KEY,
	href TEXT NOT NULL,
	toc_index INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS toc (
	idx INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	href TEXT NOT NULL,
	anchor TEXT NOT NULL,
	level INTEGER NOT NULL,
	spine_index INTEGER NOT NULL
);
`

// SpineEntry is one reading-order item of an extraction. TocIndex points at
// the outline entry opening the item, -1 when no outline entry targets it.
type SpineEntry struct {
	Href     string
	TocIndex int
}

// Extraction is everything the conversion pipeline needs from a source file
// short of the content documents themselves.
type Extraction struct {
	Metadata  Metadata
	OpfPath   string
	CoverHref string
	Spine     []SpineEntry
	TOC       []FlatTocEntry
}

// Extract flattens an opened book into its cacheable form.
func Extract(b *Book) *Extraction {
	flat := FlattenTOC(b.TOC, b.SpineHrefs)
	spine := make([]SpineEntry, len(b.SpineHrefs))
	for i, href := range b.SpineHrefs {
		spine[i] = SpineEntry{Href: href, TocIndex: -1}
	}
	for i, e := range flat {
		if e.SpineIndex >= 0 && e.SpineIndex < len(spine) {
			spine[e.SpineIndex].TocIndex = i
		}
	}
	return &Extraction{
		Metadata:  b.Package.Metadata,
		OpfPath:   b.Package.OpfPath,
		CoverHref: b.Package.CoverHref,
		Spine:     spine,
		TOC:       flat,
	}
}

// CachePath returns the cache database path for a source file.
func CachePath(epubPath string) string {
	dir := filepath.Dir(epubPath)
	stem := strings.TrimSuffix(filepath.Base(epubPath), filepath.Ext(epubPath))
	return filepath.Join(dir, ".trbk-cache", stem+".db")
}

// LoadOrExtract returns the extraction for a source file, reusing the cache
// when the source has not changed. The second result reports a cache hit.
// Cache problems are never fatal, the source is simply re-extracted.
func LoadOrExtract(epubPath string, log *zap.Logger) (*Extraction, bool, error) {
	fi, err := os.Stat(epubPath)
	if err != nil {
		return nil, false, err
	}
	size, mtime := fi.Size(), fi.ModTime().Unix()

	cachePath := CachePath(epubPath)
	ex, err := loadCache(cachePath, size, mtime)
	if err != nil {
		log.Debug("Ignoring unreadable extraction cache", zap.String("path", cachePath), zap.Error(err))
	} else if ex != nil {
		return ex, true, nil
	}

	b, err := Open(epubPath, log)
	if err != nil {
		return nil, false, err
	}
	ex = Extract(b)

	if err := saveCache(cachePath, ex, size, mtime); err != nil {
		log.Warn("Cannot persist extraction cache", zap.String("path", cachePath), zap.Error(err))
	}
	return ex, false, nil
}

// loadCache returns nil without error when there is no usable cache for the
// given source size and mtime.
func loadCache(path string, size, mtime int64) (*Extraction, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	defer conn.Close()

	ex, fresh := &Extraction{}, false
	err = sqlitex.Execute(conn, `SELECT version, size, mtime, opf_path, cover_href FROM source WHERE id = 0`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			fresh = stmt.ColumnInt64(0) == cacheSchemaVersion &&
				stmt.ColumnInt64(1) == size &&
				stmt.ColumnInt64(2) == mtime
			ex.OpfPath = stmt.ColumnText(3)
			ex.CoverHref = stmt.ColumnText(4)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("read cache source row: %w", err)
	}
	if !fresh {
		return nil, nil
	}

	err = sqlitex.Execute(conn, `SELECT key, value FROM meta`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			switch key, value := stmt.ColumnText(0), stmt.ColumnText(1); key {
			case "title":
				ex.Metadata.Title = value
			case "creator":
				ex.Metadata.Creator = value
			case "language":
				ex.Metadata.Language = value
			case "identifier":
				ex.Metadata.Identifier = value
			}
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("read cache metadata: %w", err)
	}

	err = sqlitex.Execute(conn, `SELECT href, toc_index FROM spine ORDER BY idx`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			ex.Spine = append(ex.Spine, SpineEntry{
				Href:     stmt.ColumnText(0),
				TocIndex: stmt.ColumnInt(1),
			})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("read cache spine: %w", err)
	}

	err = sqlitex.Execute(conn, `SELECT title, href, anchor, level, spine_index FROM toc ORDER BY idx`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			ex.TOC = append(ex.TOC, FlatTocEntry{
				Title:      stmt.ColumnText(0),
				Href:       stmt.ColumnText(1),
				Anchor:     stmt.ColumnText(2),
				Level:      uint8(stmt.ColumnInt(3)),
				SpineIndex: stmt.ColumnInt(4),
			})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("read cache toc: %w", err)
	}
	return ex, nil
}

func saveCache(path string, ex *Extraction, size, mtime int64) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("open cache db: %w", err)
	}
	defer conn.Close()

	if err := sqlitex.ExecuteScript(conn, cacheSchema, nil); err != nil {
		return fmt.Errorf("create cache schema: %w", err)
	}

	defer sqlitex.Save(conn)(&err)

	for _, q := range []string{`DELETE FROM source`, `DELETE FROM meta`, `DELETE FROM spine`, `DELETE FROM toc`} {
		if err := sqlitex.Execute(conn, q, nil); err != nil {
			return fmt.Errorf("reset cache: %w", err)
		}
	}

	err = sqlitex.Execute(conn, `INSERT INTO source (id, version, size, mtime, opf_path, cover_href) VALUES (0, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{cacheSchemaVersion, size, mtime, ex.OpfPath, ex.CoverHref}})
	if err != nil {
		return fmt.Errorf("write cache source row: %w", err)
	}

	meta := map[string]string{
		"title":      ex.Metadata.Title,
		"creator":    ex.Metadata.Creator,
		"language":   ex.Metadata.Language,
		"identifier": ex.Metadata.Identifier,
	}
	for key, value := range meta {
		err = sqlitex.Execute(conn, `INSERT INTO meta (key, value) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{key, value}})
		if err != nil {
			return fmt.Errorf("write cache metadata: %w", err)
		}
	}

	for i, entry := range ex.Spine {
		err = sqlitex.Execute(conn, `INSERT INTO spine (idx, href, toc_index) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{i, entry.Href, entry.TocIndex}})
		if err != nil {
			return fmt.Errorf("write cache spine: %w", err)
		}
	}

	for i, entry := range ex.TOC {
		err = sqlitex.Execute(conn, `INSERT INTO toc (idx, title, href, anchor, level, spine_index) VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{i, entry.Title, entry.Href, entry.Anchor, int(entry.Level), entry.SpineIndex}})
		if err != nil {
			return fmt.Errorf("write cache toc: %w", err)
		}
	}
	return nil
}
