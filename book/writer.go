package book

import (
	"fmt"
	"os"
	"path/filepath"
)

// Container layout constants. The fixed header region is followed by the
// variable-length metadata block; header_size covers both. See the cursor
// based reader for the decode side of the same layout.
const (
	magic = "TRBK"

	versionV1 = 1
	versionV2 = 2

	fixedHeaderV1 = 0x2C
	fixedHeaderV2 = 0x30
)

// WriteInput bundles everything the encoder produced for one book at one
// render size.
type WriteInput struct {
	Metadata Metadata
	Layout   Layout
	Pages    []PageRuns
	Glyphs   []Glyph
	Advances AdvanceTable
	TOC      []TocEntry
}

// Write serializes the book and atomically replaces path with it. The file is
// assembled next to the destination and renamed into place so a failed
// conversion never leaves something that looks like a complete book.
func Write(path string, in *WriteInput) error {
	data, err := Encode(in)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary book file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write book data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush book data: %w", err)
	}
	name := tmp.Name()
	tmp = nil
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("finalize book file: %w", err)
	}
	return nil
}

// Encode serializes the container into memory: fixed header, metadata block,
// TOC block, page offset index, page instruction data, glyph table. All
// section offsets are computed before the first byte is emitted.
func Encode(in *WriteInput) ([]byte, error) {
	if len(in.Pages) == 0 {
		return nil, fmt.Errorf("refusing to encode a book without pages")
	}

	version := byte(versionV1)
	fixedHeader := fixedHeaderV1
	if len(in.Glyphs) > 0 {
		version = versionV2
		fixedHeader = fixedHeaderV2
	}

	metadataBytes := encodeMetadata(in.Metadata, in.Layout)
	headerSize := uint16(fixedHeader + len(metadataBytes))

	tocOffset := uint32(headerSize)
	var tocBytes []byte
	for _, entry := range in.TOC {
		tocBytes = putString(tocBytes, entry.Title)
		tocBytes = putU32(tocBytes, entry.PageIndex)
		tocBytes = append(tocBytes, entry.Level, 0)
		tocBytes = putU16(tocBytes, 0)
	}
	pageLutOffset := tocOffset + uint32(len(tocBytes))

	var pageLut, pageData []byte
	for _, page := range in.Pages {
		pageLut = putU32(pageLut, uint32(len(pageData)))
		pageData = appendPageOps(pageData, page, in.Layout, in.Advances)
	}

	pageDataOffset := pageLutOffset + uint32(len(pageLut))
	glyphTableOffset := pageDataOffset + uint32(len(pageData))

	out := make([]byte, 0, int(glyphTableOffset))
	out = append(out, magic...)
	out = append(out, version, 0) // version, flags
	out = putU16(out, headerSize)
	out = putU16(out, in.Layout.ScreenWidth)
	out = putU16(out, in.Layout.ScreenHeight)
	out = putU32(out, uint32(len(in.Pages)))
	out = putU32(out, uint32(len(in.TOC)))
	out = putU32(out, pageLutOffset)
	out = putU32(out, tocOffset)
	out = putU32(out, pageDataOffset)
	out = putU32(out, 0) // reserved: embedded images offset
	if version >= versionV2 {
		out = putU32(out, 0) // reserved: source hash
		out = putU32(out, uint32(len(in.Glyphs)))
		out = putU32(out, glyphTableOffset)
	} else {
		// Pad the v1 fixed region out to 0x2C.
		out = putU32(out, 0)
		out = putU32(out, 0)
	}

	out = append(out, metadataBytes...)
	out = append(out, tocBytes...)
	out = append(out, pageLut...)
	out = append(out, pageData...)

	for _, g := range in.Glyphs {
		out = putU32(out, uint32(g.Codepoint))
		out = append(out, byte(g.Style), g.Width, g.Height)
		out = putI16(out, g.XAdvance)
		out = putI16(out, g.XOffset)
		out = putI16(out, g.YOffset)
		out = putU32(out, uint32(len(g.Bitmap)))
		out = append(out, g.Bitmap...)
	}
	return out, nil
}

func encodeMetadata(m Metadata, l Layout) []byte {
	var b []byte
	b = putString(b, m.Title)
	b = putString(b, m.Author)
	b = putString(b, m.Language)
	b = putString(b, m.Identifier)
	b = putString(b, m.FontName)
	b = putU16(b, l.CharWidth)
	b = putU16(b, l.LineHeight)
	b = putI16(b, l.Ascent)
	b = putU16(b, l.MarginX)
	b = putU16(b, l.MarginX)
	b = putU16(b, l.MarginY)
	b = putU16(b, l.MarginY)
	return b
}
