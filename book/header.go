package book

import "fmt"

// fileHeader is the parsed fixed header region.
type fileHeader struct {
	version          uint8
	headerSize       uint16
	screenWidth      uint16
	screenHeight     uint16
	pageCount        uint32
	tocCount         uint32
	pageLutOffset    uint32
	tocOffset        uint32
	pageDataOffset   uint32
	glyphCount       uint32
	glyphTableOffset uint32
}

func (h fileHeader) fixedSize() int {
	if h.version >= versionV2 {
		return fixedHeaderV2
	}
	return fixedHeaderV1
}

// parseFixedHeader decodes the fixed region. Unsupported versions are a
// distinct failure from malformed data: the caller may want to tell the user
// to update rather than to re-convert.
func parseFixedHeader(data []byte) (fileHeader, error) {
	var h fileHeader
	if len(data) < fixedHeaderV1 || string(data[0:4]) != magic {
		return h, fmt.Errorf("%w: bad magic", ErrDecode)
	}
	h.version = data[4]
	if h.version != versionV1 && h.version != versionV2 {
		return h, fmt.Errorf("%w %d", ErrUnsupported, h.version)
	}

	c := &cursor{data: data, pos: 6} // past magic, version, flags
	h.headerSize, _ = c.u16()
	h.screenWidth, _ = c.u16()
	h.screenHeight, _ = c.u16()
	h.pageCount, _ = c.u32()
	h.tocCount, _ = c.u32()
	h.pageLutOffset, _ = c.u32()
	h.tocOffset, _ = c.u32()
	h.pageDataOffset, _ = c.u32()
	if _, err := c.u32(); err != nil { // reserved: embedded images offset
		return h, err
	}
	if h.version >= versionV2 {
		c.pos = 0x28
		var err error
		if h.glyphCount, err = c.u32(); err != nil {
			return h, err
		}
		if h.glyphTableOffset, err = c.u32(); err != nil {
			return h, err
		}
	}
	return h, nil
}

// parseMetadata decodes the variable metadata block from the header bytes.
// The declared header size is an upper bound, not an exact cursor: trailing
// unused bytes after the known fields are tolerated so future encoders can
// extend the block, but fields running past it are an error.
func parseMetadata(header []byte, h fileHeader) (Metadata, error) {
	if len(header) > int(h.headerSize) {
		header = header[:h.headerSize]
	}
	c := &cursor{data: header, pos: h.fixedSize()}

	var m Metadata
	var err error
	read := func(dst *string) {
		if err == nil {
			*dst, err = c.str()
		}
	}
	read(&m.Title)
	read(&m.Author)
	read(&m.Language)
	read(&m.Identifier)
	read(&m.FontName)
	if err != nil {
		return m, err
	}
	if m.CharWidth, err = c.u16(); err != nil {
		return m, err
	}
	if m.LineHeight, err = c.u16(); err != nil {
		return m, err
	}

	// Older files predate the explicit ascent field; approximate it from the
	// line height the way legacy readers always have.
	if c.remaining() >= 12 {
		if m.Ascent, err = c.i16(); err != nil {
			return m, err
		}
	} else {
		m.Ascent = int16(m.LineHeight) - int16(m.LineHeight)/4
	}
	readU16 := func(dst *uint16) {
		if err == nil {
			*dst, err = c.u16()
		}
	}
	readU16(&m.MarginLeft)
	readU16(&m.MarginRight)
	readU16(&m.MarginTop)
	readU16(&m.MarginBottom)
	return m, err
}

func parseTOC(data []byte, count uint32) ([]TocEntry, error) {
	const minRecord = 4 + 4 + 1 + 1 + 2 // empty title + page + level + reserved
	if int64(count)*minRecord > int64(len(data)) {
		return nil, fmt.Errorf("%w: TOC count %d does not fit in %d bytes", ErrDecode, count, len(data))
	}
	c := newCursor(data)
	entries := make([]TocEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		title, err := c.str()
		if err != nil {
			return nil, fmt.Errorf("TOC entry %d: %w", i, err)
		}
		page, err := c.u32()
		if err != nil {
			return nil, fmt.Errorf("TOC entry %d: %w", i, err)
		}
		level, err := c.u8()
		if err != nil {
			return nil, fmt.Errorf("TOC entry %d: %w", i, err)
		}
		if err := c.skip(3); err != nil { // reserved
			return nil, fmt.Errorf("TOC entry %d: %w", i, err)
		}
		entries = append(entries, TocEntry{Title: title, PageIndex: page, Level: level})
	}
	return entries, nil
}

func parseGlyphs(data []byte, count uint32) ([]Glyph, error) {
	const minRecord = 4 + 1 + 1 + 1 + 2 + 2 + 2 + 4 // fixed fields + empty bitmap
	if int64(count)*minRecord > int64(len(data)) {
		return nil, fmt.Errorf("%w: glyph count %d does not fit in %d bytes", ErrDecode, count, len(data))
	}
	c := newCursor(data)
	glyphs := make([]Glyph, 0, count)
	for i := uint32(0); i < count; i++ {
		var (
			g   Glyph
			cp  uint32
			err error
		)
		if cp, err = c.u32(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		g.Codepoint = rune(cp)
		var style uint8
		if style, err = c.u8(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		g.Style = StyleID(style)
		if g.Width, err = c.u8(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		if g.Height, err = c.u8(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		if g.XAdvance, err = c.i16(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		if g.XOffset, err = c.i16(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		if g.YOffset, err = c.i16(); err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		bitmapLen, err := c.u32()
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		bitmap, err := c.bytes(int(bitmapLen))
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		g.Bitmap = append([]byte(nil), bitmap...)
		glyphs = append(glyphs, g)
	}
	return glyphs, nil
}
