package book

import (
	"bytes"
	"fmt"
	"io"
)

// Limits bound what the decoder accepts. They are configuration, not
// compile-time constants, so host tools and the device can pick different
// ceilings. Zero values select the defaults.
type Limits struct {
	// MaxBookBytes caps the total file size accepted at open.
	MaxBookBytes int64
	// MaxPageBytes caps a single page's instruction stream.
	MaxPageBytes int
}

const (
	defaultMaxBookBytes = 16 << 20
	defaultMaxPageBytes = 64 << 10
)

func (l Limits) withDefaults() Limits {
	if l.MaxBookBytes <= 0 {
		l.MaxBookBytes = defaultMaxBookBytes
	}
	if l.MaxPageBytes <= 0 {
		l.MaxPageBytes = defaultMaxPageBytes
	}
	return l
}

// blobIndex is the page lookup table: offset i opens page i's byte range,
// which runs to the next offset or to the end marker for the last page. It is
// the one place the "next-known-offset-or-end" rule lives.
type blobIndex struct {
	base    int64
	offsets []uint32
	end     int64
}

func (ix blobIndex) rangeFor(i int) (start, end int64, err error) {
	if i < 0 || i >= len(ix.offsets) {
		return 0, 0, fmt.Errorf("%w: page %d out of range (%d pages)", ErrDecode, i, len(ix.offsets))
	}
	start = ix.base + int64(ix.offsets[i])
	if i+1 < len(ix.offsets) {
		end = ix.base + int64(ix.offsets[i+1])
	} else {
		end = ix.end
	}
	if start > end || end > ix.end || start < 0 {
		return 0, 0, fmt.Errorf("%w: page %d range [%d,%d) outside data", ErrDecode, i, start, end)
	}
	return start, end, nil
}

// Reader provides random access to the pages of an opened book. Opening
// parses the header, metadata, TOC and glyph table eagerly; page instruction
// data is fetched per page with one seek and one bounded read, so memory use
// stays at one page regardless of book length.
type Reader struct {
	src    io.ReadSeeker
	limits Limits
	info   BookInfo
	index  blobIndex
}

// Open validates and parses everything except page data. The source must
// stay valid for the reader's lifetime; the format assumes the file is
// immutable once produced.
func Open(src io.ReadSeeker, limits Limits) (*Reader, error) {
	limits = limits.withDefaults()

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("probe book size: %w", err)
	}
	if size > limits.MaxBookBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, limits.MaxBookBytes)
	}
	if size < fixedHeaderV1 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrDecode, size)
	}

	r := &Reader{src: src, limits: limits}

	fixed, err := r.readSection(0, min64(size, fixedHeaderV2))
	if err != nil {
		return nil, err
	}
	h, err := parseFixedHeader(fixed)
	if err != nil {
		return nil, err
	}

	if int64(h.headerSize) > size || int(h.headerSize) < h.fixedSize() {
		return nil, fmt.Errorf("%w: header size %d inconsistent with file size %d", ErrDecode, h.headerSize, size)
	}
	if h.tocOffset != uint32(h.headerSize) {
		return nil, fmt.Errorf("%w: TOC offset %d does not follow header of %d bytes", ErrDecode, h.tocOffset, h.headerSize)
	}
	if int64(h.pageLutOffset) > size || int64(h.pageDataOffset) > size {
		return nil, fmt.Errorf("%w: section offset beyond end of file", ErrDecode)
	}

	headerBlock, err := r.readSection(0, int64(h.headerSize))
	if err != nil {
		return nil, err
	}
	meta, err := parseMetadata(headerBlock, h)
	if err != nil {
		return nil, err
	}

	var toc []TocEntry
	if h.tocCount > 0 {
		if int64(h.pageLutOffset) < int64(h.tocOffset) {
			return nil, fmt.Errorf("%w: page index overlaps TOC", ErrDecode)
		}
		tocBlock, err := r.readSection(int64(h.tocOffset), int64(h.pageLutOffset)-int64(h.tocOffset))
		if err != nil {
			return nil, err
		}
		if toc, err = parseTOC(tocBlock, h.tocCount); err != nil {
			return nil, err
		}
	}

	lutLen := int64(h.pageCount) * 4
	if int64(h.pageLutOffset)+lutLen > size {
		return nil, fmt.Errorf("%w: page index extends past end of file", ErrDecode)
	}
	lutBlock, err := r.readSection(int64(h.pageLutOffset), lutLen)
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, h.pageCount)
	lc := newCursor(lutBlock)
	for i := range offsets {
		offsets[i], _ = lc.u32()
	}

	var glyphs []Glyph
	if h.version >= versionV2 && h.glyphCount > 0 {
		if int64(h.glyphTableOffset) > size {
			return nil, fmt.Errorf("%w: glyph table beyond end of file", ErrDecode)
		}
		glyphBlock, err := r.readSection(int64(h.glyphTableOffset), size-int64(h.glyphTableOffset))
		if err != nil {
			return nil, err
		}
		if glyphs, err = parseGlyphs(glyphBlock, h.glyphCount); err != nil {
			return nil, err
		}
	}

	end := size
	if h.version >= versionV2 && int64(h.glyphTableOffset) > int64(h.pageDataOffset) {
		end = int64(h.glyphTableOffset)
	}
	r.index = blobIndex{base: int64(h.pageDataOffset), offsets: offsets, end: end}
	r.info = BookInfo{
		ScreenWidth:  h.screenWidth,
		ScreenHeight: h.screenHeight,
		PageCount:    int(h.pageCount),
		Metadata:     meta,
		Glyphs:       glyphs,
		TOC:          toc,
	}
	return r, nil
}

// Info returns the session-lifetime book information loaded at open.
func (r *Reader) Info() BookInfo { return r.info }

// Page fetches and decodes a single page's instruction stream. A corrupt
// page fails only this fetch; the reader stays usable for other pages.
func (r *Reader) Page(i int) (Page, error) {
	start, end, err := r.index.rangeFor(i)
	if err != nil {
		return Page{}, err
	}
	if end-start > int64(r.limits.MaxPageBytes) {
		return Page{}, fmt.Errorf("%w: page %d is %d bytes, limit %d", ErrTooLarge, i, end-start, r.limits.MaxPageBytes)
	}
	data, err := r.readSection(start, end-start)
	if err != nil {
		return Page{}, err
	}
	ops, err := ParsePageOps(data)
	if err != nil {
		return Page{}, fmt.Errorf("page %d: %w", i, err)
	}
	return Page{Ops: ops}, nil
}

func (r *Reader) readSection(off, n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative section length", ErrDecode)
	}
	if _, err := r.src.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to offset %d: %w", off, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: section at %d truncated", ErrDecode, off)
		}
		return nil, fmt.Errorf("read section at offset %d: %w", off, err)
	}
	return buf, nil
}

// ReadBook materializes a whole book from memory: every page is decoded up
// front. Host-side tooling and tests use this; the device reader streams
// instead.
func ReadBook(data []byte, limits Limits) (*Book, error) {
	r, err := Open(bytes.NewReader(data), limits)
	if err != nil {
		return nil, err
	}
	book := &Book{BookInfo: r.Info()}
	book.Pages = make([]Page, 0, book.PageCount)
	for i := 0; i < book.PageCount; i++ {
		page, err := r.Page(i)
		if err != nil {
			return nil, err
		}
		book.Pages = append(book.Pages, page)
	}
	return book, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
