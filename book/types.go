package book

// NoChapter tags lines and pages that do not belong to any spine item (the
// synthesized placeholder page, for instance).
const NoChapter = -1

// TextRun is the smallest unit of styled text. Runs are immutable once placed
// into a line or page.
type TextRun struct {
	Text  string
	Style Style
}

// lineBreak is the pseudo-run inserted between wrapped lines on a page so the
// serializer can recompute pen position without re-deriving line boundaries.
var lineBreak = TextRun{Text: "\n"}

// IsLineBreak reports whether the run is the explicit line-break marker.
func (r TextRun) IsLineBreak() bool { return r.Text == "\n" }

// ChapterRuns is the per-chapter input to the layout pipeline: the ordered
// runs extracted from one spine item.
type ChapterRuns struct {
	Chapter int
	Runs    []TextRun
}

// Line is one wrapped line, still tagged with the chapter it came from.
// Lines exist only between the wrapper and the paginator.
type Line struct {
	Chapter int
	Runs    []TextRun
}

// PageRuns is a paginated page before serialization: the runs of its lines in
// order, with explicit line-break runs between them, and the chapter the page
// primarily belongs to.
type PageRuns struct {
	Chapter int
	Runs    []TextRun
}

// PageOp is a single drawable instruction decoded from a page's opcode
// stream. The only opcode today places a styled text run at a pen position;
// unknown opcodes are skipped during decode so the stream can grow new
// instruction kinds without breaking older readers.
type PageOp struct {
	X, Y  int
	Style StyleID
	Text  string
}

// Page is the decoded form of one page: its instruction list in paint order.
type Page struct {
	Ops []PageOp
}

// Glyph is one rasterized, packed glyph of the book's subset font. The bitmap
// is 1 bit per pixel, MSB first, rows packed contiguously without padding:
// ceil(Width*Height/8) bytes.
type Glyph struct {
	Codepoint rune
	Style     StyleID
	Width     uint8
	Height    uint8
	XAdvance  int16
	XOffset   int16
	YOffset   int16
	Bitmap    []byte
}

// TocEntry is one flattened navigation entry pointing at the page its target
// chapter starts on.
type TocEntry struct {
	Title     string
	PageIndex uint32
	Level     uint8
}

// Metadata travels with the file: identification strings plus the layout
// constants pagination was computed with. The renderer must use these, not
// its own, or pen positions and line breaks will not match.
type Metadata struct {
	Title      string
	Author     string
	Language   string
	Identifier string
	FontName   string

	CharWidth    uint16
	LineHeight   uint16
	Ascent       int16
	MarginLeft   uint16
	MarginRight  uint16
	MarginTop    uint16
	MarginBottom uint16
}

// BookInfo is everything a reader holds for the session after opening a
// book: geometry, metadata, the full glyph table and TOC. Page data is not
// included, it is streamed on demand.
type BookInfo struct {
	ScreenWidth  uint16
	ScreenHeight uint16
	PageCount    int
	Metadata     Metadata
	Glyphs       []Glyph
	TOC          []TocEntry
}

// Book is a fully materialized book, used by host-side tooling and tests.
// Device code uses Reader instead.
type Book struct {
	BookInfo
	Pages []Page
}

// GlyphTable indexes glyphs by (style, codepoint) for painting and advance
// lookups.
type GlyphTable map[GlyphKey]*Glyph

// GlyphKey is the composite glyph lookup key.
type GlyphKey struct {
	Style     StyleID
	Codepoint rune
}

// NewGlyphTable builds the lookup index over a decoded glyph slice.
func NewGlyphTable(glyphs []Glyph) GlyphTable {
	t := make(GlyphTable, len(glyphs))
	for i := range glyphs {
		g := &glyphs[i]
		t[GlyphKey{g.Style, g.Codepoint}] = g
	}
	return t
}

// Lookup returns the glyph for the given style and codepoint, or nil when the
// pair is not part of the subset. Rendering a missing pair advances the pen
// by Metadata.CharWidth and draws nothing.
func (t GlyphTable) Lookup(style StyleID, cp rune) *Glyph {
	return t[GlyphKey{style, cp}]
}
