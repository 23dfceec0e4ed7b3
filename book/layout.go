package book

// Layout is the physical geometry pagination is computed against. It is
// persisted in the file metadata so the renderer and the encoder always agree
// on pen positions and line budgets.
type Layout struct {
	ScreenWidth  uint16
	ScreenHeight uint16
	MarginX      uint16
	MarginY      uint16
	LineHeight   uint16
	CharWidth    uint16
	Ascent       int16
	WordSpacing  int16
}

// DefaultLayout matches the 480x800 e-ink panel the format was designed for.
func DefaultLayout() Layout {
	return Layout{
		ScreenWidth:  480,
		ScreenHeight: 800,
		MarginX:      16,
		MarginY:      60,
		LineHeight:   20,
		CharWidth:    10,
		Ascent:       14,
		WordSpacing:  2,
	}
}

// MaxLineWidth is the usable content width in pixels, never below one.
func (l Layout) MaxLineWidth() int {
	w := int(l.ScreenWidth) - 2*int(l.MarginX)
	if w < 1 {
		w = 1
	}
	return w
}

// LinesPerPage is the per-page line budget, never below one.
func (l Layout) LinesPerPage() int {
	h := int(l.ScreenHeight) - 2*int(l.MarginY)
	if h < 1 {
		h = 1
	}
	n := h / int(l.LineHeight)
	if n < 1 {
		n = 1
	}
	return n
}

// AdvanceKey is the composite key of the per-glyph advance table.
type AdvanceKey struct {
	Style     StyleID
	Codepoint rune
}

// AdvanceTable maps (style, codepoint) to the horizontal pen advance of the
// rasterized glyph. It is derived from the glyph subset and is the single
// width source for wrapping, pagination and serialization, so encode-time and
// decode-time advances agree by construction.
type AdvanceTable map[AdvanceKey]int16

// BuildAdvanceTable indexes glyph advances for measurement.
func BuildAdvanceTable(glyphs []Glyph) AdvanceTable {
	t := make(AdvanceTable, len(glyphs))
	for _, g := range glyphs {
		t[AdvanceKey{g.Style, g.Codepoint}] = g.XAdvance
	}
	return t
}

// Measure sums per-codepoint advances for text in the given style.
// Codepoints outside the subset fall back to the fixed default width.
func (t AdvanceTable) Measure(style StyleID, text string, defaultWidth int) int {
	width := 0
	for _, cp := range text {
		if adv, ok := t[AdvanceKey{style, cp}]; ok {
			width += int(adv)
		} else {
			width += defaultWidth
		}
	}
	return width
}
