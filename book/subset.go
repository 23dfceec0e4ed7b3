package book

import (
	"fmt"
	"sort"
)

// GlyphMetrics describes one rasterized glyph as reported by the font
// capability. Pixel coordinates follow the rasterizer's convention: XMin is
// the left side bearing, YMin the distance from the baseline to the bitmap's
// bottom edge (positive above the baseline).
type GlyphMetrics struct {
	Width   int
	Height  int
	XMin    int
	YMin    int
	Advance float64
}

// Rasterizer is the only capability the encoder needs from a font
// implementation: render a single codepoint at a pixel size into an 8-bit
// coverage bitmap (row-major, Width*Height bytes) with its metrics.
type Rasterizer interface {
	Rasterize(cp rune, size float64) (GlyphMetrics, []byte, error)
}

// FontSet maps styles to their rasterizers. Only the regular style is
// mandatory; missing styles fall back to it.
type FontSet map[StyleID]Rasterizer

// Face returns the rasterizer for a style, falling back to regular.
func (fs FontSet) Face(style StyleID) Rasterizer {
	if r, ok := fs[style]; ok {
		return r
	}
	return fs[StyleRegular]
}

// CollectCodepoints gathers, per style, the set of codepoints the emitted
// runs actually use. Only these get rasterized into the glyph table.
func CollectCodepoints(chapters []ChapterRuns) map[StyleID]map[rune]struct{} {
	used := make(map[StyleID]map[rune]struct{})
	for _, spine := range chapters {
		for _, run := range spine.Runs {
			style := run.Style.ID()
			set := used[style]
			if set == nil {
				set = make(map[rune]struct{})
				used[style] = set
			}
			for _, cp := range run.Text {
				set[cp] = struct{}{}
			}
		}
	}
	return used
}

// BuildGlyphs rasterizes every used (style, codepoint) pair at the given
// pixel size and packs the coverage to 1 bit per pixel. Output order is fixed
// (style order, then ascending codepoint) so identical input produces an
// identical file.
func BuildGlyphs(fonts FontSet, size int, used map[StyleID]map[rune]struct{}) ([]Glyph, error) {
	var glyphs []Glyph
	for _, style := range styleOrder {
		set := used[style]
		if len(set) == 0 {
			continue
		}
		face := fonts.Face(style)
		if face == nil {
			return nil, fmt.Errorf("no font loaded for style %s", style)
		}
		for _, cp := range sortedCodepoints(set) {
			m, coverage, err := face.Rasterize(cp, float64(size))
			if err != nil {
				return nil, fmt.Errorf("rasterize %q (%s): %w", cp, style, err)
			}
			glyphs = append(glyphs, Glyph{
				Codepoint: cp,
				Style:     style,
				Width:     uint8(m.Width),
				Height:    uint8(m.Height),
				XAdvance:  int16(roundAdvance(m.Advance)),
				XOffset:   int16(m.XMin),
				YOffset:   int16(m.YMin + m.Height),
				Bitmap:    PackBitmap(coverage, m.Width, m.Height),
			})
		}
	}
	return glyphs, nil
}

// PackBitmap binarizes an 8-bit coverage bitmap with threshold 127 and packs
// it MSB-first into ceil(w*h/8) bytes.
func PackBitmap(coverage []byte, w, h int) []byte {
	total := w * h
	out := make([]byte, (total+7)/8)
	for i := 0; i < total && i < len(coverage); i++ {
		if coverage[i] > 127 {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out
}

// ComputeAscent derives the baseline origin for the render size: the maximum
// ink height above the baseline over the ASCII uppercase codepoints in the
// subset (cap-height heuristic). Without uppercase glyphs it falls back to
// the maximum over the whole subset, and as a last resort to the pixel size
// itself. Pagination and rendering both anchor on this value, so it travels
// with the file.
func ComputeAscent(face Rasterizer, size int, codepoints map[rune]struct{}) int16 {
	var capAscent, maxAscent int16
	for _, cp := range sortedCodepoints(codepoints) {
		m, _, err := face.Rasterize(cp, float64(size))
		if err != nil {
			continue
		}
		candidate := m.YMin + m.Height
		if candidate < 0 {
			candidate = 0
		}
		if cp >= 'A' && cp <= 'Z' && int16(candidate) > capAscent {
			capAscent = int16(candidate)
		}
		if int16(candidate) > maxAscent {
			maxAscent = int16(candidate)
		}
	}
	picked := capAscent
	if picked == 0 {
		picked = maxAscent
	}
	if picked == 0 {
		picked = int16(size)
	}
	return picked
}

func sortedCodepoints(set map[rune]struct{}) []rune {
	out := make([]rune, 0, len(set))
	for cp := range set {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func roundAdvance(adv float64) int {
	r := int(adv + 0.5)
	if r < 0 {
		r = 0
	}
	return r
}
