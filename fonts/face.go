// Package fonts adapts OpenType font files to the narrow rasterization
// capability the book encoder consumes: one codepoint in, metrics plus an
// 8-bit coverage bitmap out.
package fonts

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"trbk/book"
)

// Face wraps a parsed OpenType font. Rendering faces are created per size on
// demand and cached; encoding typically touches very few sizes.
type Face struct {
	font  *opentype.Font
	name  string
	faces map[float64]font.Face
}

// Load parses the font file at path.
func Load(path string) (*Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font file %q: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font file %q: %w", path, err)
	}
	name, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil || name == "" {
		name = "unknown"
	}
	return &Face{font: f, name: name, faces: make(map[float64]font.Face)}, nil
}

// Name returns the font family name.
func (f *Face) Name() string { return f.name }

func (f *Face) sized(size float64) (font.Face, error) {
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create %gpx face for %q: %w", size, f.name, err)
	}
	f.faces[size] = face
	return face, nil
}

// Rasterize renders one codepoint at the given pixel size. The returned
// bitmap is row-major 8-bit coverage, Width*Height bytes. Metrics follow the
// encoder's convention: YMin is the baseline-relative bottom edge, positive
// above the baseline.
func (f *Face) Rasterize(cp rune, size float64) (book.GlyphMetrics, []byte, error) {
	face, err := f.sized(size)
	if err != nil {
		return book.GlyphMetrics{}, nil, err
	}

	dot := fixed.Point26_6{}
	dr, mask, maskp, advance, ok := face.Glyph(dot, cp)
	if !ok {
		// No outline for the codepoint: report advance-only metrics so the
		// encoder still gets a (possibly zero-size) glyph entry.
		adv, _ := face.GlyphAdvance(cp)
		return book.GlyphMetrics{Advance: fixedToFloat(adv)}, nil, nil
	}

	w, h := dr.Dx(), dr.Dy()
	coverage := make([]byte, w*h)
	alpha := &image.Alpha{Pix: coverage, Stride: w, Rect: image.Rect(0, 0, w, h)}
	drawAlpha(alpha, mask, maskp)

	// The face reports a y-down rectangle relative to the dot on the
	// baseline; convert to the y-up bearing convention.
	return book.GlyphMetrics{
		Width:   w,
		Height:  h,
		XMin:    dr.Min.X,
		YMin:    -dr.Max.Y,
		Advance: fixedToFloat(advance),
	}, coverage, nil
}

// LineMetrics reports ascent, descent and line gap in pixels at the given
// size; the encoder derives its line height from these.
func (f *Face) LineMetrics(size float64) (ascent, descent, gap float64, err error) {
	face, err := f.sized(size)
	if err != nil {
		return 0, 0, 0, err
	}
	m := face.Metrics()
	ascent = fixedToFloat(m.Ascent)
	descent = fixedToFloat(m.Descent)
	gap = fixedToFloat(m.Height) - ascent - descent
	if gap < 0 {
		gap = 0
	}
	return ascent, descent, gap, nil
}

func drawAlpha(dst *image.Alpha, mask image.Image, maskp image.Point) {
	b := dst.Rect
	if am, ok := mask.(*image.Alpha); ok {
		for y := 0; y < b.Dy(); y++ {
			srcRow := am.Pix[(maskp.Y+y-am.Rect.Min.Y)*am.Stride+(maskp.X-am.Rect.Min.X):]
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], srcRow[:b.Dx()])
		}
		return
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
			dst.Pix[y*dst.Stride+x] = uint8(a >> 8)
		}
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
