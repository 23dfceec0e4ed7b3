package book

import (
	"errors"
	"testing"
)

// fakeRasterizer renders every codepoint as a fixed-size block whose coverage
// and metrics are controlled by the test.
type fakeRasterizer struct {
	width    int
	height   int
	yMin     int
	advance  float64
	coverage byte
	err      error
}

func (f *fakeRasterizer) Rasterize(cp rune, size float64) (GlyphMetrics, []byte, error) {
	if f.err != nil {
		return GlyphMetrics{}, nil, f.err
	}
	cov := make([]byte, f.width*f.height)
	for i := range cov {
		cov[i] = f.coverage
	}
	return GlyphMetrics{
		Width:   f.width,
		Height:  f.height,
		XMin:    1,
		YMin:    f.yMin,
		Advance: f.advance,
	}, cov, nil
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, cp := range s {
		set[cp] = struct{}{}
	}
	return set
}

func TestCollectCodepoints(t *testing.T) {
	chapters := []ChapterRuns{{
		Chapter: 0,
		Runs: []TextRun{
			{Text: "aba"},
			{Text: "b", Style: Style{Bold: true}},
		},
	}}

	used := CollectCodepoints(chapters)
	if len(used[StyleRegular]) != 2 {
		t.Errorf("regular set has %d codepoints, want 2", len(used[StyleRegular]))
	}
	if _, ok := used[StyleBold]['b']; !ok {
		t.Errorf("bold set is missing 'b': %v", used[StyleBold])
	}
	if _, ok := used[StyleItalic]; ok {
		t.Errorf("italic set should be absent")
	}
}

func TestBuildGlyphs_DeterministicOrder(t *testing.T) {
	fonts := FontSet{StyleRegular: &fakeRasterizer{width: 2, height: 2, advance: 3}}
	used := map[StyleID]map[rune]struct{}{
		StyleRegular: runeSet("cab"),
		StyleBold:    runeSet("z"),
	}

	glyphs, err := BuildGlyphs(fonts, 10, used)
	if err != nil {
		t.Fatalf("BuildGlyphs() error = %v", err)
	}
	var got []struct {
		style StyleID
		cp    rune
	}
	for _, g := range glyphs {
		got = append(got, struct {
			style StyleID
			cp    rune
		}{g.Style, g.Codepoint})
	}
	want := []struct {
		style StyleID
		cp    rune
	}{
		{StyleRegular, 'a'}, {StyleRegular, 'b'}, {StyleRegular, 'c'},
		{StyleBold, 'z'},
	}
	if len(got) != len(want) {
		t.Fatalf("BuildGlyphs() produced %d glyphs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("glyph %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBuildGlyphs_Metrics(t *testing.T) {
	fonts := FontSet{StyleRegular: &fakeRasterizer{width: 3, height: 5, yMin: -1, advance: 4.6, coverage: 200}}
	glyphs, err := BuildGlyphs(fonts, 12, map[StyleID]map[rune]struct{}{StyleRegular: runeSet("x")})
	if err != nil {
		t.Fatalf("BuildGlyphs() error = %v", err)
	}
	g := glyphs[0]
	if g.Width != 3 || g.Height != 5 {
		t.Errorf("glyph size = %dx%d, want 3x5", g.Width, g.Height)
	}
	if g.XAdvance != 5 {
		t.Errorf("x advance = %d, want 5 (4.6 rounded)", g.XAdvance)
	}
	if g.XOffset != 1 {
		t.Errorf("x offset = %d, want 1", g.XOffset)
	}
	if g.YOffset != 4 {
		t.Errorf("y offset = %d, want 4 (yMin -1 + height 5)", g.YOffset)
	}
	if len(g.Bitmap) != 2 {
		t.Errorf("bitmap length = %d, want 2 (ceil(15/8))", len(g.Bitmap))
	}
}

func TestBuildGlyphs_MissingStyleFallsBackToRegular(t *testing.T) {
	fonts := FontSet{StyleRegular: &fakeRasterizer{width: 1, height: 1, advance: 1}}
	glyphs, err := BuildGlyphs(fonts, 10, map[StyleID]map[rune]struct{}{StyleItalic: runeSet("q")})
	if err != nil {
		t.Fatalf("BuildGlyphs() error = %v", err)
	}
	if len(glyphs) != 1 || glyphs[0].Style != StyleItalic {
		t.Errorf("BuildGlyphs() = %+v, want one italic glyph from the regular face", glyphs)
	}
}

func TestBuildGlyphs_RasterizeError(t *testing.T) {
	rasterErr := errors.New("broken face")
	fonts := FontSet{StyleRegular: &fakeRasterizer{err: rasterErr}}
	if _, err := BuildGlyphs(fonts, 10, map[StyleID]map[rune]struct{}{StyleRegular: runeSet("a")}); !errors.Is(err, rasterErr) {
		t.Errorf("BuildGlyphs() error = %v, want wrapped %v", err, rasterErr)
	}
}

func TestPackBitmap(t *testing.T) {
	// 3x3: checkerboard over the threshold on the diagonal and corners.
	coverage := []byte{
		255, 0, 255,
		0, 128, 0,
		255, 0, 255,
	}
	packed := PackBitmap(coverage, 3, 3)
	if len(packed) != 2 {
		t.Fatalf("PackBitmap() length = %d, want 2", len(packed))
	}
	// bits: 1 0 1 0 1 0 1 0 | 1 . . .
	if packed[0] != 0xAA {
		t.Errorf("packed[0] = %#02x, want 0xAA", packed[0])
	}
	if packed[1] != 0x80 {
		t.Errorf("packed[1] = %#02x, want 0x80", packed[1])
	}
}

func TestPackBitmap_ThresholdIsExclusive(t *testing.T) {
	packed := PackBitmap([]byte{127, 128}, 2, 1)
	if packed[0] != 0x40 {
		t.Errorf("packed[0] = %#02x, want 0x40 (127 dropped, 128 kept)", packed[0])
	}
}

func TestComputeAscent(t *testing.T) {
	tests := []struct {
		name       string
		yMin       int
		height     int
		codepoints string
		want       int16
	}{
		{"cap height from uppercase", 0, 9, "Aa", 9},
		{"fallback to max over subset", -2, 8, "ax", 6},
		{"fallback to size", 0, 0, "", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face := &fakeRasterizer{width: 1, height: tt.height, yMin: tt.yMin, advance: 1}
			got := ComputeAscent(face, 12, runeSet(tt.codepoints))
			if got != tt.want {
				t.Errorf("ComputeAscent() = %d, want %d", got, tt.want)
			}
		})
	}
}
