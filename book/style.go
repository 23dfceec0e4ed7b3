// Package book implements the TRBK paginated book container: the encoder
// pipeline that turns styled text runs into a paged, glyph-subset binary file
// and the streaming decoder that renders an arbitrary page without ever
// holding the whole book in memory.
package book

// Style carries the bold/italic flags of a text run as produced by the
// source-document extractor.
type Style struct {
	Bold   bool
	Italic bool
}

// StyleID identifies one of the four rendered text styles. Together with a
// codepoint it forms the glyph table key. Values are persisted in the file,
// do not reorder.
type StyleID uint8

const (
	StyleRegular StyleID = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

func (s StyleID) String() string {
	switch s {
	case StyleRegular:
		return "regular"
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBoldItalic:
		return "bold-italic"
	default:
		return "unknown"
	}
}

// ID resolves the flag pair into a style identifier.
func (s Style) ID() StyleID {
	switch {
	case s.Bold && s.Italic:
		return StyleBoldItalic
	case s.Bold:
		return StyleBold
	case s.Italic:
		return StyleItalic
	default:
		return StyleRegular
	}
}

// styleOrder fixes the iteration order over styles wherever deterministic
// output matters (glyph table serialization).
var styleOrder = []StyleID{StyleRegular, StyleBold, StyleItalic, StyleBoldItalic}
