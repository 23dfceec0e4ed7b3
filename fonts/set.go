package fonts

import (
	"fmt"

	"trbk/book"
)

// Paths configures one font file per style. Only Regular is required;
// missing styles render with the regular face.
type Paths struct {
	Regular    string
	Bold       string
	Italic     string
	BoldItalic string
}

// LoadSet loads the configured faces into a FontSet the encoder can consume.
// The returned name is the regular face's family name, recorded in the book
// metadata.
func LoadSet(paths Paths) (book.FontSet, string, error) {
	if paths.Regular == "" {
		return nil, "", fmt.Errorf("no regular font configured")
	}
	regular, err := Load(paths.Regular)
	if err != nil {
		return nil, "", err
	}
	set := book.FontSet{book.StyleRegular: regular}

	for _, style := range []struct {
		id   book.StyleID
		path string
	}{
		{book.StyleBold, paths.Bold},
		{book.StyleItalic, paths.Italic},
		{book.StyleBoldItalic, paths.BoldItalic},
	} {
		if style.path == "" {
			continue
		}
		face, err := Load(style.path)
		if err != nil {
			return nil, "", err
		}
		set[style.id] = face
	}
	return set, regular.Name(), nil
}

// Regular returns the set's regular face as a *Face for metric queries.
func Regular(set book.FontSet) (*Face, error) {
	face, ok := set[book.StyleRegular].(*Face)
	if !ok {
		return nil, fmt.Errorf("font set has no regular face")
	}
	return face, nil
}
