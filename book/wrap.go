package book

import "strings"

// WrapRuns turns per-chapter run sequences into wrapped lines. Tokens are
// whitespace-delimited; a token joins the current line when the line width
// plus one word space still fits, otherwise the line is flushed and the token
// starts the next one. Widths come from the advance table with
// Layout.CharWidth as the fallback for codepoints outside the glyph subset.
//
// A '\n' anywhere in a run's text forces a line flush after the run's tokens
// are placed. Note that the upstream run merge can leave such markers inside
// merged text; the flush fires but the marker itself is not stripped from
// already emitted tokens. This mirrors the established file contents, see the
// wrap tests before changing it.
func WrapRuns(chapters []ChapterRuns, layout Layout, advances AdvanceTable) []Line {
	maxWidth := layout.MaxLineWidth()
	charWidth := int(layout.CharWidth)

	var (
		lines        []Line
		current      []TextRun
		currentWidth int
		chapter      = NoChapter
	)

	for _, spine := range chapters {
		chapter = spine.Chapter
		for _, run := range spine.Runs {
			style := run.Style.ID()
			for _, token := range strings.Fields(run.Text) {
				tokenWidth := advances.Measure(style, token, charWidth)
				if currentWidth == 0 {
					current = append(current, TextRun{Text: token, Style: run.Style})
					currentWidth = tokenWidth
					continue
				}
				spaceWidth := advances.Measure(style, " ", charWidth) + int(layout.WordSpacing)
				if currentWidth+spaceWidth+tokenWidth <= maxWidth {
					current = append(current,
						TextRun{Text: " ", Style: run.Style},
						TextRun{Text: token, Style: run.Style})
					currentWidth += spaceWidth + tokenWidth
					continue
				}
				lines = append(lines, Line{Chapter: chapter, Runs: current})
				current = []TextRun{{Text: token, Style: run.Style}}
				currentWidth = tokenWidth
			}
			if strings.ContainsRune(run.Text, '\n') && len(current) > 0 {
				lines = append(lines, Line{Chapter: chapter, Runs: current})
				current = nil
				currentWidth = 0
			}
		}
	}
	if len(current) > 0 {
		lines = append(lines, Line{Chapter: chapter, Runs: current})
	}
	return lines
}
