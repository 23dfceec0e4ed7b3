package book

// Paginate groups wrapped lines into pages bounded by the layout's line
// budget. A chapter never shares a page with the start of another chapter:
// when the next line's chapter differs from the page's and the page already
// has content, the page is flushed early. Each source line is followed by an
// explicit line-break run so the serializer can recompute pen position
// without re-deriving line boundaries.
//
// The result always has at least one page; empty input yields a single
// placeholder page.
func Paginate(lines []Line, layout Layout) []PageRuns {
	linesPerPage := layout.LinesPerPage()

	var (
		pages     []PageRuns
		pageRuns  []TextRun
		chapter   = NoChapter
		lineCount int
	)

	flush := func() {
		pages = append(pages, PageRuns{Chapter: chapter, Runs: pageRuns})
		pageRuns = nil
		lineCount = 0
		chapter = NoChapter
	}

	for _, line := range lines {
		if chapter != NoChapter && line.Chapter != NoChapter && line.Chapter != chapter && len(pageRuns) > 0 {
			flush()
		}
		if chapter == NoChapter {
			chapter = line.Chapter
		}
		pageRuns = append(pageRuns, line.Runs...)
		pageRuns = append(pageRuns, lineBreak)
		lineCount++

		if lineCount >= linesPerPage {
			flush()
		}
	}
	if len(pageRuns) > 0 {
		flush()
	}
	if len(pages) == 0 {
		pages = append(pages, PageRuns{
			Chapter: NoChapter,
			Runs:    []TextRun{{Text: "(empty)"}},
		})
	}
	return pages
}
