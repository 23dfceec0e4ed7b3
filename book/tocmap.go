package book

import "strings"

// ChapterTocEntry is a source-document navigation entry already resolved to a
// chapter index. Chapter is NoChapter when the href did not resolve.
type ChapterTocEntry struct {
	Title   string
	Chapter int
	Level   uint8
}

// SpineToPage builds the chapter → first page table by scanning pages once.
// First occurrence wins; chapters no page belongs to stay at NoChapter.
func SpineToPage(pages []PageRuns, chapterCount int) []int {
	m := make([]int, chapterCount)
	for i := range m {
		m[i] = NoChapter
	}
	for pageIdx, page := range pages {
		if page.Chapter >= 0 && page.Chapter < len(m) && m[page.Chapter] == NoChapter {
			m[page.Chapter] = pageIdx
		}
	}
	return m
}

// MapTOC projects chapter-level navigation entries onto page numbers.
// Entries whose chapter pagination never reached are dropped. When the source
// document supplied no usable TOC at all, one entry per reachable chapter is
// synthesized from the chapter file names so navigation is always available.
func MapTOC(entries []ChapterTocEntry, chapterHrefs []string, spineToPage []int) []TocEntry {
	var out []TocEntry
	for _, e := range entries {
		if e.Chapter < 0 || e.Chapter >= len(spineToPage) {
			continue
		}
		page := spineToPage[e.Chapter]
		if page < 0 {
			continue
		}
		out = append(out, TocEntry{Title: e.Title, PageIndex: uint32(page), Level: e.Level})
	}
	if len(out) > 0 {
		return out
	}
	for chapter, href := range chapterHrefs {
		if chapter >= len(spineToPage) {
			break
		}
		page := spineToPage[chapter]
		if page < 0 {
			continue
		}
		out = append(out, TocEntry{Title: titleFromHref(href), PageIndex: uint32(page)})
	}
	return out
}

func titleFromHref(href string) string {
	if idx := strings.LastIndexByte(href, '/'); idx >= 0 {
		href = href[idx+1:]
	}
	if href == "" {
		return "Chapter"
	}
	return href
}
