package epub

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

// Table-of-contents parsing. EPUB3 ships an XHTML nav document, EPUB2 an NCX;
// both are turned into the same nested TocEntry tree.

func parseNavTOC(data []byte, base string) ([]TocEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse nav document: %w", err)
	}

	var toc []TocEntry
	doc.Find("nav").EachWithBreak(func(_ int, nav *goquery.Selection) bool {
		if nav.AttrOr("epub:type", nav.AttrOr("type", "")) != "toc" {
			return true
		}
		toc = parseNavList(nav.ChildrenFiltered("ol"), base)
		return false
	})
	return toc, nil
}

func parseNavList(ol *goquery.Selection, base string) []TocEntry {
	var entries []TocEntry
	ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		entry := TocEntry{}
		if a := li.ChildrenFiltered("a").First(); a.Length() > 0 {
			entry.Label = strings.TrimSpace(a.Text())
			if href, ok := a.Attr("href"); ok {
				entry.Href = resolveHref(base, href)
			}
		} else if span := li.ChildrenFiltered("span").First(); span.Length() > 0 {
			entry.Label = strings.TrimSpace(span.Text())
		}
		entry.Children = parseNavList(li.ChildrenFiltered("ol"), base)
		if entry.Label != "" || len(entry.Children) > 0 {
			entries = append(entries, entry)
		}
	})
	return entries
}

func parseNCXTOC(data []byte, base string) ([]TocEntry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse NCX document: %w", err)
	}
	navMap := doc.FindElement("//navMap")
	if navMap == nil {
		return nil, fmt.Errorf("NCX document has no navMap")
	}
	return parseNavPoints(navMap, base), nil
}

func parseNavPoints(parent *etree.Element, base string) []TocEntry {
	var entries []TocEntry
	for _, np := range parent.SelectElements("navPoint") {
		entry := TocEntry{}
		if label := np.SelectElement("navLabel"); label != nil {
			if text := label.SelectElement("text"); text != nil {
				entry.Label = strings.TrimSpace(text.Text())
			}
		}
		if content := np.SelectElement("content"); content != nil {
			if src := content.SelectAttrValue("src", ""); src != "" {
				entry.Href = resolveHref(base, src)
			}
		}
		entry.Children = parseNavPoints(np, base)
		entries = append(entries, entry)
	}
	return entries
}

// FlatTocEntry is a flattened outline node resolved against the spine.
// SpineIndex is -1 when the href does not point at a spine item.
type FlatTocEntry struct {
	Title      string
	Href       string
	Anchor     string
	Level      uint8
	SpineIndex int
}

// FlattenTOC walks the nested outline depth-first, assigning nesting levels
// and resolving each href to its spine index.
func FlattenTOC(toc []TocEntry, spineHrefs []string) []FlatTocEntry {
	byHref := make(map[string]int, len(spineHrefs))
	for i, href := range spineHrefs {
		byHref[href] = i
	}
	var out []FlatTocEntry
	var walk func(entries []TocEntry, level uint8)
	walk = func(entries []TocEntry, level uint8) {
		for _, e := range entries {
			href, anchor := splitHrefAnchor(e.Href)
			spine, ok := byHref[href]
			if !ok {
				spine = -1
			}
			out = append(out, FlatTocEntry{
				Title:      e.Label,
				Href:       href,
				Anchor:     anchor,
				Level:      level,
				SpineIndex: spine,
			})
			if len(e.Children) > 0 {
				next := level
				if next < 255 {
					next++
				}
				walk(e.Children, next)
			}
		}
	}
	walk(toc, 0)
	return out
}
