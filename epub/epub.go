// Package epub extracts styled text runs, reading order and navigation from
// EPUB 2 and 3 files. It is the source side of the book conversion pipeline:
// everything downstream works on the runs, spine and flattened TOC produced
// here.
package epub

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"trbk/archive"
)

const containerPath = "META-INF/container.xml"

// Metadata is the subset of Dublin Core fields the book format carries.
type Metadata struct {
	Title      string
	Creator    string
	Language   string
	Identifier string
}

// ManifestItem is one entry of the OPF manifest.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem references a manifest item in reading order.
type SpineItem struct {
	IDRef  string
	Linear bool
}

// Package is the parsed OPF package document.
type Package struct {
	Metadata  Metadata
	Manifest  []ManifestItem
	Spine     []SpineItem
	NavHref   string
	TocHref   string
	CoverHref string
	OpfPath   string
	opfDir    string
}

// TocEntry is one node of the source document's nested outline.
type TocEntry struct {
	Label    string
	Href     string
	Children []TocEntry
}

// Book is an opened EPUB: its package document, nested TOC and resolved
// spine hrefs. Content documents are read on demand through SpineXHTML.
type Book struct {
	Path       string
	Package    Package
	TOC        []TocEntry
	SpineHrefs []string
}

// Open reads and parses the container, package document and table of
// contents. A broken or missing TOC is tolerated (navigation degrades), a
// broken package document is not.
func Open(epubPath string, log *zap.Logger) (*Book, error) {
	containerXML, err := archive.ReadFile(epubPath, containerPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", containerPath, err)
	}
	rootfile, err := parseContainer(containerXML)
	if err != nil {
		return nil, err
	}

	opfXML, err := archive.ReadFile(epubPath, rootfile)
	if err != nil {
		return nil, fmt.Errorf("read package document %q: %w", rootfile, err)
	}
	pkg, err := parseOPF(opfXML, rootfile)
	if err != nil {
		return nil, err
	}

	var toc []TocEntry
	switch {
	case pkg.NavHref != "":
		navPath := resolveHref(pkg.opfDir, pkg.NavHref)
		if data, err := archive.ReadFile(epubPath, navPath); err == nil {
			if toc, err = parseNavTOC(data, baseDir(navPath)); err != nil {
				log.Warn("Ignoring unparsable EPUB3 nav document", zap.String("href", navPath), zap.Error(err))
				toc = nil
			}
		}
	case pkg.TocHref != "":
		ncxPath := resolveHref(pkg.opfDir, pkg.TocHref)
		if data, err := archive.ReadFile(epubPath, ncxPath); err == nil {
			if toc, err = parseNCXTOC(data, baseDir(ncxPath)); err != nil {
				log.Warn("Ignoring unparsable NCX document", zap.String("href", ncxPath), zap.Error(err))
				toc = nil
			}
		}
	}

	return &Book{
		Path:       epubPath,
		Package:    *pkg,
		TOC:        toc,
		SpineHrefs: spineHrefs(pkg),
	}, nil
}

// SpineXHTML reads the content document of one spine item.
func (b *Book) SpineXHTML(index int) ([]byte, error) {
	if index < 0 || index >= len(b.SpineHrefs) {
		return nil, fmt.Errorf("spine index %d out of range (%d items)", index, len(b.SpineHrefs))
	}
	return archive.ReadFile(b.Path, b.SpineHrefs[index])
}

func parseContainer(data []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", fmt.Errorf("parse container.xml: %w", err)
	}
	for _, el := range doc.FindElements("//rootfile") {
		if p := el.SelectAttrValue("full-path", ""); p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("container.xml declares no rootfile")
}

func parseOPF(data []byte, opfPath string) (*Package, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse package document: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "package" {
		return nil, fmt.Errorf("package document has no package root")
	}

	pkg := &Package{OpfPath: opfPath, opfDir: baseDir(opfPath)}
	var coverID, spineTocID string

	if meta := root.SelectElement("metadata"); meta != nil {
		for _, el := range meta.ChildElements() {
			text := strings.TrimSpace(el.Text())
			switch el.Tag {
			case "title":
				if pkg.Metadata.Title == "" {
					pkg.Metadata.Title = text
				}
			case "creator":
				if pkg.Metadata.Creator == "" {
					pkg.Metadata.Creator = text
				}
			case "language":
				if pkg.Metadata.Language == "" {
					pkg.Metadata.Language = text
				}
			case "identifier":
				if pkg.Metadata.Identifier == "" {
					pkg.Metadata.Identifier = text
				}
			case "meta":
				if el.SelectAttrValue("name", "") == "cover" ||
					el.SelectAttrValue("property", "") == "cover-image" {
					coverID = el.SelectAttrValue("content", "")
				}
			}
		}
	}

	if manifest := root.SelectElement("manifest"); manifest != nil {
		for _, el := range manifest.SelectElements("item") {
			item := ManifestItem{
				ID:        el.SelectAttrValue("id", ""),
				Href:      el.SelectAttrValue("href", ""),
				MediaType: el.SelectAttrValue("media-type", ""),
			}
			if props := el.SelectAttrValue("properties", ""); props != "" {
				item.Properties = strings.Fields(props)
			}
			for _, p := range item.Properties {
				switch p {
				case "nav":
					pkg.NavHref = item.Href
				case "cover-image":
					if pkg.CoverHref == "" {
						pkg.CoverHref = item.Href
					}
				}
			}
			pkg.Manifest = append(pkg.Manifest, item)
		}
	}

	if spine := root.SelectElement("spine"); spine != nil {
		spineTocID = spine.SelectAttrValue("toc", "")
		for _, el := range spine.SelectElements("itemref") {
			pkg.Spine = append(pkg.Spine, SpineItem{
				IDRef:  el.SelectAttrValue("idref", ""),
				Linear: el.SelectAttrValue("linear", "") != "no",
			})
		}
	}

	if spineTocID != "" {
		if item := pkg.findManifest(spineTocID); item != nil {
			pkg.TocHref = item.Href
		}
	}
	if coverID != "" && pkg.CoverHref == "" {
		if item := pkg.findManifest(coverID); item != nil {
			pkg.CoverHref = item.Href
		}
	}
	return pkg, nil
}

func (p *Package) findManifest(id string) *ManifestItem {
	for i := range p.Manifest {
		if p.Manifest[i].ID == id {
			return &p.Manifest[i]
		}
	}
	return nil
}

func spineHrefs(pkg *Package) []string {
	byID := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		byID[item.ID] = item.Href
	}
	hrefs := make([]string, 0, len(pkg.Spine))
	for _, item := range pkg.Spine {
		if href, ok := byID[item.IDRef]; ok {
			hrefs = append(hrefs, resolveHref(pkg.opfDir, href))
		}
	}
	return hrefs
}

func baseDir(p string) string {
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[:idx+1]
	}
	return ""
}

func resolveHref(base, href string) string {
	if strings.Contains(href, "://") || base == "" {
		return href
	}
	return path.Clean(base + href)
}

func splitHrefAnchor(href string) (string, string) {
	if idx := strings.IndexByte(href, '#'); idx >= 0 {
		return href[:idx], href[idx+1:]
	}
	return href, ""
}
