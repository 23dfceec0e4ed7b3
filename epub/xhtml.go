package epub

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"trbk/book"
)

// BlockKind discriminates the block-level content extracted from a spine
// document.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockPageBreak
	BlockImage
)

// Block is one block-level unit of a spine document: a paragraph of styled
// runs, a printed-page break marker, or an image placeholder.
type Block struct {
	Kind    BlockKind
	Runs    []book.TextRun
	Heading uint8 // 1..6 for headings, 0 otherwise
	Alt     string
}

// blockParser accumulates normalized text into styled runs and runs into
// paragraph blocks while the tokenizer walks the document.
type blockParser struct {
	blocks       []Block
	runs         []book.TextRun
	text         strings.Builder
	style        book.Style
	heading      uint8
	lastWasSpace bool
}

// ParseBlocks tokenizes a spine XHTML document into block-level content.
// Inline b/strong/i/em toggles carry the style, block tags and explicit
// breaks delimit paragraphs, and everything inside head is ignored.
func ParseBlocks(data []byte) ([]Block, error) {
	z := html.NewTokenizer(strings.NewReader(string(data)))
	p := &blockParser{}
	inBody := true
	inHead := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("tokenize xhtml: %w", err)
			}
			p.flushParagraph()
			return p.blocks, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			name := localName(tok.Data)
			switch name {
			case "head":
				if tok.Type == html.StartTagToken {
					inHead = true
				}
				continue
			case "body":
				inBody = true
				continue
			}
			if inHead || !inBody {
				continue
			}
			switch {
			case isBlockTag(name):
				p.flushParagraph()
				p.heading = headingLevel(name)
				p.lastWasSpace = false
			case name == "br":
				p.flushParagraph()
				p.heading = 0
				p.lastWasSpace = false
			case name == "img":
				p.flushParagraph()
				p.blocks = append(p.blocks, Block{Kind: BlockImage, Alt: attrValue(tok, "alt")})
				p.heading = 0
				p.lastWasSpace = false
			case name == "b", name == "strong":
				p.flushRun()
				p.style.Bold = true
			case name == "i", name == "em":
				p.flushRun()
				p.style.Italic = true
			case isPageBreak(tok):
				p.flushParagraph()
				p.blocks = append(p.blocks, Block{Kind: BlockPageBreak})
				p.heading = 0
				p.lastWasSpace = false
			}

		case html.EndTagToken:
			tok := z.Token()
			name := localName(tok.Data)
			switch name {
			case "head":
				inHead = false
				continue
			case "body":
				p.flushParagraph()
				inBody = false
				continue
			}
			if inHead || !inBody {
				continue
			}
			switch {
			case isBlockTag(name):
				p.flushParagraph()
				p.heading = 0
				p.lastWasSpace = false
			case name == "b", name == "strong":
				p.flushRun()
				p.style.Bold = false
			case name == "i", name == "em":
				p.flushRun()
				p.style.Italic = false
			}

		case html.TextToken:
			if inHead || !inBody {
				continue
			}
			p.pushText(string(z.Text()))
		}
	}
}

// pushText appends text with runs of whitespace collapsed to single spaces.
func (p *blockParser) pushText(s string) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !p.lastWasSpace {
				p.text.WriteByte(' ')
				p.lastWasSpace = true
			}
		} else {
			p.text.WriteRune(r)
			p.lastWasSpace = false
		}
	}
}

// flushRun closes the pending text at a style boundary, dropping the
// trailing space so it does not stick to the styled run.
func (p *blockParser) flushRun() {
	if p.text.Len() == 0 {
		return
	}
	text := p.text.String()
	p.text.Reset()
	if p.lastWasSpace {
		text = strings.TrimRight(text, " ")
		p.lastWasSpace = false
	}
	if text != "" {
		p.runs = append(p.runs, book.TextRun{Text: text, Style: p.style})
	}
}

func (p *blockParser) flushParagraph() {
	if p.text.Len() > 0 {
		p.runs = append(p.runs, book.TextRun{Text: p.text.String(), Style: p.style})
		p.text.Reset()
	}
	if len(p.runs) == 0 {
		return
	}
	merged := make([]book.TextRun, 0, len(p.runs))
	for _, run := range p.runs {
		if n := len(merged); n > 0 && merged[n-1].Style == run.Style {
			merged[n-1].Text += run.Text
			continue
		}
		merged = append(merged, run)
	}
	p.runs = nil
	p.blocks = append(p.blocks, Block{Kind: BlockParagraph, Runs: merged, Heading: p.heading})
}

// BlockRuns lowers blocks to a flat run sequence for line wrapping. Every
// block ends with a bare "\n" run so the wrapper starts a fresh line at
// each paragraph boundary.
func BlockRuns(blocks []Block) []book.TextRun {
	var runs []book.TextRun
	newline := book.TextRun{Text: "\n"}
	for _, b := range blocks {
		switch b.Kind {
		case BlockParagraph:
			runs = append(runs, b.Runs...)
			runs = append(runs, newline)
		case BlockImage:
			runs = append(runs, book.TextRun{Text: "[Image: " + imageLabel(b.Alt) + "]"}, newline)
		case BlockPageBreak:
			runs = append(runs, newline)
		}
	}
	return runs
}

// PlainText renders blocks as paragraph-separated text for the text dump.
func PlainText(blocks []Block) string {
	var out strings.Builder
	for i, b := range blocks {
		switch b.Kind {
		case BlockParagraph:
			if i > 0 && !strings.HasSuffix(out.String(), "\n") {
				out.WriteByte('\n')
			}
			var line strings.Builder
			for _, run := range b.Runs {
				line.WriteString(run.Text)
			}
			out.WriteString(strings.TrimSpace(line.String()))
			out.WriteString("\n\n")
		case BlockPageBreak:
			out.WriteString("\n\n")
		case BlockImage:
			fmt.Fprintf(&out, "[Image: %s]\n\n", imageLabel(b.Alt))
		}
	}
	return out.String()
}

func imageLabel(alt string) string {
	if alt == "" {
		return "image"
	}
	return alt
}

// localName strips the namespace prefix XHTML documents sometimes carry.
func localName(name string) string {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func isBlockTag(name string) bool {
	switch name {
	case "p", "div", "li", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func headingLevel(name string) uint8 {
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return name[1] - '0'
	}
	return 0
}

func isPageBreak(tok html.Token) bool {
	return attrValue(tok, "epub:type") == "pagebreak" || attrValue(tok, "role") == "doc-pagebreak"
}

func attrValue(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
