package epub

import (
	"testing"

	"trbk/book"
)

func parseOne(t *testing.T, doc string) []Block {
	t.Helper()
	blocks, err := ParseBlocks([]byte(doc))
	if err != nil {
		t.Fatalf("ParseBlocks() error = %v", err)
	}
	return blocks
}

func blockText(b Block) string {
	var s string
	for _, r := range b.Runs {
		s += r.Text
	}
	return s
}

func TestParseBlocks_StyledParagraph(t *testing.T) {
	blocks := parseOne(t, `<p>Hello <b>bold</b> world</p>`)
	if len(blocks) != 1 {
		t.Fatalf("ParseBlocks() = %+v, want 1 block", blocks)
	}
	want := []book.TextRun{
		{Text: "Hello"},
		{Text: "bold", Style: book.Style{Bold: true}},
		{Text: " world"},
	}
	got := blocks[0].Runs
	if len(got) != len(want) {
		t.Fatalf("runs = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseBlocks_NestedStyles(t *testing.T) {
	blocks := parseOne(t, `<p><em>one <strong>two</strong></em></p>`)
	if len(blocks) != 1 {
		t.Fatalf("ParseBlocks() = %+v, want 1 block", blocks)
	}
	runs := blocks[0].Runs
	if len(runs) != 2 {
		t.Fatalf("runs = %+v, want 2", runs)
	}
	if runs[0].Style != (book.Style{Italic: true}) {
		t.Errorf("run 0 style = %+v, want italic", runs[0].Style)
	}
	if runs[1].Style != (book.Style{Bold: true, Italic: true}) {
		t.Errorf("run 1 style = %+v, want bold italic", runs[1].Style)
	}
}

func TestParseBlocks_HeadingLevel(t *testing.T) {
	blocks := parseOne(t, `<h2>Title</h2><p>Body</p>`)
	if len(blocks) != 2 {
		t.Fatalf("ParseBlocks() = %+v, want 2 blocks", blocks)
	}
	if blocks[0].Heading != 2 || blockText(blocks[0]) != "Title" {
		t.Errorf("block 0 = %+v, want h2 title", blocks[0])
	}
	if blocks[1].Heading != 0 {
		t.Errorf("block 1 heading = %d, want 0", blocks[1].Heading)
	}
}

func TestParseBlocks_LineBreakSplitsParagraph(t *testing.T) {
	blocks := parseOne(t, `<p>one<br/>two</p>`)
	if len(blocks) != 2 {
		t.Fatalf("ParseBlocks() = %+v, want 2 blocks", blocks)
	}
	if blockText(blocks[0]) != "one" || blockText(blocks[1]) != "two" {
		t.Errorf("blocks = %q / %q, want one / two", blockText(blocks[0]), blockText(blocks[1]))
	}
}

func TestParseBlocks_ImageAndPageBreak(t *testing.T) {
	blocks := parseOne(t, `<p>before</p><img src="map.png" alt="Map"/><span epub:type="pagebreak" id="page5"></span><p>after</p>`)
	if len(blocks) != 4 {
		t.Fatalf("ParseBlocks() = %+v, want 4 blocks", blocks)
	}
	if blocks[1].Kind != BlockImage || blocks[1].Alt != "Map" {
		t.Errorf("block 1 = %+v, want image with alt", blocks[1])
	}
	if blocks[2].Kind != BlockPageBreak {
		t.Errorf("block 2 = %+v, want page break", blocks[2])
	}
}

func TestParseBlocks_SkipsHead(t *testing.T) {
	blocks := parseOne(t, `<html><head><title>Skip</title><style>p { color: red }</style></head><body><p>Text</p></body></html>`)
	if len(blocks) != 1 || blockText(blocks[0]) != "Text" {
		t.Errorf("ParseBlocks() = %+v, want only body text", blocks)
	}
}

func TestParseBlocks_CollapsesWhitespace(t *testing.T) {
	blocks := parseOne(t, "<p>a\n\t   b\n\nc</p>")
	if len(blocks) != 1 || blockText(blocks[0]) != "a b c" {
		t.Errorf("ParseBlocks() = %q, want %q", blockText(blocks[0]), "a b c")
	}
}

func TestParseBlocks_MergesAdjacentSameStyleRuns(t *testing.T) {
	blocks := parseOne(t, `<p>a<b></b>b</p>`)
	if len(blocks) != 1 {
		t.Fatalf("ParseBlocks() = %+v, want 1 block", blocks)
	}
	if len(blocks[0].Runs) != 1 || blocks[0].Runs[0].Text != "ab" {
		t.Errorf("runs = %+v, want single merged run", blocks[0].Runs)
	}
}

func TestBlockRuns(t *testing.T) {
	blocks := []Block{
		{Kind: BlockParagraph, Runs: []book.TextRun{{Text: "para"}}},
		{Kind: BlockImage, Alt: "Map"},
		{Kind: BlockPageBreak},
	}

	runs := BlockRuns(blocks)
	want := []string{"para", "\n", "[Image: Map]", "\n", "\n"}
	if len(runs) != len(want) {
		t.Fatalf("BlockRuns() = %+v, want %d runs", runs, len(want))
	}
	for i, w := range want {
		if runs[i].Text != w {
			t.Errorf("run %d = %q, want %q", i, runs[i].Text, w)
		}
	}
}

func TestPlainText(t *testing.T) {
	blocks := []Block{
		{Kind: BlockParagraph, Runs: []book.TextRun{{Text: " Intro "}}},
		{Kind: BlockImage},
	}
	got := PlainText(blocks)
	want := "Intro\n\n[Image: image]\n\n"
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}
