package debug

import (
	"bytes"
	"fmt"
	"strconv"
)

// TreeWriter accumulates an indented outline, two spaces per level. The dump
// command uses it to print book headers, TOC trees and glyph summaries.
type TreeWriter struct {
	buf    bytes.Buffer
	indent []byte
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{}
}

func (tw *TreeWriter) String() string {
	return tw.buf.String()
}

func (tw *TreeWriter) prefix(depth int) {
	for len(tw.indent) < depth*2 {
		tw.indent = append(tw.indent, ' ', ' ')
	}
	tw.buf.Write(tw.indent[:depth*2])
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.prefix(depth)
	fmt.Fprintf(&tw.buf, format, args...)
	tw.buf.WriteByte('\n')
}

// TextBlock prints a labeled string value, quoted so control characters in
// book metadata stay visible in the output.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.prefix(depth)
	tw.buf.WriteString(label)
	tw.buf.WriteString(": ")
	tw.buf.WriteString(encodeText(value))
	tw.buf.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
