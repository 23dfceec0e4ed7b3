package book

import (
	"fmt"
	"unicode/utf8"
)

// Page instruction stream: a sequence of (opcode:u8, length:u16le, payload)
// records. Opcode 0x01 places a text run; its payload is x:u16, y:u16,
// style:u8, one reserved byte, then UTF-8 text. Records with unknown opcodes
// are skipped using only the length field, which is what lets newer encoders
// add instructions without breaking deployed readers. Only a payload that
// overruns the stream, a short TextRun payload or invalid UTF-8 are errors.

const (
	opTextRun = 0x01

	opHeaderLen     = 3 // opcode + u16 length
	textRunFixedLen = 6 // x + y + style + reserved
)

// ParsePageOps decodes one page's instruction stream.
func ParsePageOps(data []byte) ([]PageOp, error) {
	var ops []PageOp
	c := newCursor(data)
	for c.remaining() >= opHeaderLen {
		opcode, _ := c.u8()
		length, _ := c.u16()
		payload, err := c.bytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("page op 0x%02x: %w", opcode, err)
		}

		switch opcode {
		case opTextRun:
			op, err := parseTextRun(payload)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		default:
			// Skipped for forward compatibility.
		}
	}
	return ops, nil
}

func parseTextRun(payload []byte) (PageOp, error) {
	if len(payload) < textRunFixedLen {
		return PageOp{}, fmt.Errorf("%w: text run payload too short (%d bytes)", ErrDecode, len(payload))
	}
	p := newCursor(payload)
	x, _ := p.u16()
	y, _ := p.u16()
	style, _ := p.u8()
	_, _ = p.u8() // reserved
	text := payload[textRunFixedLen:]
	if !utf8.Valid(text) {
		return PageOp{}, fmt.Errorf("%w: text run is not valid UTF-8", ErrDecode)
	}
	return PageOp{X: int(x), Y: int(y), Style: StyleID(style), Text: string(text)}, nil
}

// appendTextOp emits one text-run record.
func appendTextOp(dst []byte, x, y uint16, style StyleID, text string) []byte {
	dst = append(dst, opTextRun)
	dst = putU16(dst, uint16(textRunFixedLen+len(text)))
	dst = putU16(dst, x)
	dst = putU16(dst, y)
	dst = append(dst, byte(style), 0)
	return append(dst, text...)
}

// appendPageOps serializes one page: walks its runs recomputing the pen
// position per line using the same advance table wrapping used, emitting one
// text-run record per run. Line breaks move the pen to the next baseline.
func appendPageOps(dst []byte, page PageRuns, layout Layout, advances AdvanceTable) []byte {
	baseline := int(layout.MarginY) + int(layout.Ascent)
	x := layout.MarginX
	for _, run := range page.Runs {
		if run.IsLineBreak() {
			baseline += int(layout.LineHeight)
			x = layout.MarginX
			continue
		}
		dst = appendTextOp(dst, x, uint16(baseline), run.Style.ID(), run.Text)
		advance := advances.Measure(run.Style.ID(), run.Text, int(layout.CharWidth))
		if advance > 0 {
			x += uint16(advance)
		}
	}
	return dst
}
