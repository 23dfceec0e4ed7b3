package book

import (
	"errors"
	"testing"
)

func textRunRecord(x, y uint16, style StyleID, text string) []byte {
	return appendTextOp(nil, x, y, style, text)
}

func TestParsePageOps_TextRuns(t *testing.T) {
	var data []byte
	data = append(data, textRunRecord(16, 74, StyleRegular, "Hi")...)
	data = append(data, textRunRecord(40, 74, StyleBold, "there")...)

	ops, err := ParsePageOps(data)
	if err != nil {
		t.Fatalf("ParsePageOps() error = %v", err)
	}
	want := []PageOp{
		{X: 16, Y: 74, Style: StyleRegular, Text: "Hi"},
		{X: 40, Y: 74, Style: StyleBold, Text: "there"},
	}
	if len(ops) != len(want) {
		t.Fatalf("ParsePageOps() decoded %d ops, want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestParsePageOps_SkipsUnknownOpcodes(t *testing.T) {
	var data []byte
	data = append(data, 0xFE, 3, 0, 1, 2, 3) // unknown, 3-byte payload
	data = append(data, textRunRecord(0, 0, StyleRegular, "ok")...)

	ops, err := ParsePageOps(data)
	if err != nil {
		t.Fatalf("ParsePageOps() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Text != "ok" {
		t.Errorf("ParsePageOps() = %+v, want the single %q run", ops, "ok")
	}
}

func TestParsePageOps_IgnoresTrailingBytes(t *testing.T) {
	data := append(textRunRecord(0, 0, StyleRegular, "x"), 0x01, 0x05)
	ops, err := ParsePageOps(data)
	if err != nil {
		t.Fatalf("ParsePageOps() error = %v", err)
	}
	if len(ops) != 1 {
		t.Errorf("ParsePageOps() decoded %d ops, want 1", len(ops))
	}
}

func TestParsePageOps_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"payload overruns stream", []byte{0x01, 0xFF, 0x00, 1, 2}},
		{"text run payload too short", []byte{0x01, 4, 0, 1, 2, 3, 4}},
		{"invalid utf8 text", append([]byte{0x01, 7, 0}, 0, 0, 0, 0, 0, 0, 0xFF)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePageOps(tt.data); !errors.Is(err, ErrDecode) {
				t.Errorf("ParsePageOps() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestParsePageOps_Empty(t *testing.T) {
	ops, err := ParsePageOps(nil)
	if err != nil {
		t.Fatalf("ParsePageOps(nil) error = %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("ParsePageOps(nil) decoded %d ops, want 0", len(ops))
	}
}

func TestAppendPageOps_PenPositions(t *testing.T) {
	// testLayout: MarginX 10, MarginY 20, Ascent 14, LineHeight 20, CharWidth 10.
	layout := testLayout()
	page := PageRuns{Runs: []TextRun{
		{Text: "ab"},
		{Text: " "},
		{Text: "cd"},
		lineBreak,
		{Text: "ef"},
	}}

	ops, err := ParsePageOps(appendPageOps(nil, page, layout, nil))
	if err != nil {
		t.Fatalf("ParsePageOps() error = %v", err)
	}
	want := []PageOp{
		{X: 10, Y: 34, Text: "ab"},
		{X: 30, Y: 34, Text: " "},
		{X: 40, Y: 34, Text: "cd"},
		{X: 10, Y: 54, Text: "ef"},
	}
	if len(ops) != len(want) {
		t.Fatalf("decoded %d ops, want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestAppendPageOps_UsesAdvanceTable(t *testing.T) {
	layout := testLayout()
	advances := AdvanceTable{AdvanceKey{StyleRegular, 'w'}: 40}
	page := PageRuns{Runs: []TextRun{
		{Text: "w"},
		{Text: "x"},
	}}

	ops, err := ParsePageOps(appendPageOps(nil, page, layout, advances))
	if err != nil {
		t.Fatalf("ParsePageOps() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("decoded %d ops, want 2", len(ops))
	}
	if ops[1].X != 50 {
		t.Errorf("second op x = %d, want 50 (10 margin + 40 advance)", ops[1].X)
	}
}
