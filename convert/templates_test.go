package convert

import (
	"testing"

	"trbk/config"
	"trbk/epub"
)

func TestBuildValues(t *testing.T) {
	meta := epub.Metadata{
		Title:      "War and Peace",
		Creator:    "Leo Tolstoy",
		Language:   "ru",
		Identifier: "urn:isbn:123",
	}

	v := buildValues(config.OutputNameTemplateFieldName, meta, "/books/war_and_peace.epub", "Literata", 12)
	if v.Context != string(config.OutputNameTemplateFieldName) {
		t.Errorf("Context = %q, want %q", v.Context, config.OutputNameTemplateFieldName)
	}
	if v.Title != "War and Peace" || v.Author != "Leo Tolstoy" || v.Language != "ru" || v.Identifier != "urn:isbn:123" {
		t.Errorf("metadata values = %+v", v)
	}
	if v.SourceFile != "war_and_peace" {
		t.Errorf("SourceFile = %q, want extension stripped base name", v.SourceFile)
	}
	if v.FontName != "Literata" || v.Size != 12 {
		t.Errorf("FontName/Size = %q/%d", v.FontName, v.Size)
	}
}

func TestExpandTemplate(t *testing.T) {
	values := Values{Title: "Test Book", Author: "John Doe", Size: 14}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"plain fields", "{{.Author}} - {{.Title}}", "John Doe - Test Book", false},
		{"sprig function", "{{ lower .Title }}", "test book", false},
		{"size value", "{{.Title}}-{{.Size}}", "Test Book-14", false},
		{"parse error", "{{.Title", "", true},
		{"missing field", "{{.Bogus}}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(config.OutputNameTemplateFieldName, tt.template, values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want && !tt.wantErr {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}
