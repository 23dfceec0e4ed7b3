package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Document.Screen.Width != 480 || cfg.Document.Screen.Height != 800 {
		t.Errorf("Default screen = %dx%d, want 480x800", cfg.Document.Screen.Width, cfg.Document.Screen.Height)
	}
	if len(cfg.Document.FontSizes) != 1 || cfg.Document.FontSizes[0] != 10 {
		t.Errorf("Default font sizes = %v, want [10]", cfg.Document.FontSizes)
	}
	if cfg.Document.OutputNameTemplate != "{{.Title}}" {
		t.Errorf("Default output name template = %q, want %q", cfg.Document.OutputNameTemplate, "{{.Title}}")
	}
	if cfg.Limits.MaxBookBytes != 16777216 || cfg.Limits.MaxPageBytes != 65536 {
		t.Errorf("Default limits = %d/%d", cfg.Limits.MaxBookBytes, cfg.Limits.MaxPageBytes)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
document:
  screen:
    width: 600
    height: 1024
    margin_x: 20
    margin_y: 40
  font_sizes: [12, 16]
  file_name_transliterate: true
limits:
  max_book_bytes: 33554432
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Document.Screen.Width != 600 || cfg.Document.Screen.Height != 1024 {
		t.Errorf("Screen = %dx%d, want 600x1024", cfg.Document.Screen.Width, cfg.Document.Screen.Height)
	}
	if len(cfg.Document.FontSizes) != 2 || cfg.Document.FontSizes[0] != 12 {
		t.Errorf("FontSizes = %v, want [12 16]", cfg.Document.FontSizes)
	}
	if !cfg.Document.FileNameTransliterate {
		t.Error("Expected FileNameTransliterate to be true")
	}
	if cfg.Limits.MaxBookBytes != 33554432 {
		t.Errorf("MaxBookBytes = %d, want 33554432", cfg.Limits.MaxBookBytes)
	}
	// Values absent from the file keep template defaults.
	if cfg.Limits.MaxPageBytes != 65536 {
		t.Errorf("MaxPageBytes = %d, want default 65536", cfg.Limits.MaxPageBytes)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	content := `version: 1
document:
  no_such_option: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"screen too small", "version: 1\ndocument:\n  screen:\n    width: 10\n"},
		{"font size out of range", "version: 1\ndocument:\n  font_sizes: [100]\n"},
		{"page limit too small", "version: 1\nlimits:\n  max_page_bytes: 16\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !strings.Contains(string(data), "version: 1") {
		t.Error("Prepared configuration is missing the version field")
	}
	// The template field must survive processing unexpanded.
	if !strings.Contains(string(data), "{{.Title}}") {
		t.Error("Prepared configuration lost the output name template")
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if !strings.Contains(string(data), "width: 480") {
		t.Error("Dump() output is missing screen width")
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"..dotted", "dotted"},
		{"with/separator", "withseparator"},
		{"", "_bad_file_name_"},
	}
	for _, tt := range tests {
		if got := CleanFileName(tt.in); got != tt.want {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
