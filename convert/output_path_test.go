package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"trbk/config"
	"trbk/epub"
	"trbk/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Document.FileNameTransliterate = transliterate
	cfg.Document.OutputNameTemplate = template

	return &state.LocalEnv{
		Log:      logger,
		Cfg:      cfg,
		NoDirs:   noDirs,
		FontName: "TestFont",
	}
}

func testMeta() epub.Metadata {
	return epub.Metadata{
		Title:      "Test Book",
		Creator:    "John Doe",
		Language:   "en",
		Identifier: "test-book-id",
	}
}

func TestBuildOutputPath_SimpleCase_NoDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")

	result := buildOutputPath(testMeta(), "books/author/book.epub", "/output", 10, false, env)
	expected := filepath.Join("/output", "book.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_SimpleCase_WithDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, false, "")

	result := buildOutputPath(testMeta(), "books/author/book.epub", "/output", 10, false, env)
	expected := filepath.Join("/output", "books", "author", "book.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_MultiSizeSuffix(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")

	result := buildOutputPath(testMeta(), "book.epub", "/output", 14, true, env)
	expected := filepath.Join("/output", "book-14.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Template(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "{{.Title}}")

	result := buildOutputPath(testMeta(), "book.epub", "/output", 10, false, env)
	expected := filepath.Join("/output", "Test Book.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_TemplateWithSubdirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "{{.Author}}/{{.Title}}")

	result := buildOutputPath(testMeta(), "book.epub", "/output", 10, false, env)
	expected := filepath.Join("/output", "John Doe", "Test Book.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, true, "{{.Title}}")

	meta := testMeta()
	meta.Title = "Тестовая Книга"
	result := buildOutputPath(meta, "book.epub", "/output", 10, false, env)
	expected := filepath.Join("/output", "testovaya-kniga.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_BadTemplateFallsBack(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "{{.NoSuchField}}")

	result := buildOutputPath(testMeta(), "book.epub", "/output", 10, false, env)
	expected := filepath.Join("/output", "book.trbk")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestSizeSuffix(t *testing.T) {
	if got := sizeSuffix(12, false); got != "" {
		t.Errorf("sizeSuffix(12, false) = %q, want empty", got)
	}
	if got := sizeSuffix(12, true); got != "-12" {
		t.Errorf("sizeSuffix(12, true) = %q, want %q", got, "-12")
	}
}
