package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"trbk/book"
)

func TestLoadSet_NoRegular(t *testing.T) {
	if _, _, err := LoadSet(Paths{}); err == nil {
		t.Error("LoadSet() without a regular font succeeded, want error")
	}
}

func TestLoadSet_MissingFile(t *testing.T) {
	if _, _, err := LoadSet(Paths{Regular: filepath.Join(t.TempDir(), "gone.ttf")}); err == nil {
		t.Error("LoadSet() with missing font file succeeded, want error")
	}
}

func TestLoad_NotAFont(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.ttf")
	if err := os.WriteFile(path, []byte("this is not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() of a non-font file succeeded, want error")
	}
}

func TestRegular_RequiresConcreteFace(t *testing.T) {
	if _, err := Regular(book.FontSet{}); err == nil {
		t.Error("Regular() on an empty set succeeded, want error")
	}
}
