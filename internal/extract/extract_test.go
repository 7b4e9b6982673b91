package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"resume.txt", true},
		{"resume.TXT", true},
		{"resume.docx", true},
		{"resume.pdf", true},
		{"resume.doc", false},
		{"resume.md", false},
		{"resume", false},
	}

	for _, tt := range tests {
		if got := Supported(tt.path); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTextUnsupportedFormat(t *testing.T) {
	_, err := Text("notes.md")

	var ferr *UnsupportedFormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if ferr.Ext != ".md" {
		t.Fatalf("expected .md extension in error, got %q", ferr.Ext)
	}
}

func TestTextReadsTxt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	content := "John Doe\nGo developer\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	text, err := Text(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != content {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTextMissingFile(t *testing.T) {
	_, err := Text(filepath.Join(t.TempDir(), "absent.txt"))

	var ferr *FileReadError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FileReadError, got %v", err)
	}
}

func TestTextMissingPDF(t *testing.T) {
	_, err := Text(filepath.Join(t.TempDir(), "absent.pdf"))

	var ferr *FileReadError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FileReadError, got %v", err)
	}
}

func TestTextCorruptDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err := Text(path)
	var ferr *FileReadError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FileReadError, got %v", err)
	}
}
