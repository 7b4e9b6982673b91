// Package extract turns candidate and opportunity documents into plain
// text. Supported formats: .txt, .docx and .pdf (the latter through the
// poppler pdftotext tool).
package extract

import (
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// supportedFormats is the whitelist of file extensions the monitor accepts.
var supportedFormats = map[string]bool{
	".txt":  true,
	".docx": true,
	".pdf":  true,
}

// UnsupportedFormatError reports a file extension outside the whitelist.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %s: %s", e.Ext, filepath.Base(e.Path))
}

// FileReadError reports a failure to read or extract text from a supported
// file.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// Supported reports whether the file extension is in the whitelist.
func Supported(path string) bool {
	return supportedFormats[strings.ToLower(filepath.Ext(path))]
}

// Text extracts the plain-text content of a document. It fails with
// *UnsupportedFormatError for unknown extensions and *FileReadError for
// anything that goes wrong with a supported file.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return "", &UnsupportedFormatError{Path: path, Ext: ext}
	}

	switch ext {
	case ".txt":
		return readTxt(path)
	case ".docx":
		return readDocx(path)
	default:
		return readPDF(path)
	}
}

func readTxt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FileReadError{Path: path, Err: err}
	}
	return string(data), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
)

func readDocx(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", &FileReadError{Path: path, Err: err}
	}
	defer doc.Close()

	content := doc.Editable().GetContent()

	// The editable content is WordprocessingML. Paragraph boundaries become
	// newlines, every other tag is dropped.
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := make([]string, 0)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	text := strings.Join(lines, "\n")
	if text == "" {
		return "", &FileReadError{Path: path, Err: fmt.Errorf("document contains no text")}
	}
	return text, nil
}

func readPDF(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", &FileReadError{Path: path, Err: err}
	}

	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", &FileReadError{Path: path, Err: fmt.Errorf("pdftotext (install poppler-utils): %w", err)}
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", &FileReadError{Path: path, Err: fmt.Errorf("no text extracted")}
	}
	return text, nil
}
