package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadInlineValue(t *testing.T) {
	secret, err := Load(Source{Name: "api key", Value: "  s3cret\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "s3cret" {
		t.Fatalf("expected trimmed value, got %q", secret)
	}
}

func TestLoadFileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}

	secret, err := Load(Source{Name: "api key", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "from-file" {
		t.Fatalf("expected file value, got %q", secret)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Source{Name: "api key", File: filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if !strings.Contains(err.Error(), "api key") {
		t.Fatalf("error should name the secret: %v", err)
	}
}

func TestLoadEmptySources(t *testing.T) {
	if _, err := Load(Source{Name: "api key"}); err == nil {
		t.Fatalf("expected an error when nothing is configured")
	}

	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}
	if _, err := Load(Source{Name: "api key", File: path}); err == nil {
		t.Fatalf("expected an error for an empty secret file")
	}
}
