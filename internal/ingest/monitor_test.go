package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"talentmatch/internal/store"
)

func newTestMonitor(t *testing.T) (*Monitor, *store.Store, string, string) {
	t.Helper()

	st, err := store.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	base := t.TempDir()
	candidatesDir := filepath.Join(base, "resumes")
	opportunitiesDir := filepath.Join(base, "jobs")

	m, err := New(st, candidatesDir, opportunitiesDir, zap.NewNop())
	if err != nil {
		t.Fatalf("creating monitor: %v", err)
	}
	return m, st, candidatesDir, opportunitiesDir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestScanCandidatesRegistersOnlyNewFiles(t *testing.T) {
	m, st, candidatesDir, _ := newTestMonitor(t)

	writeFile(t, candidatesDir, "alice.txt", "Alice\nalice@example.com\nPhone: 555 123 4567")
	writeFile(t, candidatesDir, "bob.txt", "Bob, Go developer")
	writeFile(t, candidatesDir, "notes.md", "unsupported, must be ignored")

	ids, err := m.ScanCandidates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 new candidates, got %v", ids)
	}

	// A second scan finds nothing new.
	again, err := m.ScanCandidates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no new candidates, got %v", again)
	}

	// A later drop is picked up without re-registering the old ones.
	writeFile(t, candidatesDir, "carol.txt", "Carol")
	third, err := m.ScanCandidates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(third) != 1 {
		t.Fatalf("expected 1 new candidate, got %v", third)
	}

	all, err := st.ListCandidates()
	if err != nil {
		t.Fatalf("listing candidates: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 candidates total, got %d", len(all))
	}
}

func TestScanCandidatesBackfillsContact(t *testing.T) {
	m, st, candidatesDir, _ := newTestMonitor(t)

	writeFile(t, candidatesDir, "alice.txt", "Alice Smith\nEmail: alice@example.com\nPhone: 555-123-4567\nExperienced tutor")

	ids, err := m.ScanCandidates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one candidate, got %v", ids)
	}

	c, err := st.GetCandidate(ids[0])
	if err != nil {
		t.Fatalf("getting candidate: %v", err)
	}
	if c.Email != "alice@example.com" {
		t.Fatalf("expected email back-filled, got %q", c.Email)
	}
	if c.Phone == "" {
		t.Fatalf("expected phone back-filled")
	}
}

func TestScanSkipsUnreadableFiles(t *testing.T) {
	m, _, candidatesDir, _ := newTestMonitor(t)

	writeFile(t, candidatesDir, "bad.txt", "irrelevant")
	writeFile(t, candidatesDir, "good.txt", "a fine resume")

	m.extractText = func(path string) (string, error) {
		if strings.HasSuffix(path, "bad.txt") {
			return "", fmt.Errorf("boom")
		}
		return "a fine resume", nil
	}

	ids, err := m.ScanCandidates()
	if err != nil {
		t.Fatalf("a single bad file must not abort the scan: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected only the readable file registered, got %v", ids)
	}
}

func TestScanOpportunitiesDerivesTitle(t *testing.T) {
	m, st, _, opportunitiesDir := newTestMonitor(t)

	writeFile(t, opportunitiesDir, "math_tutor.txt", "Position: Math Tutor\nWe need a part-time tutor for grades 9-12.")

	ids, err := m.ScanOpportunities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one opportunity, got %v", ids)
	}

	o, err := st.GetOpportunity(ids[0])
	if err != nil {
		t.Fatalf("getting opportunity: %v", err)
	}
	if o.PositionTitle != "Math Tutor" {
		t.Fatalf("expected title from the label line, got %q", o.PositionTitle)
	}
}

func TestScanAll(t *testing.T) {
	m, _, candidatesDir, opportunitiesDir := newTestMonitor(t)

	writeFile(t, candidatesDir, "a.txt", "resume a")
	writeFile(t, opportunitiesDir, "r.txt", "Role: Backend Engineer")

	candidateIDs, opportunityIDs, err := m.ScanAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidateIDs) != 1 || len(opportunityIDs) != 1 {
		t.Fatalf("expected one of each, got %v / %v", candidateIDs, opportunityIDs)
	}
}

func TestTitleFromText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		filename string
		want     string
	}{
		{
			name:     "label line",
			text:     "Company: Acme\nPosition: Senior Go Engineer\nLocation: Remote",
			filename: "x.txt",
			want:     "Senior Go Engineer",
		},
		{
			name:     "label is case-insensitive",
			text:     "JOB TITLE: Data Analyst",
			filename: "x.txt",
			want:     "Data Analyst",
		},
		{
			name:     "label outside the first ten lines is ignored",
			text:     strings.Repeat("filler\n", 12) + "Position: Hidden Role",
			filename: "x.txt",
			want:     "filler",
		},
		{
			name:     "first non-empty line fallback",
			text:     "\n\nEnglish Tutor Needed\nmore text",
			filename: "x.txt",
			want:     "English Tutor Needed",
		},
		{
			name:     "filename fallback",
			text:     "",
			filename: "science_tutor_position.txt",
			want:     "science tutor position",
		},
		{
			name:     "long title truncated",
			text:     "Position: " + strings.Repeat("a", 150),
			filename: "x.txt",
			want:     strings.Repeat("a", 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleFromText(tt.text, tt.filename); got != tt.want {
				t.Fatalf("TitleFromText() = %q, want %q", got, tt.want)
			}
		})
	}
}
