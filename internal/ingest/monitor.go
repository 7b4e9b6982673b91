// Package ingest watches the candidate and opportunity drop directories and
// registers files the store has not seen before.
package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"talentmatch/internal/extract"
	"talentmatch/internal/store"
	"talentmatch/internal/textproc"
)

const maxTitleRunes = 100

// titleLabels are scanned in the first lines of an opportunity document to
// find a "label: value" position title.
var titleLabels = []string{"position:", "role:", "title:", "job title:"}

// Monitor diffs the input directories against the store by source filename
// and registers genuinely new items. It is the only writer of candidate and
// opportunity records.
type Monitor struct {
	store             *store.Store
	candidatesDir     string
	opportunitiesDir  string
	logger            *zap.Logger

	// extractText is swappable in tests.
	extractText func(path string) (string, error)
}

func New(st *store.Store, candidatesDir, opportunitiesDir string, logger *zap.Logger) (*Monitor, error) {
	for _, dir := range []string{candidatesDir, opportunitiesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return &Monitor{
		store:            st,
		candidatesDir:    candidatesDir,
		opportunitiesDir: opportunitiesDir,
		logger:           logger,
		extractText:      extract.Text,
	}, nil
}

// ScanCandidates registers every supported, previously unseen file in the
// candidates directory and returns the newly assigned ids. A single file's
// failure is logged and skipped; storage failures abort the scan.
func (m *Monitor) ScanCandidates() ([]int, error) {
	existing, err := m.store.ListCandidates()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.SourceFilename] = true
	}

	files, err := m.listSupported(m.candidatesDir)
	if err != nil {
		return nil, err
	}

	m.logger.Info("scanning candidates directory",
		zap.String("dir", m.candidatesDir),
		zap.Int("files", len(files)),
	)

	var newIDs []int
	for _, path := range files {
		name := filepath.Base(path)
		if known[name] {
			m.logger.Debug("already registered", zap.String("filename", name))
			continue
		}

		text, err := m.extractText(path)
		if err != nil {
			m.logger.Error("failed to read candidate file",
				zap.String("filename", name),
				zap.Error(err),
			)
			continue
		}

		id, err := m.store.RegisterCandidate(name, text)
		if err != nil {
			var serr *store.StorageError
			if errors.As(err, &serr) {
				return newIDs, err
			}
			m.logger.Error("failed to register candidate",
				zap.String("filename", name),
				zap.Error(err),
			)
			continue
		}

		email := textproc.FindEmail(text)
		phone := textproc.FindPhone(text)
		if email != "" || phone != "" {
			if err := m.store.SetCandidateContact(id, email, phone); err != nil {
				return newIDs, err
			}
		}

		newIDs = append(newIDs, id)
	}

	if len(newIDs) > 0 {
		m.logger.Info("registered new candidates", zap.Int("count", len(newIDs)))
	} else {
		m.logger.Info("no new candidates found")
	}
	return newIDs, nil
}

// ScanOpportunities is the opportunity-side counterpart of ScanCandidates.
func (m *Monitor) ScanOpportunities() ([]int, error) {
	existing, err := m.store.ListOpportunities()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, o := range existing {
		known[o.SourceFilename] = true
	}

	files, err := m.listSupported(m.opportunitiesDir)
	if err != nil {
		return nil, err
	}

	m.logger.Info("scanning opportunities directory",
		zap.String("dir", m.opportunitiesDir),
		zap.Int("files", len(files)),
	)

	var newIDs []int
	for _, path := range files {
		name := filepath.Base(path)
		if known[name] {
			m.logger.Debug("already registered", zap.String("filename", name))
			continue
		}

		text, err := m.extractText(path)
		if err != nil {
			m.logger.Error("failed to read opportunity file",
				zap.String("filename", name),
				zap.Error(err),
			)
			continue
		}

		title := TitleFromText(text, name)

		id, err := m.store.RegisterOpportunity(name, text, title)
		if err != nil {
			var serr *store.StorageError
			if errors.As(err, &serr) {
				return newIDs, err
			}
			m.logger.Error("failed to register opportunity",
				zap.String("filename", name),
				zap.Error(err),
			)
			continue
		}

		newIDs = append(newIDs, id)
	}

	if len(newIDs) > 0 {
		m.logger.Info("registered new opportunities", zap.Int("count", len(newIDs)))
	} else {
		m.logger.Info("no new opportunities found")
	}
	return newIDs, nil
}

// ScanAll checks both directories and returns the newly registered
// candidate and opportunity ids.
func (m *Monitor) ScanAll() (candidateIDs, opportunityIDs []int, err error) {
	candidateIDs, err = m.ScanCandidates()
	if err != nil {
		return nil, nil, err
	}
	opportunityIDs, err = m.ScanOpportunities()
	if err != nil {
		return candidateIDs, nil, err
	}
	return candidateIDs, opportunityIDs, nil
}

func (m *Monitor) listSupported(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if extract.Supported(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// TitleFromText derives a position title for an opportunity document: a
// "label: value" line near the top, falling back to the first non-empty
// line, then the filename.
func TitleFromText(text, filename string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, line := range lines[:limit] {
		lower := strings.ToLower(line)
		for _, label := range titleLabels {
			if strings.Contains(lower, label) {
				if _, value, found := strings.Cut(line, ":"); found {
					if title := strings.TrimSpace(value); title != "" {
						return truncateTitle(title)
					}
				}
			}
		}
	}

	for _, line := range lines {
		if title := strings.TrimSpace(line); title != "" {
			return truncateTitle(title)
		}
	}

	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	title = strings.ReplaceAll(title, "_", " ")
	return truncateTitle(title)
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes])
	}
	return s
}
