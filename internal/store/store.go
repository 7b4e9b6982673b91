package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	candidatesFile    = "candidates.json"
	opportunitiesFile = "opportunities.json"
	scoresFile        = "scores.json"
	metadataFile      = "metadata.json"
)

// StorageError wraps any I/O, serialization or corrupt-state failure of the
// store. It is always fatal to the operation that hit it and must not be
// swallowed by batch loops.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, filepath.Base(e.Path), e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}

type candidateCollection struct {
	Candidates map[string]*Candidate `json:"candidates"`
	NextID     int                   `json:"next_id"`
}

type opportunityCollection struct {
	Opportunities map[string]*Opportunity `json:"opportunities"`
	NextID        int                     `json:"next_id"`
}

type scoreCollection struct {
	// Scores maps candidate id -> opportunity id -> record. Keys are decimal
	// strings to keep the JSON layout stable.
	Scores map[string]map[string]*Score `json:"scores"`
}

// Store is durable keyed storage for candidates, opportunities and scores,
// plus cached run metadata. Each collection lives in its own JSON file under
// <base>/results and every mutation is a whole-collection read-modify-write
// guarded by a per-collection writer lock. Files are replaced via temp file
// and rename so a crash never leaves a half-written collection behind.
type Store struct {
	dir    string
	logger *zap.Logger

	candidatesMu    sync.Mutex
	opportunitiesMu sync.Mutex
	scoresMu        sync.Mutex
	metadataMu      sync.Mutex

	now func() time.Time
}

// Open prepares the results directory under base and seeds any missing
// collection file with its empty shape.
func Open(base string, logger *zap.Logger) (*Store, error) {
	dir := filepath.Join(base, "results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("create", dir, err)
	}

	s := &Store{dir: dir, logger: logger, now: time.Now}

	if err := s.initMissing(candidatesFile, &candidateCollection{Candidates: map[string]*Candidate{}, NextID: 1}); err != nil {
		return nil, err
	}
	if err := s.initMissing(opportunitiesFile, &opportunityCollection{Opportunities: map[string]*Opportunity{}, NextID: 1}); err != nil {
		return nil, err
	}
	if err := s.initMissing(scoresFile, &scoreCollection{Scores: map[string]map[string]*Score{}}); err != nil {
		return nil, err
	}
	if err := s.initMissing(metadataFile, &Metadata{}); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir returns the directory holding the collection files.
func (s *Store) Dir() string { return s.dir }

func (s *Store) initMissing(name string, empty any) error {
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return storageErr("stat", path, err)
	}
	return s.writeJSON(path, empty)
}

func (s *Store) loadJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return storageErr("load", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return storageErr("decode", path, err)
	}
	return nil
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return storageErr("encode", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return storageErr("save", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return storageErr("save", path, err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("save", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return storageErr("save", path, err)
	}
	return nil
}

// RegisterCandidate stores a new candidate and returns its id. Registration
// is idempotent by source filename: an already-known filename returns the
// existing id and writes nothing.
func (s *Store) RegisterCandidate(filename, text string) (int, error) {
	s.candidatesMu.Lock()
	defer s.candidatesMu.Unlock()

	var coll candidateCollection
	if err := s.loadJSON(candidatesFile, &coll); err != nil {
		return 0, err
	}

	for _, c := range coll.Candidates {
		if c.SourceFilename == filename {
			s.logger.Debug("candidate already registered",
				zap.String("filename", filename),
				zap.Int("candidate_id", c.ID),
			)
			return c.ID, nil
		}
	}

	id := coll.NextID
	coll.Candidates[strconv.Itoa(id)] = &Candidate{
		ID:             id,
		SourceFilename: filename,
		RawText:        text,
		RegisteredAt:   s.now(),
	}
	coll.NextID++

	if err := s.writeJSON(filepath.Join(s.dir, candidatesFile), &coll); err != nil {
		return 0, err
	}

	s.logger.Info("registered new candidate",
		zap.String("filename", filename),
		zap.Int("candidate_id", id),
	)
	return id, nil
}

// RegisterOpportunity stores a new opportunity and returns its id. Same
// idempotency rules as RegisterCandidate, with an independent id sequence.
func (s *Store) RegisterOpportunity(filename, text, title string) (int, error) {
	s.opportunitiesMu.Lock()
	defer s.opportunitiesMu.Unlock()

	var coll opportunityCollection
	if err := s.loadJSON(opportunitiesFile, &coll); err != nil {
		return 0, err
	}

	for _, o := range coll.Opportunities {
		if o.SourceFilename == filename {
			s.logger.Debug("opportunity already registered",
				zap.String("filename", filename),
				zap.Int("opportunity_id", o.ID),
			)
			return o.ID, nil
		}
	}

	id := coll.NextID
	coll.Opportunities[strconv.Itoa(id)] = &Opportunity{
		ID:             id,
		SourceFilename: filename,
		RawText:        text,
		PositionTitle:  title,
		RegisteredAt:   s.now(),
	}
	coll.NextID++

	if err := s.writeJSON(filepath.Join(s.dir, opportunitiesFile), &coll); err != nil {
		return 0, err
	}

	s.logger.Info("registered new opportunity",
		zap.String("filename", filename),
		zap.String("position", title),
		zap.Int("opportunity_id", id),
	)
	return id, nil
}

// SetCandidateContact back-fills the contact fields extracted from the
// candidate's text. Empty values leave the stored fields untouched.
func (s *Store) SetCandidateContact(id int, email, phone string) error {
	s.candidatesMu.Lock()
	defer s.candidatesMu.Unlock()

	var coll candidateCollection
	if err := s.loadJSON(candidatesFile, &coll); err != nil {
		return err
	}

	c, ok := coll.Candidates[strconv.Itoa(id)]
	if !ok {
		return nil
	}
	if email != "" {
		c.Email = email
	}
	if phone != "" {
		c.Phone = phone
	}

	return s.writeJSON(filepath.Join(s.dir, candidatesFile), &coll)
}

// GetCandidate returns the candidate with the given id, or nil when unknown.
func (s *Store) GetCandidate(id int) (*Candidate, error) {
	var coll candidateCollection
	if err := s.loadJSON(candidatesFile, &coll); err != nil {
		return nil, err
	}
	return coll.Candidates[strconv.Itoa(id)], nil
}

// GetOpportunity returns the opportunity with the given id, or nil when unknown.
func (s *Store) GetOpportunity(id int) (*Opportunity, error) {
	var coll opportunityCollection
	if err := s.loadJSON(opportunitiesFile, &coll); err != nil {
		return nil, err
	}
	return coll.Opportunities[strconv.Itoa(id)], nil
}

// ListCandidates returns all candidates ordered by id.
func (s *Store) ListCandidates() ([]*Candidate, error) {
	var coll candidateCollection
	if err := s.loadJSON(candidatesFile, &coll); err != nil {
		return nil, err
	}

	out := make([]*Candidate, 0, len(coll.Candidates))
	for _, c := range coll.Candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListOpportunities returns all opportunities ordered by id.
func (s *Store) ListOpportunities() ([]*Opportunity, error) {
	var coll opportunityCollection
	if err := s.loadJSON(opportunitiesFile, &coll); err != nil {
		return nil, err
	}

	out := make([]*Opportunity, 0, len(coll.Opportunities))
	for _, o := range coll.Opportunities {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutScore upserts the score for its (candidate, opportunity) pair,
// stamping ScoredAt. Last write wins; there is no concurrency check beyond
// the collection writer lock.
func (s *Store) PutScore(score *Score) error {
	s.scoresMu.Lock()
	defer s.scoresMu.Unlock()

	var coll scoreCollection
	if err := s.loadJSON(scoresFile, &coll); err != nil {
		return err
	}
	if coll.Scores == nil {
		coll.Scores = map[string]map[string]*Score{}
	}

	ck := strconv.Itoa(score.CandidateID)
	if coll.Scores[ck] == nil {
		coll.Scores[ck] = map[string]*Score{}
	}
	score.ScoredAt = s.now()
	coll.Scores[ck][strconv.Itoa(score.OpportunityID)] = score

	if err := s.writeJSON(filepath.Join(s.dir, scoresFile), &coll); err != nil {
		return err
	}

	s.logger.Debug("saved score",
		zap.Int("candidate_id", score.CandidateID),
		zap.Int("opportunity_id", score.OpportunityID),
		zap.Int("overall", score.Overall),
	)
	return nil
}

// GetScore returns the score for the pair, or nil when the pair has not
// been evaluated yet.
func (s *Store) GetScore(candidateID, opportunityID int) (*Score, error) {
	var coll scoreCollection
	if err := s.loadJSON(scoresFile, &coll); err != nil {
		return nil, err
	}
	return coll.Scores[strconv.Itoa(candidateID)][strconv.Itoa(opportunityID)], nil
}

// ScoresForCandidate returns all scores of one candidate keyed by
// opportunity id.
func (s *Store) ScoresForCandidate(candidateID int) (map[int]*Score, error) {
	var coll scoreCollection
	if err := s.loadJSON(scoresFile, &coll); err != nil {
		return nil, err
	}

	out := make(map[int]*Score)
	for ok, score := range coll.Scores[strconv.Itoa(candidateID)] {
		id, err := strconv.Atoi(ok)
		if err != nil {
			return nil, storageErr("decode", filepath.Join(s.dir, scoresFile), fmt.Errorf("bad opportunity key %q", ok))
		}
		out[id] = score
	}
	return out, nil
}

// ScoresForOpportunity returns all scores against one opportunity keyed by
// candidate id.
func (s *Store) ScoresForOpportunity(opportunityID int) (map[int]*Score, error) {
	var coll scoreCollection
	if err := s.loadJSON(scoresFile, &coll); err != nil {
		return nil, err
	}

	ok := strconv.Itoa(opportunityID)
	out := make(map[int]*Score)
	for ck, perOpp := range coll.Scores {
		score, found := perOpp[ok]
		if !found {
			continue
		}
		id, err := strconv.Atoi(ck)
		if err != nil {
			return nil, storageErr("decode", filepath.Join(s.dir, scoresFile), fmt.Errorf("bad candidate key %q", ck))
		}
		out[id] = score
	}
	return out, nil
}

// LowScoringCandidates returns candidates that have been scored against
// every known opportunity and never reached the threshold.
func (s *Store) LowScoringCandidates(threshold int) ([]*LowScorer, error) {
	opportunities, err := s.ListOpportunities()
	if err != nil {
		return nil, err
	}
	if len(opportunities) == 0 {
		return nil, nil
	}

	candidates, err := s.ListCandidates()
	if err != nil {
		return nil, err
	}

	var out []*LowScorer
	for _, c := range candidates {
		scores, err := s.ScoresForCandidate(c.ID)
		if err != nil {
			return nil, err
		}
		if len(scores) != len(opportunities) {
			continue
		}

		allLow := true
		for _, score := range scores {
			if score.Overall >= threshold {
				allLow = false
				break
			}
		}
		if !allLow {
			continue
		}

		out = append(out, &LowScorer{
			CandidateID:    c.ID,
			SourceFilename: c.SourceFilename,
			Email:          c.Email,
			Phone:          c.Phone,
			Scores:         scores,
		})
	}
	return out, nil
}

// RecomputeMetadata rebuilds the cached aggregate from the three
// collections and persists it with a fresh last-check timestamp.
func (s *Store) RecomputeMetadata() (*Metadata, error) {
	s.metadataMu.Lock()
	defer s.metadataMu.Unlock()

	var cands candidateCollection
	if err := s.loadJSON(candidatesFile, &cands); err != nil {
		return nil, err
	}
	var opps opportunityCollection
	if err := s.loadJSON(opportunitiesFile, &opps); err != nil {
		return nil, err
	}
	var scores scoreCollection
	if err := s.loadJSON(scoresFile, &scores); err != nil {
		return nil, err
	}

	total := 0
	for _, perOpp := range scores.Scores {
		total += len(perOpp)
	}

	now := s.now()
	md := &Metadata{
		LastCheck:          &now,
		TotalCandidates:    len(cands.Candidates),
		TotalOpportunities: len(opps.Opportunities),
		TotalScores:        total,
	}

	if err := s.writeJSON(filepath.Join(s.dir, metadataFile), md); err != nil {
		return nil, err
	}
	return md, nil
}

// Metadata returns the cached aggregate as last persisted.
func (s *Store) Metadata() (*Metadata, error) {
	var md Metadata
	if err := s.loadJSON(metadataFile, &md); err != nil {
		return nil, err
	}
	return &md, nil
}
