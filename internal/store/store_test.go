package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	s, err := Open(base, zap.NewNop())
	require.NoError(t, err)
	return s, base
}

func TestOpenSeedsCollections(t *testing.T) {
	s, base := newTestStore(t)

	for _, name := range []string{candidatesFile, opportunitiesFile, scoresFile, metadataFile} {
		_, err := os.Stat(filepath.Join(base, "results", name))
		require.NoError(t, err, "collection %s should be seeded", name)
	}

	candidates, err := s.ListCandidates()
	require.NoError(t, err)
	require.Empty(t, candidates)

	md, err := s.Metadata()
	require.NoError(t, err)
	require.Nil(t, md.LastCheck)
	require.Zero(t, md.TotalCandidates)
}

func TestRegisterCandidateIsIdempotentByFilename(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.RegisterCandidate("alice.txt", "Alice, Go developer")
	require.NoError(t, err)
	require.Equal(t, 1, first)

	again, err := s.RegisterCandidate("alice.txt", "different text, same file")
	require.NoError(t, err)
	require.Equal(t, first, again)

	candidates, err := s.ListCandidates()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "Alice, Go developer", candidates[0].RawText)
}

func TestIDsStayMonotonicAcrossReopen(t *testing.T) {
	base := t.TempDir()

	s, err := Open(base, zap.NewNop())
	require.NoError(t, err)

	id1, err := s.RegisterCandidate("a.txt", "a")
	require.NoError(t, err)
	id2, err := s.RegisterCandidate("b.txt", "b")
	require.NoError(t, err)
	require.Equal(t, id1+1, id2)

	reopened, err := Open(base, zap.NewNop())
	require.NoError(t, err)

	id3, err := reopened.RegisterCandidate("c.txt", "c")
	require.NoError(t, err)
	require.Equal(t, id2+1, id3)
}

func TestCandidateAndOpportunitySequencesAreIndependent(t *testing.T) {
	s, _ := newTestStore(t)

	cid, err := s.RegisterCandidate("resume.txt", "resume")
	require.NoError(t, err)
	oid, err := s.RegisterOpportunity("role.txt", "role text", "Backend Engineer")
	require.NoError(t, err)

	require.Equal(t, 1, cid)
	require.Equal(t, 1, oid)
}

func TestSetCandidateContactKeepsExistingOnEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.RegisterCandidate("bob.txt", "Bob")
	require.NoError(t, err)

	require.NoError(t, s.SetCandidateContact(id, "bob@example.com", "555 123 4567"))
	require.NoError(t, s.SetCandidateContact(id, "", ""))

	c, err := s.GetCandidate(id)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", c.Email)
	require.Equal(t, "555 123 4567", c.Phone)

	// Unknown ids are a silent no-op.
	require.NoError(t, s.SetCandidateContact(999, "x@example.com", ""))
}

func TestGetReturnsNilForUnknownIDs(t *testing.T) {
	s, _ := newTestStore(t)

	c, err := s.GetCandidate(42)
	require.NoError(t, err)
	require.Nil(t, c)

	o, err := s.GetOpportunity(42)
	require.NoError(t, err)
	require.Nil(t, o)

	score, err := s.GetScore(1, 1)
	require.NoError(t, err)
	require.Nil(t, score)
}

func TestPutScoreUpserts(t *testing.T) {
	s, _ := newTestStore(t)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.PutScore(&Score{CandidateID: 1, OpportunityID: 2, Overall: 55, Grade: "F"}))
	require.NoError(t, s.PutScore(&Score{CandidateID: 1, OpportunityID: 2, Overall: 88, Grade: "B+"}))

	got, err := s.GetScore(1, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 88, got.Overall)
	require.Equal(t, "B+", got.Grade)
	require.True(t, got.ScoredAt.Equal(fixed))
}

func TestScoresForOpportunity(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.PutScore(&Score{CandidateID: 1, OpportunityID: 1, Overall: 80}))
	require.NoError(t, s.PutScore(&Score{CandidateID: 2, OpportunityID: 1, Overall: 60}))
	require.NoError(t, s.PutScore(&Score{CandidateID: 1, OpportunityID: 2, Overall: 90}))

	scores, err := s.ScoresForOpportunity(1)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	require.Equal(t, 80, scores[1].Overall)
	require.Equal(t, 60, scores[2].Overall)

	byCandidate, err := s.ScoresForCandidate(1)
	require.NoError(t, err)
	require.Len(t, byCandidate, 2)
	require.Equal(t, 90, byCandidate[2].Overall)
}

func TestLowScoringCandidates(t *testing.T) {
	s, _ := newTestStore(t)

	low, err := s.RegisterCandidate("low.txt", "low")
	require.NoError(t, err)
	high, err := s.RegisterCandidate("high.txt", "high")
	require.NoError(t, err)
	partial, err := s.RegisterCandidate("partial.txt", "partial")
	require.NoError(t, err)

	opp1, err := s.RegisterOpportunity("role1.txt", "role1", "Role One")
	require.NoError(t, err)
	opp2, err := s.RegisterOpportunity("role2.txt", "role2", "Role Two")
	require.NoError(t, err)

	require.NoError(t, s.PutScore(&Score{CandidateID: low, OpportunityID: opp1, Overall: 40}))
	require.NoError(t, s.PutScore(&Score{CandidateID: low, OpportunityID: opp2, Overall: 55}))

	require.NoError(t, s.PutScore(&Score{CandidateID: high, OpportunityID: opp1, Overall: 45}))
	require.NoError(t, s.PutScore(&Score{CandidateID: high, OpportunityID: opp2, Overall: 82}))

	// Scored against only one opportunity, so not eligible yet.
	require.NoError(t, s.PutScore(&Score{CandidateID: partial, OpportunityID: opp1, Overall: 10}))

	out, err := s.LowScoringCandidates(60)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, low, out[0].CandidateID)
	require.Equal(t, "low.txt", out[0].SourceFilename)
	require.Len(t, out[0].Scores, 2)
}

func TestRecomputeMetadata(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.RegisterCandidate("a.txt", "a")
	require.NoError(t, err)
	_, err = s.RegisterCandidate("b.txt", "b")
	require.NoError(t, err)
	_, err = s.RegisterOpportunity("r.txt", "r", "Role")
	require.NoError(t, err)
	require.NoError(t, s.PutScore(&Score{CandidateID: 1, OpportunityID: 1, Overall: 70}))

	md, err := s.RecomputeMetadata()
	require.NoError(t, err)
	require.Equal(t, 2, md.TotalCandidates)
	require.Equal(t, 1, md.TotalOpportunities)
	require.Equal(t, 1, md.TotalScores)
	require.NotNil(t, md.LastCheck)

	persisted, err := s.Metadata()
	require.NoError(t, err)
	require.Equal(t, md.TotalCandidates, persisted.TotalCandidates)
	require.Equal(t, md.TotalScores, persisted.TotalScores)
}

func TestWriteJSONIsAtomic(t *testing.T) {
	s, base := newTestStore(t)

	_, err := s.RegisterCandidate("a.txt", "a")
	require.NoError(t, err)

	// No temp files may survive a successful write.
	entries, err := os.ReadDir(filepath.Join(base, "results"))
	require.NoError(t, err)
	for _, entry := range entries {
		require.False(t, entry.Name()[0] == '.', "leftover temp file %s", entry.Name())
	}
}
