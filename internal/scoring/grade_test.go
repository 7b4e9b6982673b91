package scoring

import "testing"

func TestGradeFor(t *testing.T) {
	tests := []struct {
		overall int
		want    string
	}{
		{100, "A+"},
		{95, "A+"},
		{94, "A"},
		{90, "A"},
		{88, "B+"},
		{85, "B+"},
		{80, "B"},
		{79, "C+"},
		{75, "C+"},
		{70, "C"},
		{69, "D"},
		{65, "D"},
		{64, "F"},
		{40, "F"},
		{0, "F"},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.overall); got != tt.want {
			t.Errorf("GradeFor(%d) = %q, want %q", tt.overall, got, tt.want)
		}
	}
}

func TestRecommendationFor(t *testing.T) {
	tests := []struct {
		overall int
		want    string
	}{
		{100, HighlyRecommended},
		{85, HighlyRecommended},
		{84, Recommended},
		{70, Recommended},
		{69, Consider},
		{50, Consider},
		{49, NotRecommended},
		{0, NotRecommended},
	}

	for _, tt := range tests {
		if got := RecommendationFor(tt.overall); got != tt.want {
			t.Errorf("RecommendationFor(%d) = %q, want %q", tt.overall, got, tt.want)
		}
	}
}
