package scoring

// Recommendation categories as persisted on score records.
const (
	HighlyRecommended = "highly_recommended"
	Recommended       = "recommended"
	Consider          = "consider"
	NotRecommended    = "not_recommended"
)

// GradeFor maps an overall score in [0,100] onto a letter grade. The bands
// are contiguous and non-overlapping; grade is always derived from overall
// and never accepted from callers or the oracle.
func GradeFor(overall int) string {
	switch {
	case overall >= 95:
		return "A+"
	case overall >= 90:
		return "A"
	case overall >= 85:
		return "B+"
	case overall >= 80:
		return "B"
	case overall >= 75:
		return "C+"
	case overall >= 70:
		return "C"
	case overall >= 65:
		return "D"
	default:
		return "F"
	}
}

// RecommendationFor maps an overall score onto a recommendation category.
// Derived the same way grades are.
func RecommendationFor(overall int) string {
	switch {
	case overall >= 85:
		return HighlyRecommended
	case overall >= 70:
		return Recommended
	case overall >= 50:
		return Consider
	default:
		return NotRecommended
	}
}
