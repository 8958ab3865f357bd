package snapshot

import "github.com/unirec/unirec/internal/domain"

// Params tunes the hybrid scorer for one domain. The alpha defaults reflect
// how rating-heavy versus taste-heavy each catalog is: collaborative signal
// carries purchases and ratings well, content similarity carries taste.
type Params struct {
	// Alpha is the collaborative weight in the hybrid blend.
	Alpha float64

	// CategoryBoost scales the category-affinity term of the content score;
	// the accumulated category weight is divided by CategoryNorm first.
	CategoryBoost float64
	CategoryNorm  float64

	// SecondaryBoost scales the secondary-dimension term (artist for music,
	// subcategory for courses).
	SecondaryBoost float64
	SecondaryNorm  float64

	// LogStrength damps raw interaction strengths (play counts) with
	// log1p before they enter collaborative aggregation and category
	// affinity boosts.
	LogStrength bool

	// MeanCategory averages category weights instead of summing them, for
	// domains whose strengths are bounded ratings rather than counts.
	MeanCategory bool

	// DifficultyMatch enables the skill-level penalty for courses.
	DifficultyMatch bool

	// FusionWeight is this domain's weight in the unified profile average.
	FusionWeight float64
}

var defaultParams = map[domain.Domain]Params{
	domain.DomainMovies: {
		Alpha:        0.6,
		FusionWeight: 1.0,
	},
	domain.DomainProducts: {
		Alpha:         0.5,
		CategoryBoost: 0.3,
		CategoryNorm:  5, // category weights are mean ratings on a 1-5 scale
		MeanCategory:  true,
		FusionWeight:  1.2,
	},
	domain.DomainMusic: {
		Alpha:          0.4,
		CategoryBoost:  0.2,
		CategoryNorm:   10,
		SecondaryBoost: 0.1,
		SecondaryNorm:  10,
		LogStrength:    true,
		FusionWeight:   0.8,
	},
	domain.DomainCourses: {
		Alpha:           0.3,
		CategoryBoost:   0.3,
		CategoryNorm:    10,
		SecondaryBoost:  0.2,
		SecondaryNorm:   10,
		DifficultyMatch: true,
		FusionWeight:    1.1,
	},
}

// DefaultParams returns the tuning constants for a domain.
func DefaultParams(d domain.Domain) Params {
	if p, ok := defaultParams[d]; ok {
		return p
	}
	return Params{Alpha: 0.5, FusionWeight: 1.0}
}
