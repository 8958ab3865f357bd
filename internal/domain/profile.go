package domain

// UserProfile is a user's per-domain taste profile, derived wholesale when a
// model snapshot is built and never partially mutated afterwards.
type UserProfile struct {
	// Embedding is the weighted average of similarity rows for the user's
	// anchor items, weights proportional to interaction strength. Its length
	// equals the domain's item count.
	Embedding []float64

	// AnchorItems maps item ID to interaction strength for every item the
	// user has interacted with.
	AnchorItems map[int64]float64

	// CategoryWeights accumulates interaction strength per category.
	CategoryWeights map[string]float64

	// SecondaryWeights accumulates strength over the domain's secondary
	// dimension: artist for music, subcategory for courses. Nil elsewhere.
	SecondaryWeights map[string]float64

	// SkillLevel is the mean difficulty of anchor items (courses only).
	SkillLevel float64
}

// DomainPreference is the per-domain slice of a unified profile.
type DomainPreference struct {
	Engaged         bool               `json:"engaged"`
	CategoryWeights map[string]float64 `json:"category_weights,omitempty"`
	SkillLevel      float64            `json:"skill_level,omitempty"`
}

// UnifiedProfile fuses a user's per-domain profiles into one view. It is built
// on demand and cached per user; the cache is invalidated whenever a new model
// snapshot is swapped in.
type UnifiedProfile struct {
	UserID      int64                       `json:"user_id"`
	Engaged     map[Domain]bool             `json:"domains"`
	Embedding   []float64                   `json:"-"`
	Preferences map[Domain]DomainPreference `json:"preferences"`
}

// EngagedCount returns the number of domains the user has signal in.
func (p *UnifiedProfile) EngagedCount() int {
	n := 0
	for _, ok := range p.Engaged {
		if ok {
			n++
		}
	}
	return n
}
