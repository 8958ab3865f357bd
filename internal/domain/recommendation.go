package domain

// Recommendation is one scored candidate returned to the caller. Scores are
// finite and non-negative; after normalization they live on roughly [0,1],
// though preference boosts may push them slightly above.
type Recommendation struct {
	ItemID     int64          `json:"item_id"`
	Title      string         `json:"title"`
	Domain     Domain         `json:"domain"`
	Score      float64        `json:"score"`
	Categories []string       `json:"categories"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RankFeatures is the feature vector the learned relevance model scores a
// candidate with inside the cross-domain ranker.
type RankFeatures struct {
	MoviesEngaged   bool
	ProductsEngaged bool
	MusicEngaged    bool
	CoursesEngaged  bool
	EngagedDomains  int
	ItemScore       float64
	DomainIndex     int

	// Cross-domain affinity signals: course takers lean educational content,
	// music listeners lean audio gear, product buyers lean practical courses.
	EducationBoost bool
	AudioBoost     bool
	PracticalBoost bool
}

// RelevanceModel re-scores a unified candidate. Implementations must be safe
// for concurrent use; a nil model means raw score ordering.
type RelevanceModel interface {
	Score(f RankFeatures) float64
}

// LinearModel is a relevance model with one learned weight per feature. It is
// the in-process stand-in for the offline-trained ranker; the model store
// loads its weights as an opaque snapshot.
type LinearModel struct {
	Bias            float64 `json:"bias"`
	MoviesEngaged   float64 `json:"movies_engaged"`
	ProductsEngaged float64 `json:"products_engaged"`
	MusicEngaged    float64 `json:"music_engaged"`
	CoursesEngaged  float64 `json:"courses_engaged"`
	EngagedDomains  float64 `json:"engaged_domains"`
	ItemScore       float64 `json:"item_score"`
	DomainIndex     float64 `json:"domain_index"`
	EducationBoost  float64 `json:"education_boost"`
	AudioBoost      float64 `json:"audio_boost"`
	PracticalBoost  float64 `json:"practical_boost"`
}

func (m *LinearModel) Score(f RankFeatures) float64 {
	s := m.Bias + m.ItemScore*f.ItemScore +
		m.EngagedDomains*float64(f.EngagedDomains) +
		m.DomainIndex*float64(f.DomainIndex)
	if f.MoviesEngaged {
		s += m.MoviesEngaged
	}
	if f.ProductsEngaged {
		s += m.ProductsEngaged
	}
	if f.MusicEngaged {
		s += m.MusicEngaged
	}
	if f.CoursesEngaged {
		s += m.CoursesEngaged
	}
	if f.EducationBoost {
		s += m.EducationBoost
	}
	if f.AudioBoost {
		s += m.AudioBoost
	}
	if f.PracticalBoost {
		s += m.PracticalBoost
	}
	return s
}
