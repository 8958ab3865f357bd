package service

import (
	"context"
	"sync"

	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/snapshot"
	"go.uber.org/zap"
)

// Fuser builds cross-domain unified profiles. Profiles are cached per user
// and invalidated as a whole when a new snapshot generation is swapped in,
// since per-domain profiles only change at that boundary.
type Fuser struct {
	snapshots *snapshot.Manager
	logger    *zap.Logger

	mu       sync.Mutex
	cacheGen uint64
	cache    map[int64]*domain.UnifiedProfile
}

func NewFuser(snapshots *snapshot.Manager, logger *zap.Logger) *Fuser {
	return &Fuser{
		snapshots: snapshots,
		logger:    logger,
		cache:     make(map[int64]*domain.UnifiedProfile),
	}
}

// BuildUnifiedProfile fuses the user's per-domain embeddings into one vector.
// Shorter embeddings are zero-padded to the longest; domains without signal
// are flagged false and contribute nothing to the average.
func (f *Fuser) BuildUnifiedProfile(ctx context.Context, userID int64) *domain.UnifiedProfile {
	set := f.snapshots.Current()

	f.mu.Lock()
	if f.cacheGen == set.Generation {
		if p, ok := f.cache[userID]; ok {
			f.mu.Unlock()
			return p
		}
	} else {
		f.cacheGen = set.Generation
		f.cache = make(map[int64]*domain.UnifiedProfile)
		f.logger.Debug("unified profile cache reset",
			zap.Uint64("generation", set.Generation))
	}
	f.mu.Unlock()

	p := f.build(set, userID)

	f.mu.Lock()
	if f.cacheGen == set.Generation {
		f.cache[userID] = p
	}
	f.mu.Unlock()
	return p
}

func (f *Fuser) build(set *snapshot.Set, userID int64) *domain.UnifiedProfile {
	p := &domain.UnifiedProfile{
		UserID:      userID,
		Engaged:     make(map[domain.Domain]bool, len(domain.AllDomains)),
		Preferences: make(map[domain.Domain]domain.DomainPreference, len(domain.AllDomains)),
	}

	var embeddings [][]float64
	var weights []float64

	for _, d := range domain.AllDomains {
		m, err := set.Domain(d)
		if err != nil {
			p.Engaged[d] = false
			continue
		}
		profile := m.Profile(userID)
		if profile == nil {
			p.Engaged[d] = false
			continue
		}

		p.Engaged[d] = true
		p.Preferences[d] = domain.DomainPreference{
			Engaged:         true,
			CategoryWeights: profile.CategoryWeights,
			SkillLevel:      profile.SkillLevel,
		}
		embeddings = append(embeddings, profile.Embedding)
		weights = append(weights, m.Params.FusionWeight)
	}

	if len(embeddings) == 0 {
		return p
	}

	maxLen := 0
	for _, emb := range embeddings {
		if len(emb) > maxLen {
			maxLen = len(emb)
		}
	}

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}

	fused := make([]float64, maxLen)
	for i, emb := range embeddings {
		w := weights[i] / totalWeight
		for j, v := range emb {
			fused[j] += w * v
		}
	}
	p.Embedding = fused
	return p
}
