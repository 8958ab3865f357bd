package service

import (
	"context"
	"sort"

	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/snapshot"
	"go.uber.org/zap"
)

// Ranker merges per-domain candidate lists into one cross-domain ranking,
// optionally re-scored by a learned relevance model. Without a model the
// ordering is plain score-descending; the two paths agree by construction
// when the model is absent.
type Ranker struct {
	snapshots *snapshot.Manager
	scorer    *Scorer
	fuser     *Fuser
	logger    *zap.Logger
}

func NewRanker(snapshots *snapshot.Manager, scorer *Scorer, fuser *Fuser, logger *zap.Logger) *Ranker {
	return &Ranker{snapshots: snapshots, scorer: scorer, fuser: fuser, logger: logger}
}

// UnifiedRequest asks for cross-domain recommendations: PerDomain candidates
// from each engaged domain, merged and truncated to Total.
type UnifiedRequest struct {
	UserID    int64
	PerDomain int
	Total     int
	Preferred map[domain.Domain][]string
}

// ProfileSummary is the caller-facing digest of the unified profile.
type ProfileSummary struct {
	DomainsEngaged      int  `json:"domains_engaged"`
	HasUnifiedEmbedding bool `json:"has_unified_embedding"`
}

type UnifiedResult struct {
	UserID          int64                   `json:"user_id"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	ProfileSummary  ProfileSummary          `json:"profile_summary"`
}

// UnifiedRecommend gathers candidates from every engaged domain and ranks
// them. A domain that fails to score is skipped with a warning; the other
// domains still contribute. Partial results beat total failure.
func (r *Ranker) UnifiedRecommend(ctx context.Context, req UnifiedRequest) (*UnifiedResult, error) {
	if req.PerDomain <= 0 || req.Total <= 0 {
		return nil, domain.ErrInvalidCount
	}

	set := r.snapshots.Current()
	profile := r.fuser.BuildUnifiedProfile(ctx, req.UserID)

	var merged []domain.Recommendation
	for _, d := range domain.AllDomains {
		if !profile.Engaged[d] {
			continue
		}
		m, err := set.Domain(d)
		if err != nil {
			continue
		}
		recs, err := r.scorer.RecommendOn(m, RecommendRequest{
			UserID:    req.UserID,
			Domain:    d,
			N:         req.PerDomain,
			Preferred: req.Preferred[d],
		})
		if err != nil {
			r.logger.Warn("domain skipped in unified ranking",
				zap.String("domain", d.String()),
				zap.Int64("user_id", req.UserID),
				zap.Error(err),
			)
			continue
		}
		merged = append(merged, recs...)
	}

	if model := set.Ranker; model != nil && len(merged) > 0 {
		for i := range merged {
			merged[i].Score = model.Score(r.features(profile, merged[i]))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > req.Total {
		merged = merged[:req.Total]
	}
	if merged == nil {
		merged = []domain.Recommendation{}
	}

	return &UnifiedResult{
		UserID:          req.UserID,
		Recommendations: merged,
		ProfileSummary: ProfileSummary{
			DomainsEngaged:      profile.EngagedCount(),
			HasUnifiedEmbedding: len(profile.Embedding) > 0,
		},
	}, nil
}

// features assembles the cross-domain feature vector for one candidate.
func (r *Ranker) features(p *domain.UnifiedProfile, rec domain.Recommendation) domain.RankFeatures {
	return domain.RankFeatures{
		MoviesEngaged:   p.Engaged[domain.DomainMovies],
		ProductsEngaged: p.Engaged[domain.DomainProducts],
		MusicEngaged:    p.Engaged[domain.DomainMusic],
		CoursesEngaged:  p.Engaged[domain.DomainCourses],
		EngagedDomains:  p.EngagedCount(),
		ItemScore:       rec.Score,
		DomainIndex:     rec.Domain.Index(),

		EducationBoost: rec.Domain == domain.DomainMovies && p.Engaged[domain.DomainCourses],
		AudioBoost:     rec.Domain == domain.DomainProducts && p.Engaged[domain.DomainMusic],
		PracticalBoost: rec.Domain == domain.DomainCourses && p.Engaged[domain.DomainProducts],
	}
}
