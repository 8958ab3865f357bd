package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/snapshot"
	"go.uber.org/zap"
)

// engagementSaturation is the interaction count at which the engagement
// score reaches 1.0.
const engagementSaturation = 100

// Interactions records behavioral events and answers analytical queries over
// the logged history.
type Interactions struct {
	store     domain.InteractionStore
	snapshots *snapshot.Manager
	logger    *zap.Logger
}

func NewInteractions(store domain.InteractionStore, snapshots *snapshot.Manager, logger *zap.Logger) *Interactions {
	return &Interactions{store: store, snapshots: snapshots, logger: logger}
}

// LogRequest carries one behavioral event to record.
type LogRequest struct {
	UserID   int64
	ItemID   int64
	Domain   domain.Domain
	Action   domain.ActionKind
	Metadata map[string]any
}

// Log validates and durably records a single interaction. A write failure is
// surfaced to the caller, never swallowed.
func (s *Interactions) Log(ctx context.Context, req LogRequest) (domain.Interaction, error) {
	d, err := domain.ParseDomain(string(req.Domain))
	if err != nil {
		return domain.Interaction{}, err
	}
	if !domain.ValidAction(string(req.Action)) {
		return domain.Interaction{}, fmt.Errorf("%w: action %q", domain.ErrInvalidAction, req.Action)
	}

	event := domain.Interaction{
		ID:        uuid.New(),
		UserID:    req.UserID,
		ItemID:    req.ItemID,
		Domain:    d,
		Action:    req.Action,
		Metadata:  req.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, &event); err != nil {
		s.logger.Error("interaction write failed",
			zap.Int64("user_id", req.UserID),
			zap.String("domain", string(req.Domain)),
			zap.Error(err))
		return domain.Interaction{}, fmt.Errorf("append interaction: %w", err)
	}
	return event, nil
}

// Stats summarizes a user's full interaction history.
func (s *Interactions) Stats(ctx context.Context, userID int64) (domain.InteractionStats, error) {
	events, err := s.store.ListByUser(ctx, userID, domain.InteractionFilter{})
	if err != nil {
		return domain.InteractionStats{}, fmt.Errorf("list interactions: %w", err)
	}

	stats := domain.InteractionStats{
		Total:    len(events),
		ByDomain: make(map[domain.Domain]int),
		ByAction: make(map[domain.ActionKind]int),
	}
	days := make(map[string]struct{})
	for _, e := range events {
		stats.ByDomain[e.Domain]++
		stats.ByAction[e.Action]++
		days[e.CreatedAt.Format("2006-01-02")] = struct{}{}
	}
	stats.DaysActive = len(days)
	stats.EngagementScore = math.Min(1, float64(len(events))/engagementSaturation)
	return stats, nil
}

// DiversityScore is the ratio of distinct primary categories to list length.
// An empty list scores zero.
func (s *Interactions) DiversityScore(recs []domain.Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, r := range recs {
		if len(r.Categories) > 0 {
			seen[r.Categories[0]] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(recs))
}

// ExplorationCandidates returns up to n items from categories the user has
// engaged least, unexplored categories first. It reads the user's history and
// the loaded catalog for the domain.
func (s *Interactions) ExplorationCandidates(ctx context.Context, userID int64, d domain.Domain, n int) ([]domain.Recommendation, error) {
	if n <= 0 {
		return nil, domain.ErrInvalidCount
	}
	m, err := s.snapshots.Current().Domain(d)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListByUser(ctx, userID, domain.InteractionFilter{Domain: d})
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}

	interacted := make(map[int64]struct{}, len(events))
	categoryHits := make(map[string]int)
	for _, e := range events {
		interacted[e.ItemID] = struct{}{}
		if it, ok := m.ItemByID(e.ItemID); ok {
			for _, c := range it.Categories {
				categoryHits[c]++
			}
		}
	}

	type candidate struct {
		idx  int
		hits int
	}
	candidates := make([]candidate, 0, m.NumItems())
	for i := 0; i < m.NumItems(); i++ {
		it := m.ItemAt(i)
		if _, ok := interacted[it.ID]; ok {
			continue
		}
		hits := math.MaxInt
		for _, c := range it.Categories {
			if h := categoryHits[c]; h < hits {
				hits = h
			}
		}
		if len(it.Categories) == 0 {
			hits = 0
		}
		candidates = append(candidates, candidate{idx: i, hits: hits})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].hits < candidates[j].hits
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	pop := m.Popularity()
	recs := make([]domain.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		recs = append(recs, recommendationFor(m, m.ItemAt(c.idx), pop[c.idx]))
	}
	return recs, nil
}

// SearchCatalog does a case-insensitive substring match on titles and
// categories in the loaded catalog for the domain.
func (s *Interactions) SearchCatalog(d domain.Domain, query string, limit int) ([]domain.Item, error) {
	m, err := s.snapshots.Current().Domain(d)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	matched := make([]domain.Item, 0, limit)
	for i := 0; i < m.NumItems() && len(matched) < limit; i++ {
		it := m.ItemAt(i)
		if matchesQuery(it, query) {
			matched = append(matched, it)
		}
	}
	return matched, nil
}

func matchesQuery(it domain.Item, query string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(it.Title), q) {
		return true
	}
	for _, c := range it.Categories {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	return false
}
