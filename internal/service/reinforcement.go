package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/snapshot"
	"go.uber.org/zap"
)

// actionWeights are the fixed behavioral weights per action kind. Rate and
// time_spent are computed from metadata instead.
var actionWeights = map[domain.ActionKind]float64{
	domain.ActionView:     0.1,
	domain.ActionClick:    0.3,
	domain.ActionLike:     0.8,
	domain.ActionDislike:  -0.8,
	domain.ActionPurchase: 1.0,
	domain.ActionEnroll:   0.7,
	domain.ActionComplete: 1.0,
	domain.ActionSkip:     -0.3,
}

const (
	// maxWatchSeconds caps how much a single time_spent event can signal.
	maxWatchSeconds = 300
	watchWeight     = 0.5

	// preferenceUpdateLimit is how many categories a derived preference
	// ranking carries per domain.
	preferenceUpdateLimit = 5
)

// Reinforcement turns the logged interaction history into bounded score
// adjustments and behavior-derived preference updates.
type Reinforcement struct {
	interactions domain.InteractionStore
	snapshots    *snapshot.Manager
	logger       *zap.Logger
}

func NewReinforcement(interactions domain.InteractionStore, snapshots *snapshot.Manager, logger *zap.Logger) *Reinforcement {
	return &Reinforcement{interactions: interactions, snapshots: snapshots, logger: logger}
}

// ItemBehaviorScore sums action weights over every logged interaction for the
// (user, item, domain) triple and clamps the total to [-1, 1]. Zero means no
// history.
func (r *Reinforcement) ItemBehaviorScore(ctx context.Context, userID, itemID int64, d domain.Domain) (float64, error) {
	events, err := r.interactions.ListByUserItem(ctx, userID, itemID, d)
	if err != nil {
		return 0, fmt.Errorf("list interactions: %w", err)
	}

	var total float64
	for _, e := range events {
		switch e.Action {
		case domain.ActionRate:
			if rating, ok := e.Rating(); ok {
				// 1-5 scale mapped onto [-1, 1] around the neutral 3.
				total += (rating - 3) / 2
			}
		case domain.ActionTimeSpent:
			if dur, ok := e.Duration(); ok {
				total += math.Min(dur, maxWatchSeconds) / maxWatchSeconds * watchWeight
			}
		default:
			total += actionWeights[e.Action]
		}
	}
	return math.Max(-1, math.Min(1, total)), nil
}

// ApplyBoost adds behaviorScore*boostFactor to each candidate and re-sorts.
// With boostFactor 0 the scores and ordering are untouched. The input slice is
// never mutated, so callers can fall back to it when the boost fails.
func (r *Reinforcement) ApplyBoost(ctx context.Context, userID int64, recs []domain.Recommendation, boostFactor float64) ([]domain.Recommendation, error) {
	if boostFactor == 0 || len(recs) == 0 {
		return recs, nil
	}
	boosted := make([]domain.Recommendation, len(recs))
	copy(boosted, recs)
	for i := range boosted {
		score, err := r.ItemBehaviorScore(ctx, userID, boosted[i].ItemID, boosted[i].Domain)
		if err != nil {
			return nil, err
		}
		boosted[i].Score += score * boostFactor
	}
	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Score > boosted[j].Score
	})
	return boosted, nil
}

// PreferenceUpdates counts positive-action interactions per category within
// the window and returns the top categories per domain, most frequent first.
// Domains with no qualifying interactions are omitted entirely; silence never
// fabricates a ranking.
func (r *Reinforcement) PreferenceUpdates(ctx context.Context, userID int64, windowDays int) (map[domain.Domain][]string, error) {
	since := time.Now().AddDate(0, 0, -windowDays)
	events, err := r.interactions.ListByUser(ctx, userID, domain.InteractionFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}

	set := r.snapshots.Current()
	counts := make(map[domain.Domain]map[string]int)
	for _, e := range events {
		if !e.Action.Positive() {
			continue
		}
		for _, c := range r.eventCategories(set, e) {
			if counts[e.Domain] == nil {
				counts[e.Domain] = make(map[string]int)
			}
			counts[e.Domain][c]++
		}
	}

	updates := make(map[domain.Domain][]string, len(counts))
	for d, byCategory := range counts {
		type entry struct {
			category string
			count    int
		}
		entries := make([]entry, 0, len(byCategory))
		for c, n := range byCategory {
			entries = append(entries, entry{c, n})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].category < entries[j].category
		})
		if len(entries) > preferenceUpdateLimit {
			entries = entries[:preferenceUpdateLimit]
		}
		ranked := make([]string, len(entries))
		for i, e := range entries {
			ranked[i] = e.category
		}
		updates[d] = ranked
	}
	return updates, nil
}

// eventCategories resolves the categories of an interaction's item, preferring
// the catalog and falling back to event metadata for items that have since
// left the loaded snapshot.
func (r *Reinforcement) eventCategories(set *snapshot.Set, e domain.Interaction) []string {
	if m, err := set.Domain(e.Domain); err == nil {
		if it, ok := m.ItemByID(e.ItemID); ok {
			return it.Categories
		}
	}
	if s, ok := e.Metadata["genres"].(string); ok && s != "" {
		var out []string
		for _, part := range strings.Split(s, "|") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	for _, key := range []string{"genre", "category"} {
		if s, ok := e.Metadata[key].(string); ok && s != "" {
			return []string{s}
		}
	}
	return nil
}
