package service

import (
	"context"
	"math"
	"sort"

	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/snapshot"
	"go.uber.org/zap"
)

const (
	// neighborCount is how many similar users feed collaborative scoring.
	neighborCount = 10

	// sparseHistoryMin is the in-category interaction count below which the
	// collaborative weight is reduced; a thin profile makes neighbor signal
	// mostly noise.
	sparseHistoryMin = 3
	sparseAlphaScale = 0.5

	// preferenceBoostMax is the multiplicative boost for the most-preferred
	// category; lower-ranked categories get a linearly smaller share.
	preferenceBoostMax = 0.6

	// backfillScore is the neutral score for items pulled in to fill a
	// preferred category that scored too few candidates.
	backfillScore = 0.5
)

// Scorer produces ranked candidates for a user within one domain. It is a
// pure function of the current snapshot and the request; no state is kept
// between calls.
type Scorer struct {
	snapshots *snapshot.Manager
	logger    *zap.Logger
}

func NewScorer(snapshots *snapshot.Manager, logger *zap.Logger) *Scorer {
	return &Scorer{snapshots: snapshots, logger: logger}
}

// RecommendRequest asks for the top N candidates in one domain. Preferred
// lists explicit category preferences ordered from most to least preferred.
type RecommendRequest struct {
	UserID    int64
	Domain    domain.Domain
	N         int
	Preferred []string
}

// Recommend runs the hybrid pipeline: collaborative and content scores are
// max-normalized, alpha-blended, preference-weighted, category-filtered, and
// quota-rebalanced. A user with no signal at all falls back to popularity.
func (s *Scorer) Recommend(ctx context.Context, req RecommendRequest) ([]domain.Recommendation, error) {
	if req.N <= 0 {
		return nil, domain.ErrInvalidCount
	}
	m, err := s.snapshots.Current().Domain(req.Domain)
	if err != nil {
		return nil, err
	}
	return s.recommend(m, req), nil
}

// RecommendOn scores against an explicit model snapshot. The unified ranker
// uses it so every domain in one request reads the same generation.
func (s *Scorer) RecommendOn(m *snapshot.Model, req RecommendRequest) ([]domain.Recommendation, error) {
	if req.N <= 0 {
		return nil, domain.ErrInvalidCount
	}
	return s.recommend(m, req), nil
}

func (s *Scorer) recommend(m *snapshot.Model, req RecommendRequest) []domain.Recommendation {
	cf := collaborativeScores(m, req.UserID)
	content := contentScores(m, req.UserID)

	// Cold start: no collaborative and no content signal.
	if len(cf) == 0 && len(content) == 0 {
		s.logger.Debug("cold start, serving popularity",
			zap.Int64("user_id", req.UserID), zap.String("domain", string(req.Domain)))
		return popularityFallback(m, req.N)
	}

	normalizeMax(cf)
	normalizeMax(content)

	alpha := m.Params.Alpha
	if sparseHistory(m, req.UserID, req.Preferred) {
		alpha *= sparseAlphaScale
		s.logger.Debug("sparse history, reducing collaborative weight",
			zap.Int64("user_id", req.UserID), zap.String("domain", string(req.Domain)),
			zap.Float64("alpha", alpha))
	}

	hybrid := make(map[int]float64, len(cf)+len(content))
	for i, v := range cf {
		hybrid[i] = alpha * v
	}
	for i, v := range content {
		hybrid[i] += (1 - alpha) * v
	}

	if len(req.Preferred) == 0 {
		return topN(m, hybrid, req.N)
	}

	applyPreferenceBoost(m, hybrid, req.Preferred)
	filterPreferred(m, hybrid, req.Preferred)
	backfillPreferred(m, hybrid, req.UserID, req.Preferred, req.N)
	return quotaRanked(m, hybrid, req.Preferred, req.N)
}

// collaborativeScores aggregates the interaction strengths of the user's ten
// most similar neighbors, weighted by neighbor similarity and averaged per
// item. Items the user already interacted with are excluded; the user is
// never their own neighbor.
func collaborativeScores(m *snapshot.Model, userID int64) map[int]float64 {
	row := m.Row(userID)
	if len(row) == 0 {
		return nil
	}

	type neighbor struct {
		id  int64
		sim float64
	}
	var neighbors []neighbor
	for _, other := range m.UserIDs() {
		if other == userID {
			continue
		}
		sim := cosineSparse(row, m.Row(other))
		if sim > 0 {
			neighbors = append(neighbors, neighbor{id: other, sim: sim})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].id < neighbors[j].id
	})
	if len(neighbors) > neighborCount {
		neighbors = neighbors[:neighborCount]
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, nb := range neighbors {
		for idx, strength := range m.Row(nb.id) {
			if _, seen := row[idx]; seen {
				continue
			}
			if m.Params.LogStrength {
				strength = math.Log1p(strength)
			}
			sums[idx] += strength * nb.sim
			counts[idx]++
		}
	}
	for idx := range sums {
		sums[idx] /= float64(counts[idx])
	}
	return sums
}

// contentScores scores every uninteracted item against the user's anchor
// profile: embedding similarity plus category and secondary affinity boosts,
// minus the difficulty-mismatch penalty where the domain tracks levels.
func contentScores(m *snapshot.Model, userID int64) map[int]float64 {
	p := m.Profile(userID)
	if p == nil {
		return nil
	}

	params := m.Params
	scores := make(map[int]float64, m.NumItems()-len(p.AnchorItems))
	for idx := 0; idx < m.NumItems(); idx++ {
		it := m.ItemAt(idx)
		if _, anchored := p.AnchorItems[it.ID]; anchored {
			continue
		}

		score := p.Embedding[idx]
		if params.CategoryBoost > 0 {
			score += params.CategoryBoost * p.CategoryWeights[it.PrimaryCategory()] / params.CategoryNorm
		}
		if params.SecondaryBoost > 0 {
			if key := m.SecondaryKey(it); key != "" {
				score += params.SecondaryBoost * p.SecondaryWeights[key] / params.SecondaryNorm
			}
		}
		if params.DifficultyMatch && it.Difficulty > 0 {
			score -= difficultyPenalty(float64(it.Difficulty), p.SkillLevel)
		}
		if score < 0 {
			score = 0
		}
		scores[idx] = score
	}
	return scores
}

// difficultyPenalty implements the just-right-challenge policy: one step above
// or below the user's level is ideal, the same level is a mild repeat, more
// than one step is a mismatch.
func difficultyPenalty(itemLevel, skillLevel float64) float64 {
	diff := math.Abs(itemLevel - skillLevel)
	switch {
	case diff > 1:
		return 0.3
	case diff == 1:
		return 0
	default:
		return 0.1
	}
}

// sparseHistory reports whether the user's history inside the requested
// preference categories is too thin for reliable collaborative signal.
func sparseHistory(m *snapshot.Model, userID int64, preferred []string) bool {
	if len(preferred) == 0 {
		return false
	}
	p := m.Profile(userID)
	if p == nil {
		return true
	}
	n := 0
	for id := range p.AnchorItems {
		it, ok := m.ItemByID(id)
		if !ok {
			continue
		}
		for _, c := range preferred {
			if it.HasCategory(c) {
				n++
				break
			}
		}
	}
	return n < sparseHistoryMin
}

// applyPreferenceBoost multiplies candidate scores by up to 1+preferenceBoostMax,
// scaled linearly by the matched category's preference rank.
func applyPreferenceBoost(m *snapshot.Model, scores map[int]float64, preferred []string) {
	k := float64(len(preferred))
	for idx := range scores {
		it := m.ItemAt(idx)
		for rank, c := range preferred {
			if it.HasCategory(c) {
				weight := (k - float64(rank)) / k
				scores[idx] *= 1 + preferenceBoostMax*weight
				break
			}
		}
	}
}

// filterPreferred drops every candidate outside the preferred categories.
func filterPreferred(m *snapshot.Model, scores map[int]float64, preferred []string) {
	for idx := range scores {
		it := m.ItemAt(idx)
		keep := false
		for _, c := range preferred {
			if it.HasCategory(c) {
				keep = true
				break
			}
		}
		if !keep {
			delete(scores, idx)
		}
	}
}

// backfillPreferred tops the candidate set up with uninteracted catalog items
// from the preferred categories at a neutral baseline score, so a thin
// category still fills the requested count instead of coming up short.
func backfillPreferred(m *snapshot.Model, scores map[int]float64, userID int64, preferred []string, n int) {
	if len(scores) >= n {
		return
	}
	row := m.Row(userID)
	for idx := 0; idx < m.NumItems(); idx++ {
		if _, ok := scores[idx]; ok {
			continue
		}
		if _, seen := row[idx]; seen {
			continue
		}
		it := m.ItemAt(idx)
		for _, c := range preferred {
			if it.HasCategory(c) {
				scores[idx] = backfillScore
				break
			}
		}
	}
}

// quotaRanked allocates the requested count across preferred categories
// proportionally to preference rank, then interleaves the per-category lists
// round-robin. Quotas always sum to exactly n; every requested category gets
// at least one slot while slots remain. Leftover slots are filled from unused
// candidates regardless of category.
func quotaRanked(m *snapshot.Model, scores map[int]float64, preferred []string, n int) []domain.Recommendation {
	k := len(preferred)
	weights := make([]float64, k)
	var totalWeight float64
	for i := range preferred {
		weights[i] = (float64(k) - float64(i)) / float64(k)
		totalWeight += weights[i]
	}

	quotas := make([]int, k)
	sum := 0
	for i, w := range weights {
		q := int(math.Round(w / totalWeight * float64(n)))
		if q < 1 {
			q = 1
		}
		quotas[i] = q
		sum += q
	}
	// Correct rounding drift against the lowest-weight categories first,
	// keeping each at >= 1 for as long as slots allow.
	for sum > n {
		adjusted := false
		for i := k - 1; i >= 0 && sum > n; i-- {
			if quotas[i] > 1 {
				quotas[i]--
				sum--
				adjusted = true
			}
		}
		if !adjusted {
			// More categories than slots: the lowest-ranked lose theirs.
			for i := k - 1; i >= 0 && sum > n; i-- {
				if quotas[i] > 0 {
					quotas[i]--
					sum--
				}
			}
		}
	}
	for i := k - 1; sum < n; i-- {
		if i < 0 {
			i = k - 1
		}
		quotas[i]++
		sum++
	}

	// Partition candidates by their highest-ranked matching category. Every
	// candidate matches at least one preferred category by this point.
	byCategory := make([][]int, k)
	for idx := range scores {
		it := m.ItemAt(idx)
		for i, c := range preferred {
			if it.HasCategory(c) {
				byCategory[i] = append(byCategory[i], idx)
				break
			}
		}
	}
	for i := range byCategory {
		sortByScore(byCategory[i], scores)
	}

	// Round-robin across categories honoring quotas.
	taken := make([]int, k)
	used := make(map[int]bool, n)
	var picked []int
	for len(picked) < n {
		progressed := false
		for i := 0; i < k && len(picked) < n; i++ {
			if taken[i] >= quotas[i] || taken[i] >= len(byCategory[i]) {
				continue
			}
			idx := byCategory[i][taken[i]]
			taken[i]++
			picked = append(picked, idx)
			used[idx] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}

	// Fall back to any remaining candidates, best score first.
	if len(picked) < n {
		var rest []int
		for i := range byCategory {
			rest = append(rest, byCategory[i][taken[i]:]...)
		}
		sortByScore(rest, scores)
		for _, idx := range rest {
			if len(picked) >= n {
				break
			}
			if !used[idx] {
				picked = append(picked, idx)
				used[idx] = true
			}
		}
	}

	recs := make([]domain.Recommendation, 0, len(picked))
	for _, idx := range picked {
		recs = append(recs, recommendationFor(m, m.ItemAt(idx), scores[idx]))
	}
	return recs
}

// popularityFallback ranks the catalog by aggregate interaction strength,
// normalized by the maximum.
func popularityFallback(m *snapshot.Model, n int) []domain.Recommendation {
	pop := m.Popularity()
	idxs := make([]int, 0, len(pop))
	var max float64
	for i, v := range pop {
		if v > 0 {
			idxs = append(idxs, i)
		}
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return []domain.Recommendation{}
	}
	sort.Slice(idxs, func(a, b int) bool {
		if pop[idxs[a]] != pop[idxs[b]] {
			return pop[idxs[a]] > pop[idxs[b]]
		}
		return idxs[a] < idxs[b]
	})
	if len(idxs) > n {
		idxs = idxs[:n]
	}
	recs := make([]domain.Recommendation, 0, len(idxs))
	for _, i := range idxs {
		recs = append(recs, recommendationFor(m, m.ItemAt(i), pop[i]/max))
	}
	return recs
}

func topN(m *snapshot.Model, scores map[int]float64, n int) []domain.Recommendation {
	idxs := make([]int, 0, len(scores))
	for idx := range scores {
		idxs = append(idxs, idx)
	}
	sortByScore(idxs, scores)
	if len(idxs) > n {
		idxs = idxs[:n]
	}
	recs := make([]domain.Recommendation, 0, len(idxs))
	for _, idx := range idxs {
		recs = append(recs, recommendationFor(m, m.ItemAt(idx), scores[idx]))
	}
	return recs
}

// sortByScore orders arena indices by score descending, index ascending for
// equal scores so output is deterministic.
func sortByScore(idxs []int, scores map[int]float64) {
	sort.Slice(idxs, func(a, b int) bool {
		if scores[idxs[a]] != scores[idxs[b]] {
			return scores[idxs[a]] > scores[idxs[b]]
		}
		return idxs[a] < idxs[b]
	})
}

func recommendationFor(m *snapshot.Model, it domain.Item, score float64) domain.Recommendation {
	attrs := it.Attributes
	if it.Subcategory != "" || it.Difficulty > 0 {
		attrs = make(map[string]any, len(it.Attributes)+2)
		for k, v := range it.Attributes {
			attrs[k] = v
		}
		if it.Subcategory != "" {
			attrs["subcategory"] = it.Subcategory
		}
		if it.Difficulty > 0 {
			attrs["difficulty"] = it.Difficulty
		}
	}
	return domain.Recommendation{
		ItemID:     it.ID,
		Title:      it.Title,
		Domain:     m.Domain,
		Score:      score,
		Categories: it.Categories,
		Attributes: attrs,
	}
}
