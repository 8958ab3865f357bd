package snapshot

import (
	"fmt"
	"math"

	"github.com/unirec/unirec/internal/domain"
)

// Model is the immutable per-domain snapshot the scoring path reads: an item
// arena, the fitted item-item similarity matrix indexed in arena order, sparse
// per-user interaction rows over arena indices, and the per-user profiles
// derived from those rows. A Model is never mutated after Build returns;
// retraining builds a fresh one and swaps it in atomically.
type Model struct {
	Domain domain.Domain
	Params Params

	items     []domain.Item
	indexByID map[int64]int

	// similarity[i][j] is the content similarity of arena items i and j.
	similarity [][]float64

	// rows holds each user's interaction strengths keyed by arena index.
	rows map[int64]map[int]float64

	// userIDs is a stable iteration order for neighbor search.
	userIDs []int64

	profiles map[int64]*domain.UserProfile

	// popularity is the total interaction strength per arena index, used for
	// the cold-start fallback.
	popularity []float64
}

// Build derives a Model from raw trained data. Profiles are recomputed
// wholesale here for every user with at least one interaction.
func Build(d domain.Domain, data *domain.DomainData) (*Model, error) {
	n := len(data.Items)
	if len(data.Similarity) != n {
		return nil, fmt.Errorf("similarity matrix is %dx? for %d items", len(data.Similarity), n)
	}
	for i, row := range data.Similarity {
		if len(row) != n {
			return nil, fmt.Errorf("similarity row %d has %d columns, want %d", i, len(row), n)
		}
	}

	m := &Model{
		Domain:     d,
		Params:     DefaultParams(d),
		items:      data.Items,
		indexByID:  make(map[int64]int, n),
		similarity: data.Similarity,
		rows:       make(map[int64]map[int]float64, len(data.Strengths)),
		profiles:   make(map[int64]*domain.UserProfile, len(data.Strengths)),
		popularity: make([]float64, n),
	}
	for i, it := range data.Items {
		if _, dup := m.indexByID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %d", it.ID)
		}
		m.indexByID[it.ID] = i
	}

	for userID, strengths := range data.Strengths {
		row := make(map[int]float64, len(strengths))
		for itemID, s := range strengths {
			idx, ok := m.indexByID[itemID]
			if !ok || s <= 0 {
				continue
			}
			row[idx] = s
			m.popularity[idx] += s
		}
		if len(row) == 0 {
			continue
		}
		m.rows[userID] = row
		m.userIDs = append(m.userIDs, userID)
		m.profiles[userID] = m.deriveProfile(row)
	}

	return m, nil
}

// deriveProfile computes the anchor-item similarity profile: the embedding is
// the strength-weighted average of similarity rows, category weights
// accumulate strength per category, and for courses the skill level is the
// mean anchor difficulty.
func (m *Model) deriveProfile(row map[int]float64) *domain.UserProfile {
	p := &domain.UserProfile{
		Embedding:       make([]float64, len(m.items)),
		AnchorItems:     make(map[int64]float64, len(row)),
		CategoryWeights: make(map[string]float64),
	}
	if m.Params.SecondaryBoost > 0 {
		p.SecondaryWeights = make(map[string]float64)
	}

	var total float64
	for _, s := range row {
		total += s
	}

	categoryCounts := make(map[string]int)
	var difficultySum float64
	var difficultyCount int

	for idx, s := range row {
		it := m.items[idx]
		p.AnchorItems[it.ID] = s

		w := s / total
		for j, sim := range m.similarity[idx] {
			p.Embedding[j] += w * sim
		}

		for _, c := range it.Categories {
			p.CategoryWeights[c] += s
			categoryCounts[c]++
		}
		if p.SecondaryWeights != nil {
			if key := m.SecondaryKey(it); key != "" {
				p.SecondaryWeights[key] += s
			}
		}
		if it.Difficulty > 0 {
			difficultySum += float64(it.Difficulty)
			difficultyCount++
		}
	}

	if m.Params.MeanCategory {
		for c, sum := range p.CategoryWeights {
			p.CategoryWeights[c] = sum / float64(categoryCounts[c])
		}
	}
	if m.Params.LogStrength {
		for c, sum := range p.CategoryWeights {
			p.CategoryWeights[c] = math.Log1p(sum)
		}
		for k, sum := range p.SecondaryWeights {
			p.SecondaryWeights[k] = math.Log1p(sum)
		}
	}
	if difficultyCount > 0 {
		p.SkillLevel = difficultySum / float64(difficultyCount)
	}

	return p
}

// SecondaryKey returns the item's value on the domain's secondary preference
// dimension: artist for music, subcategory elsewhere.
func (m *Model) SecondaryKey(it domain.Item) string {
	if m.Domain == domain.DomainMusic {
		return it.Artist()
	}
	return it.Subcategory
}

// NumItems returns the catalog size.
func (m *Model) NumItems() int { return len(m.items) }

// ItemAt returns the arena item at index i.
func (m *Model) ItemAt(i int) domain.Item { return m.items[i] }

// ItemByID looks an item up by its external ID.
func (m *Model) ItemByID(id int64) (domain.Item, bool) {
	i, ok := m.indexByID[id]
	if !ok {
		return domain.Item{}, false
	}
	return m.items[i], true
}

// Profile returns the user's derived profile, or nil for an unknown user.
func (m *Model) Profile(userID int64) *domain.UserProfile {
	return m.profiles[userID]
}

// Row returns the user's interaction strengths keyed by arena index.
func (m *Model) Row(userID int64) map[int]float64 {
	return m.rows[userID]
}

// UserIDs returns the users with at least one interaction, in build order.
func (m *Model) UserIDs() []int64 { return m.userIDs }

// Similarity returns the similarity row for arena index i.
func (m *Model) Similarity(i int) []float64 { return m.similarity[i] }

// Popularity returns aggregate interaction strength per arena index.
func (m *Model) Popularity() []float64 { return m.popularity }
