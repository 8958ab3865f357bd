package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/snapshot"
	"go.uber.org/zap"
)

// mockModelStore implements domain.ModelStore for testing.
type mockModelStore struct {
	data   map[domain.Domain]*domain.DomainData
	ranker *domain.LinearModel
}

func newMockModelStore() *mockModelStore {
	return &mockModelStore{data: make(map[domain.Domain]*domain.DomainData)}
}

func (m *mockModelStore) LoadDomain(ctx context.Context, d domain.Domain) (*domain.DomainData, error) {
	data, ok := m.data[d]
	if !ok {
		return nil, fmt.Errorf("no data for %s", d)
	}
	return data, nil
}

func (m *mockModelStore) LoadRanker(ctx context.Context) (*domain.LinearModel, error) {
	return m.ranker, nil
}

// mockInteractionStore implements domain.InteractionStore in memory.
type mockInteractionStore struct {
	mu     sync.Mutex
	events []domain.Interaction
	failed bool
}

func newMockInteractionStore() *mockInteractionStore {
	return &mockInteractionStore{}
}

func (m *mockInteractionStore) Append(ctx context.Context, i *domain.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return fmt.Errorf("append refused")
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, *i)
	return nil
}

func (m *mockInteractionStore) ListByUser(ctx context.Context, userID int64, f domain.InteractionFilter) ([]domain.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return nil, fmt.Errorf("list refused")
	}
	var out []domain.Interaction
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		if f.Domain != "" && e.Domain != f.Domain {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockInteractionStore) ListByUserItem(ctx context.Context, userID, itemID int64, d domain.Domain) ([]domain.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return nil, fmt.Errorf("list refused")
	}
	var out []domain.Interaction
	for _, e := range m.events {
		if e.UserID == userID && e.ItemID == itemID && e.Domain == d {
			out = append(out, e)
		}
	}
	return out, nil
}

// movieData is a five-item catalog with three users:
//
//	items: 1 Action, 2 Action, 3 Drama, 4 Drama, 5 Comedy
//	user 1 watched item 1; user 2 watched 1 and 2; user 3 watched 1 and 3.
func movieData() *domain.DomainData {
	items := []domain.Item{
		{ID: 1, Domain: domain.DomainMovies, Title: "Edge of the Grid", Categories: []string{"Action"}},
		{ID: 2, Domain: domain.DomainMovies, Title: "Final Descent", Categories: []string{"Action"}},
		{ID: 3, Domain: domain.DomainMovies, Title: "Winter Letters", Categories: []string{"Drama"}},
		{ID: 4, Domain: domain.DomainMovies, Title: "The Quiet Year", Categories: []string{"Drama"}},
		{ID: 5, Domain: domain.DomainMovies, Title: "Double Booked", Categories: []string{"Comedy"}},
	}
	sim := [][]float64{
		{1.0, 0.8, 0.2, 0.1, 0.3},
		{0.8, 1.0, 0.3, 0.2, 0.2},
		{0.2, 0.3, 1.0, 0.7, 0.1},
		{0.1, 0.2, 0.7, 1.0, 0.1},
		{0.3, 0.2, 0.1, 0.1, 1.0},
	}
	strengths := map[int64]map[int64]float64{
		1: {1: 5},
		2: {1: 5, 2: 4},
		3: {1: 4, 3: 5},
	}
	return &domain.DomainData{Items: items, Similarity: sim, Strengths: strengths}
}

// musicData exercises the secondary (artist) dimension and log damping.
func musicData() *domain.DomainData {
	items := []domain.Item{
		{ID: 10, Domain: domain.DomainMusic, Title: "Blue Hours", Categories: []string{"Jazz"}, Attributes: map[string]any{"artist": "Mara Quinn"}},
		{ID: 11, Domain: domain.DomainMusic, Title: "Night Set", Categories: []string{"Jazz"}, Attributes: map[string]any{"artist": "Mara Quinn"}},
		{ID: 12, Domain: domain.DomainMusic, Title: "Feedback Loop", Categories: []string{"Rock"}, Attributes: map[string]any{"artist": "Static Era"}},
		{ID: 13, Domain: domain.DomainMusic, Title: "Stage Dive", Categories: []string{"Rock"}, Attributes: map[string]any{"artist": "Static Era"}},
	}
	sim := [][]float64{
		{1.0, 0.9, 0.1, 0.1},
		{0.9, 1.0, 0.1, 0.1},
		{0.1, 0.1, 1.0, 0.8},
		{0.1, 0.1, 0.8, 1.0},
	}
	strengths := map[int64]map[int64]float64{
		1: {10: 25},
		2: {10: 12, 12: 30},
	}
	return &domain.DomainData{Items: items, Similarity: sim, Strengths: strengths}
}

// courseData exercises difficulty matching.
func courseData() *domain.DomainData {
	items := []domain.Item{
		{ID: 20, Domain: domain.DomainCourses, Title: "Go Basics", Categories: []string{"Programming"}, Subcategory: "Backend", Difficulty: 1},
		{ID: 21, Domain: domain.DomainCourses, Title: "Concurrent Go", Categories: []string{"Programming"}, Subcategory: "Backend", Difficulty: 2},
		{ID: 22, Domain: domain.DomainCourses, Title: "Distributed Systems", Categories: []string{"Programming"}, Subcategory: "Backend", Difficulty: 3},
		{ID: 23, Domain: domain.DomainCourses, Title: "Watercolor Start", Categories: []string{"Art"}, Subcategory: "Painting", Difficulty: 1},
	}
	sim := [][]float64{
		{1.0, 0.7, 0.4, 0.0},
		{0.7, 1.0, 0.6, 0.0},
		{0.4, 0.6, 1.0, 0.0},
		{0.0, 0.0, 0.0, 1.0},
	}
	strengths := map[int64]map[int64]float64{
		1: {20: 1.5},
	}
	return &domain.DomainData{Items: items, Similarity: sim, Strengths: strengths}
}

// newTestManager loads the given data into a fresh snapshot manager.
func newTestManager(t *testing.T, store *mockModelStore) *snapshot.Manager {
	t.Helper()
	mgr := snapshot.NewManager(store, zap.NewNop())
	if err := mgr.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return mgr
}

func testModel(t *testing.T, mgr *snapshot.Manager, d domain.Domain) *snapshot.Model {
	t.Helper()
	m, err := mgr.Current().Domain(d)
	if err != nil {
		t.Fatalf("domain %s: %v", d, err)
	}
	return m
}
