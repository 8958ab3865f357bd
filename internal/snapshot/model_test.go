package snapshot

import (
	"math"
	"testing"

	"github.com/unirec/unirec/internal/domain"
)

func sampleData() *domain.DomainData {
	return &domain.DomainData{
		Items: []domain.Item{
			{ID: 1, Domain: domain.DomainMovies, Title: "A", Categories: []string{"Action"}},
			{ID: 2, Domain: domain.DomainMovies, Title: "B", Categories: []string{"Action"}},
			{ID: 3, Domain: domain.DomainMovies, Title: "C", Categories: []string{"Drama"}},
		},
		Similarity: [][]float64{
			{1.0, 0.5, 0.2},
			{0.5, 1.0, 0.4},
			{0.2, 0.4, 1.0},
		},
		Strengths: map[int64]map[int64]float64{
			1: {1: 4, 3: 2},
		},
	}
}

func TestBuild(t *testing.T) {
	m, err := Build(domain.DomainMovies, sampleData())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.NumItems() != 3 {
		t.Errorf("items = %d, want 3", m.NumItems())
	}
	if len(m.UserIDs()) != 1 {
		t.Errorf("users = %d, want 1", len(m.UserIDs()))
	}
	if _, ok := m.ItemByID(2); !ok {
		t.Error("expected item 2 in index")
	}
}

func TestBuild_RejectsBadSimilarity(t *testing.T) {
	data := sampleData()
	data.Similarity = data.Similarity[:2]
	if _, err := Build(domain.DomainMovies, data); err == nil {
		t.Error("expected error for wrong row count")
	}

	data = sampleData()
	data.Similarity[1] = []float64{1.0}
	if _, err := Build(domain.DomainMovies, data); err == nil {
		t.Error("expected error for ragged row")
	}
}

func TestBuild_RejectsDuplicateItems(t *testing.T) {
	data := sampleData()
	data.Items[2].ID = 1
	if _, err := Build(domain.DomainMovies, data); err == nil {
		t.Error("expected error for duplicate item id")
	}
}

func TestBuild_SkipsUnknownAndNonPositiveStrengths(t *testing.T) {
	data := sampleData()
	data.Strengths[2] = map[int64]float64{99: 5, 1: 0}
	m, err := Build(domain.DomainMovies, data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.Profile(2) != nil {
		t.Error("user with no usable strengths should have no profile")
	}
}

func TestDeriveProfile_EmbeddingIsWeightedSimilarity(t *testing.T) {
	m, err := Build(domain.DomainMovies, sampleData())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	p := m.Profile(1)
	if p == nil {
		t.Fatal("expected profile for user 1")
	}

	// Anchors: item 1 (strength 4, weight 2/3) and item 3 (strength 2,
	// weight 1/3).
	want := []float64{
		2.0/3.0*1.0 + 1.0/3.0*0.2,
		2.0/3.0*0.5 + 1.0/3.0*0.4,
		2.0/3.0*0.2 + 1.0/3.0*1.0,
	}
	for i := range want {
		if math.Abs(p.Embedding[i]-want[i]) > 1e-12 {
			t.Errorf("embedding[%d] = %v, want %v", i, p.Embedding[i], want[i])
		}
	}

	if p.CategoryWeights["Action"] != 4 || p.CategoryWeights["Drama"] != 2 {
		t.Errorf("unexpected category weights: %v", p.CategoryWeights)
	}
	if p.AnchorItems[1] != 4 || p.AnchorItems[3] != 2 {
		t.Errorf("unexpected anchors: %v", p.AnchorItems)
	}
}

func TestDeriveProfile_CourseSkillLevel(t *testing.T) {
	data := &domain.DomainData{
		Items: []domain.Item{
			{ID: 1, Domain: domain.DomainCourses, Title: "A", Categories: []string{"Programming"}, Subcategory: "Backend", Difficulty: 1},
			{ID: 2, Domain: domain.DomainCourses, Title: "B", Categories: []string{"Programming"}, Subcategory: "Backend", Difficulty: 3},
		},
		Similarity: [][]float64{{1, 0.5}, {0.5, 1}},
		Strengths:  map[int64]map[int64]float64{1: {1: 1, 2: 1}},
	}
	m, err := Build(domain.DomainCourses, data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	p := m.Profile(1)
	if p.SkillLevel != 2 {
		t.Errorf("skill level = %v, want 2", p.SkillLevel)
	}
	if p.SecondaryWeights["Backend"] != 2 {
		t.Errorf("secondary weights = %v, want Backend 2", p.SecondaryWeights)
	}
}

func TestDeriveProfile_MusicLogDamping(t *testing.T) {
	data := &domain.DomainData{
		Items: []domain.Item{
			{ID: 1, Domain: domain.DomainMusic, Title: "A", Categories: []string{"Jazz"}, Attributes: map[string]any{"artist": "X"}},
			{ID: 2, Domain: domain.DomainMusic, Title: "B", Categories: []string{"Jazz"}, Attributes: map[string]any{"artist": "X"}},
		},
		Similarity: [][]float64{{1, 0.9}, {0.9, 1}},
		Strengths:  map[int64]map[int64]float64{1: {1: 30, 2: 10}},
	}
	m, err := Build(domain.DomainMusic, data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	p := m.Profile(1)
	if got, want := p.CategoryWeights["Jazz"], math.Log1p(40); math.Abs(got-want) > 1e-12 {
		t.Errorf("Jazz weight = %v, want log1p(40) = %v", got, want)
	}
	if got, want := p.SecondaryWeights["X"], math.Log1p(40); math.Abs(got-want) > 1e-12 {
		t.Errorf("artist weight = %v, want log1p(40) = %v", got, want)
	}
}

func TestDeriveProfile_ProductMeanCategory(t *testing.T) {
	data := &domain.DomainData{
		Items: []domain.Item{
			{ID: 1, Domain: domain.DomainProducts, Title: "A", Categories: []string{"Audio"}},
			{ID: 2, Domain: domain.DomainProducts, Title: "B", Categories: []string{"Audio"}},
		},
		Similarity: [][]float64{{1, 0.6}, {0.6, 1}},
		Strengths:  map[int64]map[int64]float64{1: {1: 5, 2: 3}},
	}
	m, err := Build(domain.DomainProducts, data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	p := m.Profile(1)
	if p.CategoryWeights["Audio"] != 4 {
		t.Errorf("Audio weight = %v, want mean rating 4", p.CategoryWeights["Audio"])
	}
}

func TestSecondaryKey(t *testing.T) {
	music, _ := Build(domain.DomainMusic, &domain.DomainData{
		Items:      []domain.Item{{ID: 1, Title: "A", Attributes: map[string]any{"artist": "X"}, Subcategory: "ignored"}},
		Similarity: [][]float64{{1}},
		Strengths:  map[int64]map[int64]float64{},
	})
	if got := music.SecondaryKey(music.ItemAt(0)); got != "X" {
		t.Errorf("music secondary key = %q, want artist", got)
	}

	courses, _ := Build(domain.DomainCourses, &domain.DomainData{
		Items:      []domain.Item{{ID: 1, Title: "A", Subcategory: "Backend"}},
		Similarity: [][]float64{{1}},
		Strengths:  map[int64]map[int64]float64{},
	})
	if got := courses.SecondaryKey(courses.ItemAt(0)); got != "Backend" {
		t.Errorf("course secondary key = %q, want subcategory", got)
	}
}
