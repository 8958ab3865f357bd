package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unirec/unirec/internal/domain"
	"go.uber.org/zap"
)

func TestFuserBuildUnifiedProfile_EngagedDomainsOnly(t *testing.T) {
	store := newMockModelStore()
	store.data[domain.DomainMovies] = movieData()
	store.data[domain.DomainMusic] = musicData()
	mgr := newTestManager(t, store)
	f := NewFuser(mgr, zap.NewNop())

	// User 1 has history in movies and music but courses were never loaded.
	p := f.BuildUnifiedProfile(context.Background(), 1)
	assert.True(t, p.Engaged[domain.DomainMovies])
	assert.True(t, p.Engaged[domain.DomainMusic])
	assert.False(t, p.Engaged[domain.DomainCourses])
	assert.False(t, p.Engaged[domain.DomainProducts])
	assert.Equal(t, 2, p.EngagedCount())
}

func TestFuserBuildUnifiedProfile_PadsToLongestEmbedding(t *testing.T) {
	store := newMockModelStore()
	store.data[domain.DomainMovies] = movieData() // 5 items
	store.data[domain.DomainMusic] = musicData()  // 4 items
	mgr := newTestManager(t, store)
	f := NewFuser(mgr, zap.NewNop())

	p := f.BuildUnifiedProfile(context.Background(), 1)
	assert.Len(t, p.Embedding, 5)

	// The music embedding ends at index 3, so position 4 only carries the
	// movie contribution: weight 1.0/1.8 times the movie embedding there.
	movies := testModel(t, mgr, domain.DomainMovies)
	want := 1.0 / 1.8 * movies.Profile(1).Embedding[4]
	assert.InDelta(t, want, p.Embedding[4], 1e-9)
}

func TestFuserBuildUnifiedProfile_WeightedAverage(t *testing.T) {
	store := newMockModelStore()
	store.data[domain.DomainMovies] = movieData()
	store.data[domain.DomainMusic] = musicData()
	mgr := newTestManager(t, store)
	f := NewFuser(mgr, zap.NewNop())

	p := f.BuildUnifiedProfile(context.Background(), 1)
	movies := testModel(t, mgr, domain.DomainMovies)
	music := testModel(t, mgr, domain.DomainMusic)

	// Fusion weights: movies 1.0, music 0.8.
	want := (1.0*movies.Profile(1).Embedding[0] + 0.8*music.Profile(1).Embedding[0]) / 1.8
	assert.InDelta(t, want, p.Embedding[0], 1e-9)
}

func TestFuserBuildUnifiedProfile_NoHistory(t *testing.T) {
	store := newMockModelStore()
	store.data[domain.DomainMovies] = movieData()
	mgr := newTestManager(t, store)
	f := NewFuser(mgr, zap.NewNop())

	p := f.BuildUnifiedProfile(context.Background(), 999)
	assert.Equal(t, 0, p.EngagedCount())
	assert.Empty(t, p.Embedding)
}

func TestFuserCache_InvalidatedByReload(t *testing.T) {
	store := newMockModelStore()
	store.data[domain.DomainMovies] = movieData()
	mgr := newTestManager(t, store)
	f := NewFuser(mgr, zap.NewNop())

	first := f.BuildUnifiedProfile(context.Background(), 1)
	again := f.BuildUnifiedProfile(context.Background(), 1)
	assert.Same(t, first, again, "same generation should hit the cache")

	if err := mgr.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	fresh := f.BuildUnifiedProfile(context.Background(), 1)
	assert.NotSame(t, first, fresh, "new generation should rebuild")

	// The rebuilt profile is numerically identical; only identity changes.
	for i := range first.Embedding {
		if math.Abs(first.Embedding[i]-fresh.Embedding[i]) > 1e-12 {
			t.Fatalf("embedding drifted at %d after reload", i)
		}
	}
}
