package snapshot

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/unirec/unirec/internal/domain"
	"go.uber.org/zap"
)

// Set is one complete, immutable generation of trained state across all
// domains plus the optional learned ranker. The scoring path always reads a
// whole Set, never a half-rebuilt one.
type Set struct {
	Generation uint64
	Ranker     domain.RelevanceModel

	models map[domain.Domain]*Model
}

// Domain returns the model for d, or ErrModelNotLoaded when the domain's
// trained data was unavailable at load time.
func (s *Set) Domain(d domain.Domain) (*Model, error) {
	if d.Index() < 0 {
		return nil, domain.ErrUnknownDomain
	}
	m, ok := s.models[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotLoaded, d)
	}
	return m, nil
}

// Loaded reports which domains have a model in this set.
func (s *Set) Loaded() map[domain.Domain]bool {
	out := make(map[domain.Domain]bool, len(domain.AllDomains))
	for _, d := range domain.AllDomains {
		_, ok := s.models[d]
		out[d] = ok
	}
	return out
}

// Manager hands out the current snapshot Set and swaps in new generations
// atomically. Readers that grabbed the old Set keep a consistent view until
// they finish.
type Manager struct {
	store  domain.ModelStore
	logger *zap.Logger

	current atomic.Pointer[Set]
	gen     atomic.Uint64
}

func NewManager(store domain.ModelStore, logger *zap.Logger) *Manager {
	m := &Manager{store: store, logger: logger}
	m.current.Store(&Set{models: map[domain.Domain]*Model{}})
	return m
}

// Current returns the live snapshot set. Never nil.
func (m *Manager) Current() *Set {
	return m.current.Load()
}

// Generation returns the generation counter of the live set.
func (m *Manager) Generation() uint64 {
	return m.Current().Generation
}

// Reload loads every domain from the model store, builds a fresh Set, and
// swaps it in. A domain that fails to load is left out of the new set (its
// requests get ErrModelNotLoaded) rather than failing the whole reload.
func (m *Manager) Reload(ctx context.Context) error {
	set := &Set{
		Generation: m.gen.Add(1),
		models:     make(map[domain.Domain]*Model, len(domain.AllDomains)),
	}

	for _, d := range domain.AllDomains {
		data, err := m.store.LoadDomain(ctx, d)
		if err != nil {
			m.logger.Warn("domain model unavailable",
				zap.String("domain", d.String()),
				zap.Error(err),
			)
			continue
		}
		model, err := Build(d, data)
		if err != nil {
			m.logger.Error("domain model rejected",
				zap.String("domain", d.String()),
				zap.Error(err),
			)
			continue
		}
		set.models[d] = model
		m.logger.Info("domain model loaded",
			zap.String("domain", d.String()),
			zap.Int("items", model.NumItems()),
			zap.Int("users", len(model.UserIDs())),
		)
	}

	ranker, err := m.store.LoadRanker(ctx)
	if err != nil {
		m.logger.Warn("ranker weights unavailable, using raw score ordering", zap.Error(err))
	} else if ranker != nil {
		set.Ranker = ranker
	}

	if len(set.models) == 0 {
		return fmt.Errorf("no domain models loaded")
	}

	m.current.Store(set)
	m.logger.Info("snapshot swapped",
		zap.Uint64("generation", set.Generation),
		zap.Int("domains", len(set.models)),
	)
	return nil
}
