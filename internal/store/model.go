package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/unirec/unirec/internal/domain"
)

var ErrNotFound = errors.New("not found")

// ModelStore reads offline-trained artifacts: the per-domain catalogs,
// item-item similarity rows, interaction strengths, and the optional learned
// ranker weights. Similarity rows live as pgvector columns so a trained matrix
// round-trips without reshaping.
type ModelStore struct {
	db *pgxpool.Pool
}

func NewModelStore(db *pgxpool.Pool) *ModelStore {
	return &ModelStore{db: db}
}

func (s *ModelStore) LoadDomain(ctx context.Context, d domain.Domain) (*domain.DomainData, error) {
	items, err := s.loadItems(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items for domain %s", ErrNotFound, d)
	}
	similarity, err := s.loadSimilarity(ctx, d, len(items))
	if err != nil {
		return nil, fmt.Errorf("load similarity: %w", err)
	}
	strengths, err := s.loadStrengths(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("load strengths: %w", err)
	}
	return &domain.DomainData{Items: items, Similarity: similarity, Strengths: strengths}, nil
}

func (s *ModelStore) loadItems(ctx context.Context, d domain.Domain) ([]domain.Item, error) {
	rows, err := s.db.Query(ctx,
		`SELECT item_id, title, categories, subcategory, difficulty, attributes
		 FROM catalog_items WHERE domain = $1 ORDER BY position ASC`,
		d,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it := domain.Item{Domain: d}
		if err := rows.Scan(&it.ID, &it.Title, &it.Categories, &it.Subcategory, &it.Difficulty, &it.Attributes); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// loadSimilarity reads one pgvector row per item, in item position order.
// The row count and every vector's length must equal the item count.
func (s *ModelStore) loadSimilarity(ctx context.Context, d domain.Domain, numItems int) ([][]float64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT similarities FROM item_similarity
		 WHERE domain = $1 ORDER BY position ASC`,
		d,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matrix := make([][]float64, 0, numItems)
	for rows.Next() {
		var v pgvector.Vector
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		raw := v.Slice()
		row := make([]float64, len(raw))
		for i, f := range raw {
			row[i] = float64(f)
		}
		matrix = append(matrix, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(matrix) != numItems {
		return nil, fmt.Errorf("similarity has %d rows, catalog has %d items", len(matrix), numItems)
	}
	return matrix, nil
}

func (s *ModelStore) loadStrengths(ctx context.Context, d domain.Domain) (map[int64]map[int64]float64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, item_id, strength FROM interaction_strengths WHERE domain = $1`,
		d,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	strengths := make(map[int64]map[int64]float64)
	for rows.Next() {
		var userID, itemID int64
		var strength float64
		if err := rows.Scan(&userID, &itemID, &strength); err != nil {
			return nil, err
		}
		if strengths[userID] == nil {
			strengths[userID] = make(map[int64]float64)
		}
		strengths[userID][itemID] = strength
	}
	return strengths, rows.Err()
}

// LoadRanker returns the most recently trained relevance weights, or nil when
// none exist yet.
func (s *ModelStore) LoadRanker(ctx context.Context) (*domain.LinearModel, error) {
	m := &domain.LinearModel{}
	err := s.db.QueryRow(ctx,
		`SELECT movies_engaged, products_engaged, music_engaged, courses_engaged,
		        engaged_domains, item_score, domain_index,
		        education_boost, audio_boost, practical_boost, bias
		 FROM ranker_weights ORDER BY trained_at DESC LIMIT 1`,
	).Scan(&m.MoviesEngaged, &m.ProductsEngaged, &m.MusicEngaged, &m.CoursesEngaged,
		&m.EngagedDomains, &m.ItemScore, &m.DomainIndex,
		&m.EducationBoost, &m.AudioBoost, &m.PracticalBoost, &m.Bias)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
