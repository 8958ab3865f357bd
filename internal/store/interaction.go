package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unirec/unirec/internal/domain"
)

type InteractionStore struct {
	db *pgxpool.Pool
}

func NewInteractionStore(db *pgxpool.Pool) *InteractionStore {
	return &InteractionStore{db: db}
}

func (s *InteractionStore) Append(ctx context.Context, i *domain.Interaction) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO interactions (id, user_id, item_id, domain, action, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		i.ID, i.UserID, i.ItemID, i.Domain, i.Action, i.Metadata,
	).Scan(&i.CreatedAt)
}

func (s *InteractionStore) ListByUser(ctx context.Context, userID int64, f domain.InteractionFilter) ([]domain.Interaction, error) {
	query := `SELECT id, user_id, item_id, domain, action, metadata, created_at
		 FROM interactions WHERE user_id = $1`
	args := []any{userID}
	if f.Domain != "" {
		args = append(args, f.Domain)
		query += ` AND domain = $2`
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func (s *InteractionStore) ListByUserItem(ctx context.Context, userID, itemID int64, d domain.Domain) ([]domain.Interaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, item_id, domain, action, metadata, created_at
		 FROM interactions
		 WHERE user_id = $1 AND item_id = $2 AND domain = $3
		 ORDER BY created_at ASC`,
		userID, itemID, d,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func scanInteractions(rows pgx.Rows) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for rows.Next() {
		var i domain.Interaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.ItemID, &i.Domain, &i.Action, &i.Metadata, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
