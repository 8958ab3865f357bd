package domain

import (
	"context"
	"time"
)

// InteractionFilter narrows interaction-log reads.
type InteractionFilter struct {
	Domain Domain    // zero value: all domains
	Since  time.Time // zero value: all time
}

// InteractionStore is the append-only interaction log. Appends must be
// serialized by the implementation; concurrent appends never lose or corrupt
// an event, and reads observe either the pre- or post-append state.
type InteractionStore interface {
	Append(ctx context.Context, i *Interaction) error
	ListByUser(ctx context.Context, userID int64, f InteractionFilter) ([]Interaction, error)
	ListByUserItem(ctx context.Context, userID, itemID int64, d Domain) ([]Interaction, error)
}

// DomainData is the raw trained input for one domain as the model store hands
// it over: the item table, the fitted item-item similarity matrix (indexed in
// item order), and the interaction strength matrix. The on-disk format is the
// store's business; the core only sees this shape.
type DomainData struct {
	Items      []Item
	Similarity [][]float64
	// Strengths maps user ID to item ID to interaction strength, using the
	// domain-specific weighting (ratings, damped play counts, enrollment
	// plus completion, ...).
	Strengths map[int64]map[int64]float64
}

// ModelStore loads immutable trained snapshots. Training itself happens
// offline, outside this process.
type ModelStore interface {
	LoadDomain(ctx context.Context, d Domain) (*DomainData, error)
	// LoadRanker returns the learned relevance model, or nil when none has
	// been trained yet. A nil model is not an error.
	LoadRanker(ctx context.Context) (*LinearModel, error)
}
