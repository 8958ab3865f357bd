package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind is the type of a logged user interaction.
type ActionKind string

const (
	ActionView      ActionKind = "view"
	ActionClick     ActionKind = "click"
	ActionLike      ActionKind = "like"
	ActionDislike   ActionKind = "dislike"
	ActionRate      ActionKind = "rate"
	ActionPurchase  ActionKind = "purchase"
	ActionEnroll    ActionKind = "enroll"
	ActionComplete  ActionKind = "complete"
	ActionSkip      ActionKind = "skip"
	ActionTimeSpent ActionKind = "time_spent"
)

func ValidAction(s string) bool {
	switch ActionKind(s) {
	case ActionView, ActionClick, ActionLike, ActionDislike, ActionRate,
		ActionPurchase, ActionEnroll, ActionComplete, ActionSkip, ActionTimeSpent:
		return true
	}
	return false
}

// Positive reports whether the action counts as a positive signal when
// deriving preference updates from behavior.
func (a ActionKind) Positive() bool {
	switch a {
	case ActionLike, ActionPurchase, ActionEnroll, ActionComplete, ActionRate:
		return true
	}
	return false
}

// Interaction is one logged event. Events are append-only: they are never
// mutated or deleted, the history is part of the feedback contract.
type Interaction struct {
	ID        uuid.UUID      `json:"id"`
	UserID    int64          `json:"user_id"`
	ItemID    int64          `json:"item_id"`
	Domain    Domain         `json:"domain"`
	Action    ActionKind     `json:"action_kind"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Rating returns the rating carried by a rate event, if any.
func (i Interaction) Rating() (float64, bool) {
	v, ok := i.Metadata["rating"]
	if !ok {
		return 0, false
	}
	switch r := v.(type) {
	case float64:
		return r, true
	case int:
		return float64(r), true
	}
	return 0, false
}

// Duration returns the seconds carried by a time_spent event, if any.
func (i Interaction) Duration() (float64, bool) {
	v, ok := i.Metadata["duration"]
	if !ok {
		return 0, false
	}
	switch d := v.(type) {
	case float64:
		return d, true
	case int:
		return float64(d), true
	}
	return 0, false
}

// InteractionStats summarizes a user's logged behavior.
type InteractionStats struct {
	Total           int                `json:"total_interactions"`
	ByDomain        map[Domain]int     `json:"by_domain"`
	ByAction        map[ActionKind]int `json:"by_action"`
	EngagementScore float64            `json:"engagement_score"`
	DaysActive      int                `json:"days_active"`
}
