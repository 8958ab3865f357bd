package domain

import "strings"

// Item is one catalog entry. Items are immutable once loaded; the free-form
// fields that differ across domains (artist, brand, price, instructor, ...)
// live in Attributes.
type Item struct {
	ID          int64          `json:"item_id"`
	Domain      Domain         `json:"domain"`
	Title       string         `json:"title"`
	Categories  []string       `json:"categories"`
	Subcategory string         `json:"subcategory,omitempty"`
	Difficulty  int            `json:"difficulty,omitempty"` // 1..3 for courses, 0 elsewhere
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// PrimaryCategory returns the first category, or "" for an uncategorized item.
func (it Item) PrimaryCategory() string {
	if len(it.Categories) == 0 {
		return ""
	}
	return it.Categories[0]
}

// HasCategory reports whether the item carries the given category.
// Matching is case-insensitive; movie items carry multiple genres.
func (it Item) HasCategory(category string) bool {
	for _, c := range it.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Artist returns the artist attribute for music items, or "".
func (it Item) Artist() string {
	s, _ := it.Attributes["artist"].(string)
	return s
}
