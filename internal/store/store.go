// Package store persists the indexed knowledge base in SQLite and serves it
// to requests as a read-only catalog.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/askfolio/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// RecordStore exposes the knowledge items and their importance rankings.
// Both calls are pure reads.
type RecordStore interface {
	LoadItems(ctx context.Context) ([]model.Item, error)
	LoadRankings(ctx context.Context) ([]model.ImportanceRanking, error)
}

// ProfileSource is implemented by record stores that also carry contact data.
type ProfileSource interface {
	LoadProfile(ctx context.Context) (model.Profile, error)
}

// VectorSource is implemented by record stores holding precomputed passage
// vectors, keyed by item id.
type VectorSource interface {
	LoadVectors(ctx context.Context) (map[string][][]float32, error)
}

// LinkSource is implemented by record stores holding item links.
type LinkSource interface {
	LoadLinks(ctx context.Context) ([]Link, error)
}

// PassageVector is one embedded passage of an item.
type PassageVector struct {
	ItemID string
	Seq    int
	Text   string
	Vector []float32
}

// IndexData is everything one indexing run writes.
type IndexData struct {
	Version    string
	Profile    model.Profile
	Items      []model.Item
	Rankings   []model.ImportanceRanking
	Passages   []PassageVector
	Links      []Link
	EmbedModel string
	Dims       int
}

// ListParams holds parameters for listing items.
type ListParams struct {
	Kind  model.Kind
	Limit int
}

// SearchParams holds parameters for a lexical item search.
type SearchParams struct {
	Query string
	Kind  model.Kind
	Limit int
}

// SearchResult wraps an item with the passage that matched, if any.
type SearchResult struct {
	Item         model.Item `json:"item"`
	MatchPassage string     `json:"match_passage,omitempty"`
}
