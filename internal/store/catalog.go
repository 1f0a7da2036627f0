package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rcliao/askfolio/internal/alias"
	"github.com/rcliao/askfolio/internal/model"
)

// CatalogData is the raw material of a Catalog.
type CatalogData struct {
	Items    []model.Item
	Rankings []model.ImportanceRanking
	Vectors  map[string][][]float32
	Links    []Link
	Profile  model.Profile
}

// Catalog is the read-only, process-wide view of the knowledge base that
// requests run against. It is never mutated after construction, so any
// number of goroutines may read it without locking.
type Catalog struct {
	Items   []model.Item
	Profile model.Profile
	Aliases *alias.Index

	byID       map[string]model.Item
	importance map[string]float64
	vectors    map[string][][]float32
	links      map[string][]Link
}

// NewCatalog indexes d. Rankings and vectors for unknown ids are dropped.
func NewCatalog(d CatalogData) *Catalog {
	c := &Catalog{
		Items:      d.Items,
		Profile:    d.Profile,
		Aliases:    alias.Build(d.Items),
		byID:       make(map[string]model.Item, len(d.Items)),
		importance: make(map[string]float64, len(d.Rankings)),
		vectors:    make(map[string][][]float32, len(d.Vectors)),
		links:      make(map[string][]Link),
	}
	for _, it := range d.Items {
		c.byID[it.ItemID()] = it
	}
	for _, r := range d.Rankings {
		if _, ok := c.byID[r.ID]; ok {
			c.importance[r.ID] = r.Score
		}
	}
	for id, vs := range d.Vectors {
		if _, ok := c.byID[id]; ok && len(vs) > 0 {
			c.vectors[id] = vs
		}
	}
	for _, l := range d.Links {
		c.links[l.FromID] = append(c.links[l.FromID], l)
	}
	return c
}

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (model.Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Lookup resolves ids to items, skipping unknown ones.
func (c *Catalog) Lookup(ids []string) []model.Item {
	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := c.byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Importance returns the item's importance score in [0,100], 0 if unranked.
func (c *Catalog) Importance(id string) float64 {
	return c.importance[id]
}

// Rankings returns the importance table keyed by id. Callers must not
// modify it.
func (c *Catalog) Rankings() map[string]float64 {
	return c.importance
}

// Vectors returns the passage vectors of an item.
func (c *Catalog) Vectors(id string) [][]float32 {
	return c.vectors[id]
}

// HasVectors reports whether any item carries vectors.
func (c *Catalog) HasVectors() bool {
	return len(c.vectors) > 0
}

// Related returns the outgoing links of an item, strongest first.
func (c *Catalog) Related(id string) []Link {
	return c.links[id]
}

// LoadData reads everything a catalog needs from rs, using whichever of the
// optional source interfaces it implements.
func LoadData(ctx context.Context, rs RecordStore) (CatalogData, error) {
	var d CatalogData
	var err error
	if d.Items, err = rs.LoadItems(ctx); err != nil {
		return d, fmt.Errorf("load items: %w", err)
	}
	if d.Rankings, err = rs.LoadRankings(ctx); err != nil {
		return d, fmt.Errorf("load rankings: %w", err)
	}
	if ps, ok := rs.(ProfileSource); ok {
		if d.Profile, err = ps.LoadProfile(ctx); err != nil {
			return d, fmt.Errorf("load profile: %w", err)
		}
	}
	if vs, ok := rs.(VectorSource); ok {
		if d.Vectors, err = vs.LoadVectors(ctx); err != nil {
			return d, fmt.Errorf("load vectors: %w", err)
		}
	}
	if ls, ok := rs.(LinkSource); ok {
		if d.Links, err = ls.LoadLinks(ctx); err != nil {
			return d, fmt.Errorf("load links: %w", err)
		}
	} else {
		d.Links = DeriveLinks(d.Items, 5)
	}
	return d, nil
}

var shared struct {
	once sync.Once
	cat  *Catalog
	err  error
}

// SharedCatalog returns the process-wide catalog, calling load on first use
// only. Later calls return the same catalog (or the same error) whatever
// load they pass.
func SharedCatalog(ctx context.Context, load func(context.Context) (*Catalog, error)) (*Catalog, error) {
	shared.once.Do(func() {
		shared.cat, shared.err = load(ctx)
	})
	return shared.cat, shared.err
}
