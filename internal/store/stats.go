package store

import (
	"context"
	"errors"
	"os"
)

// Stats holds index statistics.
type Stats struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	TotalItems    int         `json:"total_items"`
	Rankings      int         `json:"rankings"`
	Passages      int         `json:"passages"`
	Vectors       int         `json:"vectors"`
	Links         int         `json:"links"`
	CachedAnswers int         `json:"cached_answers"`
	Kinds         []KindStats `json:"kinds"`
	LastRun       *IndexRun   `json:"last_run,omitempty"`
}

// KindStats holds per-kind counts.
type KindStats struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Stats returns index statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&st.TotalItems)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rankings`).Scan(&st.Rankings)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&st.Passages)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages WHERE dims > 0`).Scan(&st.Vectors)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_links`).Scan(&st.Links)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answer_cache`).Scan(&st.CachedAnswers)

	if run, err := s.LastRun(ctx); err == nil {
		st.LastRun = run
	} else if !errors.Is(err, ErrNotFound) {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) AS cnt FROM items
		GROUP BY kind ORDER BY cnt DESC, kind`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var k KindStats
		rows.Scan(&k.Kind, &k.Count)
		st.Kinds = append(st.Kinds, k)
	}

	return st, rows.Err()
}
