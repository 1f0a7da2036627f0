package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/askfolio/internal/model"
)

// CachedAnswer is a previously generated first-turn answer.
type CachedAnswer struct {
	Key       string       `json:"key"`
	Intent    model.Intent `json:"intent"`
	Text      string       `json:"text"`
	ItemIDs   []string     `json:"item_ids,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// CacheGet returns the unexpired answer stored under key, or ErrNotFound.
func (s *SQLiteStore) CacheGet(ctx context.Context, key string) (*CachedAnswer, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var a CachedAnswer
	var intent, created string
	var ids, expires sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT key, intent, text, item_ids, created_at, expires_at FROM answer_cache
		 WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`, key, now).
		Scan(&a.Key, &intent, &a.Text, &ids, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cached answer: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.Intent = model.Intent(intent)
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if ids.Valid {
		json.Unmarshal([]byte(ids.String), &a.ItemIDs)
	}
	if expires.Valid {
		t, _ := time.Parse(time.RFC3339, expires.String)
		a.ExpiresAt = &t
	}
	return &a, nil
}

// CachePut stores an answer under key. ttl uses the "7d", "24h", "30m",
// "60s" grammar; empty means no expiry.
func (s *SQLiteStore) CachePut(ctx context.Context, key string, a CachedAnswer, ttl string) error {
	now := time.Now().UTC()
	var expiresAt *string
	if ttl != "" {
		d, err := ParseTTL(ttl)
		if err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}
		exp := now.Add(d).Format(time.RFC3339)
		expiresAt = &exp
	}
	var idsJSON *string
	if len(a.ItemIDs) > 0 {
		b, _ := json.Marshal(a.ItemIDs)
		s := string(b)
		idsJSON = &s
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO answer_cache (key, intent, text, item_ids, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, string(a.Intent), a.Text, idsJSON, now.Format(time.RFC3339), expiresAt)
	if err != nil {
		return fmt.Errorf("cache answer: %w", err)
	}
	return nil
}

// CachePurge deletes expired answers, or every answer when all is set.
func (s *SQLiteStore) CachePurge(ctx context.Context, all bool) (int64, error) {
	var res sql.Result
	var err error
	if all {
		res, err = s.db.ExecContext(ctx, `DELETE FROM answer_cache`)
	} else {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM answer_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
			time.Now().UTC().Format(time.RFC3339))
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
