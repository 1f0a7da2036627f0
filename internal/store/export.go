package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rcliao/askfolio/internal/kb"
)

// Export rebuilds the knowledge-base document from the index, including
// rankings computed at index time.
func (s *SQLiteStore) Export(ctx context.Context) (*kb.Document, error) {
	items, err := s.LoadItems(ctx)
	if err != nil {
		return nil, err
	}
	rankings, err := s.LoadRankings(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.LoadProfile(ctx)
	if err != nil {
		return nil, err
	}
	doc := &kb.Document{Version: "1.0", Profile: profile, Items: items, Rankings: rankings}

	var version string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'kb_version'`).Scan(&version)
	switch {
	case err == nil:
		doc.Version = version
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}
	return doc, nil
}
