package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/askfolio/internal/model"
)

// SQLiteStore implements RecordStore using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

var (
	_ RecordStore   = (*SQLiteStore)(nil)
	_ ProfileSource = (*SQLiteStore)(nil)
	_ VectorSource  = (*SQLiteStore)(nil)
	_ LinkSource    = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		name        TEXT NOT NULL,
		org         TEXT,
		search_text TEXT NOT NULL,
		data        TEXT NOT NULL,
		seq         INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);

	CREATE TABLE IF NOT EXISTS rankings (
		item_id TEXT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
		kind    TEXT NOT NULL,
		score   REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS passages (
		id      TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		seq     INTEGER NOT NULL,
		text    TEXT NOT NULL,
		dims    INTEGER NOT NULL DEFAULT 0,
		vector  BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_passages_item ON passages(item_id);

	CREATE TABLE IF NOT EXISTS item_links (
		from_id    TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		to_id      TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		rel        TEXT NOT NULL,
		weight     REAL NOT NULL DEFAULT 1,
		shared     TEXT,
		PRIMARY KEY (from_id, to_id, rel)
	);
	CREATE INDEX IF NOT EXISTS idx_links_to ON item_links(to_id);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS answer_cache (
		key        TEXT PRIMARY KEY,
		intent     TEXT NOT NULL,
		text       TEXT NOT NULL,
		item_ids   TEXT,
		created_at TEXT NOT NULL,
		expires_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cache_expires ON answer_cache(expires_at);

	CREATE TABLE IF NOT EXISTS index_runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		items       INTEGER NOT NULL,
		passages    INTEGER NOT NULL,
		links       INTEGER NOT NULL,
		embed_model TEXT,
		dims        INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// IndexRun records one completed indexing pass.
type IndexRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      int       `json:"items"`
	Passages   int       `json:"passages"`
	Links      int       `json:"links"`
	EmbedModel string    `json:"embed_model,omitempty"`
	Dims       int       `json:"dims"`
}

// ReplaceIndex swaps the whole indexed knowledge base for d inside one
// transaction. Cached answers are dropped since they may cite old items.
func (s *SQLiteStore) ReplaceIndex(ctx context.Context, d IndexData) (*IndexRun, error) {
	started := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range []string{"item_links", "passages", "rankings", "items", "answer_cache"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, it := range d.Items {
		data, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("encode item %s: %w", it.ItemID(), err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO items (id, kind, name, org, search_text, data, seq) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ItemID(), string(it.ItemKind()), it.DisplayName(), nullable(it.Org()),
			model.SearchText(it), string(data), i)
		if err != nil {
			return nil, fmt.Errorf("insert item %s: %w", it.ItemID(), err)
		}
	}

	for _, r := range d.Rankings {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO rankings (item_id, kind, score) VALUES (?, ?, ?)`,
			r.ID, string(r.Kind), r.Score)
		if err != nil {
			return nil, fmt.Errorf("insert ranking %s: %w", r.ID, err)
		}
	}

	for _, p := range d.Passages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO passages (id, item_id, seq, text, dims, vector) VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), p.ItemID, p.Seq, p.Text, len(p.Vector), encodeVector(p.Vector))
		if err != nil {
			return nil, fmt.Errorf("insert passage %s/%d: %w", p.ItemID, p.Seq, err)
		}
	}

	for _, l := range d.Links {
		shared, _ := json.Marshal(l.Shared)
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_links (from_id, to_id, rel, weight, shared) VALUES (?, ?, ?, ?, ?)`,
			l.FromID, l.ToID, l.Rel, l.Weight, string(shared))
		if err != nil {
			return nil, fmt.Errorf("insert link: %w", err)
		}
	}

	profile, _ := json.Marshal(d.Profile)
	version := d.Version
	if version == "" {
		version = "1.0"
	}
	for k, v := range map[string]string{"profile": string(profile), "kb_version": version} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return nil, fmt.Errorf("write meta %s: %w", k, err)
		}
	}

	run := &IndexRun{
		ID:         s.newID(),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Items:      len(d.Items),
		Passages:   len(d.Passages),
		Links:      len(d.Links),
		EmbedModel: d.EmbedModel,
		Dims:       d.Dims,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO index_runs (id, started_at, finished_at, items, passages, links, embed_model, dims)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), run.FinishedAt.Format(time.RFC3339Nano),
		run.Items, run.Passages, run.Links, nullable(run.EmbedModel), run.Dims)
	if err != nil {
		return nil, fmt.Errorf("record index run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

// LastRun returns the most recent index run.
func (s *SQLiteStore) LastRun(ctx context.Context) (*IndexRun, error) {
	var r IndexRun
	var started, finished string
	var embedModel sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, items, passages, links, embed_model, dims
		 FROM index_runs ORDER BY finished_at DESC LIMIT 1`).
		Scan(&r.ID, &started, &finished, &r.Items, &r.Passages, &r.Links, &embedModel, &r.Dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	r.EmbedModel = embedModel.String
	return &r, nil
}

func (s *SQLiteStore) LoadItems(ctx context.Context) ([]model.Item, error) {
	return s.queryItems(ctx, `SELECT kind, data FROM items ORDER BY seq`)
}

func (s *SQLiteStore) LoadRankings(ctx context.Context) ([]model.ImportanceRanking, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id, kind, score FROM rankings ORDER BY item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ImportanceRanking
	for rows.Next() {
		var r model.ImportanceRanking
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Score); err != nil {
			return nil, err
		}
		r.Kind = model.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LoadProfile(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'profile'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) LoadVectors(ctx context.Context) (map[string][][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, vector FROM passages WHERE dims > 0 ORDER BY item_id, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][][]float32)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		if v := decodeVector(blob); len(v) > 0 {
			out[id] = append(out[id], v)
		}
	}
	return out, rows.Err()
}

// GetItem returns one item by id.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (model.Item, error) {
	items, err := s.queryItems(ctx, `SELECT kind, data FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return items[0], nil
}

// ListItems lists items in knowledge-base order.
func (s *SQLiteStore) ListItems(ctx context.Context, p ListParams) ([]model.Item, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	if p.Kind != "" {
		return s.queryItems(ctx, `SELECT kind, data FROM items WHERE kind = ? ORDER BY seq LIMIT ?`, string(p.Kind), limit)
	}
	return s.queryItems(ctx, `SELECT kind, data FROM items ORDER BY seq LIMIT ?`, limit)
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (model.Item, error) {
	var kind, data string
	if err := row.Scan(&kind, &data); err != nil {
		return nil, err
	}
	return decodeItem(kind, data)
}

func decodeItem(kind, data string) (model.Item, error) {
	it, err := model.Decode(model.Kind(kind), func(v any) error {
		return json.Unmarshal([]byte(data), v)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s item: %w", kind, err)
	}
	return it, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// ParseTTL parses a TTL string like "7d", "24h", "30m" into a time.Duration.
var ttlRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

func ParseTTL(s string) (time.Duration, error) {
	m := ttlRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid format %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}
