package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/askfolio/internal/kbtest"
	"github.com/rcliao/askfolio/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newIndexedStore returns a store holding the fixture knowledge base with a
// two-dimensional vector per non-skill item.
func newIndexedStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := newTestStore(t)
	doc := kbtest.Document(t)

	var passages []PassageVector
	for _, it := range doc.Items {
		if it.ItemKind() == model.KindSkill {
			continue
		}
		passages = append(passages, PassageVector{
			ItemID: it.ItemID(), Seq: 0, Text: model.SearchText(it), Vector: []float32{1, 0.5},
		})
	}
	_, err := s.ReplaceIndex(context.Background(), IndexData{
		Version:    doc.Version,
		Profile:    doc.Profile,
		Items:      doc.Items,
		Rankings:   doc.Rankings,
		Passages:   passages,
		Links:      DeriveLinks(doc.Items, 5),
		EmbedModel: "hash",
		Dims:       2,
	})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return s
}

func TestReplaceIndexAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newIndexedStore(t)

	items, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 16 {
		t.Fatalf("expected 16 items, got %d", len(items))
	}
	if items[0].ItemID() != "proj_portfolio" {
		t.Errorf("items not in knowledge-base order: first is %s", items[0].ItemID())
	}
	if _, ok := items[0].(model.Project); !ok {
		t.Errorf("expected model.Project, got %T", items[0])
	}

	rankings, err := s.LoadRankings(ctx)
	if err != nil {
		t.Fatalf("load rankings: %v", err)
	}
	if len(rankings) != 7 {
		t.Errorf("expected 7 rankings, got %d", len(rankings))
	}

	profile, err := s.LoadProfile(ctx)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Email != "riley@example.com" {
		t.Errorf("profile email = %q", profile.Email)
	}

	vectors, err := s.LoadVectors(ctx)
	if err != nil {
		t.Fatalf("load vectors: %v", err)
	}
	if len(vectors) != 12 {
		t.Errorf("expected vectors for 12 items, got %d", len(vectors))
	}
	if v := vectors["exp_veson"]; len(v) != 1 || v[0][0] != 1 || v[0][1] != 0.5 {
		t.Errorf("vector round trip failed: %v", v)
	}
}

func TestReplaceIndexIsWholesale(t *testing.T) {
	ctx := context.Background()
	s := newIndexedStore(t)

	only := kbtest.ByID(t, "value_ownership")
	if _, err := s.ReplaceIndex(ctx, IndexData{Items: []model.Item{only}}); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	items, _ := s.LoadItems(ctx)
	if len(items) != 1 {
		t.Fatalf("expected 1 item after reindex, got %d", len(items))
	}
	rankings, _ := s.LoadRankings(ctx)
	if len(rankings) != 0 {
		t.Errorf("stale rankings survived: %v", rankings)
	}
	vectors, _ := s.LoadVectors(ctx)
	if len(vectors) != 0 {
		t.Errorf("stale vectors survived: %v", vectors)
	}
}

func TestGetItem(t *testing.T) {
	ctx := context.Background()
	s := newIndexedStore(t)

	it, err := s.GetItem(ctx, "cls_ml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cls, ok := it.(model.Class)
	if !ok || cls.Code != "CS 229" {
		t.Errorf("unexpected item %#v", it)
	}

	_, err = s.GetItem(ctx, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListItems(t *testing.T) {
	ctx := context.Background()
	s := newIndexedStore(t)

	projects, err := s.ListItems(ctx, ListParams{Kind: model.KindProject})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 3 {
		t.Errorf("expected 3 projects, got %d", len(projects))
	}

	limited, _ := s.ListItems(ctx, ListParams{Limit: 4})
	if len(limited) != 4 {
		t.Errorf("expected 4 items, got %d", len(limited))
	}
}

func TestLastRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.LastRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	s = newIndexedStore(t)
	run, err := s.LastRun(ctx)
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if run.Items != 16 || run.Passages != 12 || run.EmbedModel != "hash" || run.Dims != 2 {
		t.Errorf("unexpected run %+v", run)
	}
	if run.ID == "" || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("bad run timestamps %+v", run)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "deep", "index.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("db file not created: %v", err)
	}
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	got := decodeVector(encodeVector(v))
	if len(got) != len(v) {
		t.Fatalf("length %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("component %d = %v, want %v", i, got[i], v[i])
		}
	}
	if decodeVector([]byte{1, 2, 3}) != nil {
		t.Error("expected nil for a truncated blob")
	}
	if encodeVector(nil) != nil {
		t.Error("expected nil blob for empty vector")
	}
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"7d", true},
		{"24h", true},
		{"30m", true},
		{"60s", true},
		{"invalid", false},
		{"", false},
		{"7x", false},
	}
	for _, tt := range tests {
		_, err := ParseTTL(tt.input)
		if tt.ok && err != nil {
			t.Errorf("ParseTTL(%q) unexpected error: %v", tt.input, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseTTL(%q) expected error", tt.input)
		}
	}
}
