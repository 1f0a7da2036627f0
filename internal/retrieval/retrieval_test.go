package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rcliao/askfolio/internal/embedding"
	"github.com/rcliao/askfolio/internal/kbtest"
	"github.com/rcliao/askfolio/internal/model"
)

type fakeCorpus struct {
	items   map[string]model.Item
	vectors map[string][][]float32
}

func (c *fakeCorpus) Item(id string) (model.Item, bool) { it, ok := c.items[id]; return it, ok }
func (c *fakeCorpus) Vectors(id string) [][]float32     { return c.vectors[id] }

// newCorpus embeds every fixture item with the hash embedder.
func newCorpus(t testing.TB, emb embedding.Embedder) *fakeCorpus {
	c := &fakeCorpus{items: map[string]model.Item{}, vectors: map[string][][]float32{}}
	for _, it := range kbtest.Items(t) {
		c.items[it.ItemID()] = it
		if emb == nil {
			continue
		}
		v, err := emb.Embed(context.Background(), model.SearchText(it))
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		c.vectors[it.ItemID()] = [][]float32{v}
	}
	return c
}

type countingEmbedder struct {
	embedding.Embedder
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	e.calls++
	return e.Embedder.Embed(ctx, text)
}

type slowEmbedder struct{ delay time.Duration }

func (slowEmbedder) Dims() int { return 4 }
func (e slowEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	select {
	case <-time.After(e.delay):
		return embedding.Vector{1, 0, 0, 0}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Dims() int { return 4 }
func (failingEmbedder) Embed(context.Context, string) (embedding.Vector, error) {
	return nil, errors.New("model not loaded")
}

var projects = []string{"proj_portfolio", "proj_router", "proj_voyage"}

func TestRetrieve_RestrictedToCandidates(t *testing.T) {
	emb := embedding.NewHashEmbedder(256)
	r := New(emb, newCorpus(t, emb), Config{}, nil)

	hits := r.Retrieve(context.Background(), "kubernetes distributed pipelines at veson", projects, 10)
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.Contains(t, projects, h.ID)
	}
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestRetrieve_RanksRelevantFirst(t *testing.T) {
	emb := embedding.NewHashEmbedder(256)
	r := New(emb, newCorpus(t, emb), Config{}, nil)

	hits := r.Retrieve(context.Background(), "route support tickets with a classifier", projects, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "proj_router", hits[0].ID)
}

func TestRetrieve_EmptyCandidatesSkipsEmbedder(t *testing.T) {
	emb := &countingEmbedder{Embedder: embedding.NewHashEmbedder(64)}
	r := New(emb, newCorpus(t, nil), Config{}, nil)

	assert.Empty(t, r.Retrieve(context.Background(), "anything", nil, 5))
	assert.Empty(t, r.Retrieve(context.Background(), "anything", projects, 0))
	assert.Zero(t, emb.calls)
}

func TestRetrieve_TimeoutYieldsNoHits(t *testing.T) {
	r := New(slowEmbedder{delay: time.Second}, newCorpus(t, nil), Config{Timeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	hits := r.Retrieve(context.Background(), "anything", projects, 5)
	assert.Empty(t, hits)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetrieve_ErrorYieldsNoHits(t *testing.T) {
	r := New(failingEmbedder{}, newCorpus(t, nil), Config{}, nil)
	assert.Empty(t, r.Retrieve(context.Background(), "anything", projects, 5))
}

func TestRetrieve_LexicalWithoutEmbedder(t *testing.T) {
	r := New(nil, newCorpus(t, nil), Config{}, nil)
	hits := r.Retrieve(context.Background(), "bunker fuel optimization", projects, 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "proj_voyage", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestRetrieve_LexicalForItemsWithoutVectors(t *testing.T) {
	emb := embedding.NewHashEmbedder(64)
	c := newCorpus(t, nil) // no vectors at all
	r := New(emb, c, Config{}, nil)
	hits := r.Retrieve(context.Background(), "bunker fuel optimization", projects, 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "proj_voyage", hits[0].ID)
}

func TestRetrieve_BestPassageWins(t *testing.T) {
	emb := embedding.NewHashEmbedder(128)
	c := newCorpus(t, nil)
	ctx := context.Background()
	off, _ := emb.Embed(ctx, "completely unrelated gardening notes")
	on, _ := emb.Embed(ctx, "bouldering and rock climbing")
	c.vectors["interest_climbing"] = [][]float32{off, on}
	c.vectors["value_ownership"] = [][]float32{off}

	r := New(emb, c, Config{}, nil)
	hits := r.Retrieve(ctx, "rock climbing", []string{"value_ownership", "interest_climbing"}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "interest_climbing", hits[0].ID)
}

// Retrieval never returns more than k hits, never returns an id outside
// the candidate set and never repeats an id.
func TestRetrieve_Bounded(t *testing.T) {
	emb := embedding.NewHashEmbedder(64)
	corpus := newCorpus(t, emb)
	var ids []string
	for id := range corpus.items {
		ids = append(ids, id)
	}
	ids = append(ids, "ghost_item")
	r := New(emb, corpus, Config{}, nil)

	rapid.Check(t, func(t *rapid.T) {
		candidates := rapid.SliceOf(rapid.SampledFrom(ids)).Draw(t, "candidates")
		k := rapid.IntRange(-2, 20).Draw(t, "k")
		query := rapid.SampledFrom([]string{"python projects", "veson", "", "climbing", "the"}).Draw(t, "query")

		hits := r.Retrieve(context.Background(), query, candidates, k)

		if k <= 0 && len(hits) != 0 {
			t.Fatalf("k=%d returned %d hits", k, len(hits))
		}
		if k > 0 && len(hits) > k {
			t.Fatalf("k=%d returned %d hits", k, len(hits))
		}
		allowed := map[string]bool{}
		for _, c := range candidates {
			allowed[c] = true
		}
		seen := map[string]bool{}
		for _, h := range hits {
			if !allowed[h.ID] {
				t.Fatalf("hit %s outside candidates", h.ID)
			}
			if h.ID == "ghost_item" {
				t.Fatalf("unknown id returned")
			}
			if seen[h.ID] {
				t.Fatalf("duplicate hit %s", h.ID)
			}
			seen[h.ID] = true
		}
	})
}
