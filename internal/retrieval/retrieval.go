// Package retrieval scores a candidate set of items against a query by
// vector similarity, falling back to lexical overlap.
package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/embedding"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// Hit is one scored item.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Corpus exposes what retrieval reads from the catalog.
type Corpus interface {
	Item(id string) (model.Item, bool)
	Vectors(id string) [][]float32
}

// Config tunes the retriever.
type Config struct {
	// Timeout bounds query embedding. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds one query embedding.
const DefaultTimeout = 5 * time.Second

// Retriever ranks candidates for a query.
type Retriever struct {
	emb    embedding.Embedder
	corpus Corpus
	cfg    Config
	log    *zap.Logger
}

// New creates a retriever. A nil embedder scores every candidate lexically.
func New(emb embedding.Embedder, corpus Corpus, cfg Config, log *zap.Logger) *Retriever {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{emb: emb, corpus: corpus, cfg: cfg, log: log.Named("retrieval")}
}

// Retrieve returns at most k hits drawn only from candidates, best first
// with ties broken by id. It never fails: an embedding error or timeout
// yields no hits.
func (r *Retriever) Retrieve(ctx context.Context, query string, candidates []string, k int) []Hit {
	if len(candidates) == 0 || k <= 0 {
		return []Hit{}
	}

	var qv embedding.Vector
	if r.emb != nil {
		ectx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		v, err := r.emb.Embed(ectx, query)
		cancel()
		if err != nil {
			r.log.Warn("query embedding failed", zap.Error(err), zap.Int("candidates", len(candidates)))
			return []Hit{}
		}
		qv = v
	}

	qterms := termSet(textnorm.Terms(query))
	seen := make(map[string]bool, len(candidates))
	hits := make([]Hit, 0, len(candidates))
	for _, id := range candidates {
		if seen[id] {
			continue
		}
		seen[id] = true
		it, ok := r.corpus.Item(id)
		if !ok {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: r.score(qv, qterms, it)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// score uses the best passage vector when both sides have one, and lexical
// overlap otherwise.
func (r *Retriever) score(qv embedding.Vector, qterms map[string]bool, it model.Item) float64 {
	if len(qv) > 0 {
		if vs := r.corpus.Vectors(it.ItemID()); len(vs) > 0 {
			best := -1.0
			for _, v := range vs {
				if s := embedding.CosineSimilarity(qv, v); s > best {
					best = s
				}
			}
			return best
		}
	}
	return LexicalOverlap(qterms, it)
}

// LexicalOverlap is the share of query terms found in the item's text.
func LexicalOverlap(qterms map[string]bool, it model.Item) float64 {
	if len(qterms) == 0 {
		return 0
	}
	iterms := termSet(textnorm.Terms(model.SearchText(it)))
	n := 0
	for t := range qterms {
		if iterms[t] {
			n++
		}
	}
	return float64(n) / float64(len(qterms))
}

// QueryTerms returns the singular content words of a query.
func QueryTerms(query string) map[string]bool {
	return termSet(textnorm.Terms(query))
}

func termSet(terms []string) map[string]bool {
	out := make(map[string]bool, len(terms))
	for _, t := range terms {
		out[textnorm.Singular(t)] = true
	}
	return out
}
