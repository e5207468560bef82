package embedding

import (
	"fmt"
	"hash/fnv"
	"sync"

	"hermes/internal/adapter/analyzer"
)

// HashEmbedder is a deterministic local bi-encoder: each token hashes to a
// dimension bucket and the bag-of-tokens vector is L2-normalized. Texts
// sharing vocabulary land near each other, which is enough for offline use
// and tests without a model endpoint.
type HashEmbedder struct {
	dim int
	mu  sync.Mutex
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) EncodeOne(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encode(text), nil
}

func (e *HashEmbedder) EncodeBatch(texts []string, batchSize int) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = e.encode(t)
	}
	return vecs, nil
}

func (e *HashEmbedder) encode(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, tok := range analyzer.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dim] += 1
	}
	L2Normalize(vec)
	return vec
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-embedder-%d", e.dim)
}

// TermOverlapScorer is a deterministic local cross-encoder: the score of a
// pair is the fraction of query tokens present in the passage.
type TermOverlapScorer struct{}

func (s *TermOverlapScorer) Score(query string, passages []string) ([]float64, error) {
	queryTokens := analyzer.Tokenize(query)
	scores := make([]float64, len(passages))
	if len(queryTokens) == 0 {
		return scores, nil
	}

	for i, p := range passages {
		seen := make(map[string]struct{})
		for _, tok := range analyzer.Tokenize(p) {
			seen[tok] = struct{}{}
		}
		matches := 0
		for _, tok := range queryTokens {
			if _, ok := seen[tok]; ok {
				matches++
			}
		}
		scores[i] = float64(matches) / float64(len(queryTokens))
	}
	return scores, nil
}

func (s *TermOverlapScorer) ModelName() string { return "term-overlap" }
