package search

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hermes/config"
	"hermes/internal/adapter/analyzer"
	"hermes/internal/adapter/cache"
	"hermes/internal/adapter/store"
	"hermes/internal/domain"
	"hermes/internal/index"
	"hermes/internal/port"
)

// Artifact file names, shared with the build orchestrator.
const (
	DenseFile      = "faiss.index"
	SparseFile     = "sparse_index.json"
	MetadataFile   = "metadata.db"
	EmbeddingsFile = "embeddings.npy"
)

var errRerankTimeout = errors.New("rerank deadline exceeded")

// Pipeline executes the multi-stage search over one loaded artifact set.
// It is reentrant; hot reload builds a new Pipeline and swaps an atomic
// reference while in-flight requests finish against the old one.
type Pipeline struct {
	cfg       *config.Config
	store     *store.MetadataStore
	dense     index.Dense
	sparse    *index.Sparse
	biencoder port.Embedder
	scorer    port.PairScorer
	cache     *cache.EmbeddingCache
	rerankSem chan struct{}
	nChunks   int
}

// HasArtifacts reports whether dir holds a loadable artifact set.
func HasArtifacts(dir string) bool {
	for _, name := range []string{MetadataFile, DenseFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Load opens the artifacts in cfg.ArtifactsDir and returns a ready
// pipeline. The encoders are passed in so reloads can reuse them.
func Load(cfg *config.Config, biencoder port.Embedder, scorer port.PairScorer) (*Pipeline, error) {
	artifacts := cfg.ArtifactsDir
	if !HasArtifacts(artifacts) {
		return nil, domain.ErrNoIndex
	}

	st, err := store.Open(filepath.Join(artifacts, MetadataFile), true)
	if err != nil {
		return nil, err
	}

	dense, err := index.LoadDense(filepath.Join(artifacts, DenseFile), cfg.Index.NProbe)
	if err != nil {
		st.Close()
		return nil, err
	}

	var sparse *index.Sparse
	sparsePath := filepath.Join(artifacts, SparseFile)
	if _, err := os.Stat(sparsePath); err == nil {
		sparse, err = index.LoadSparse(sparsePath)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	n, err := st.Count()
	if err != nil {
		st.Close()
		return nil, err
	}
	if dense.NTotal() != n {
		st.Close()
		return nil, fmt.Errorf("dense index has %d vectors for %d chunks: %w", dense.NTotal(), n, domain.ErrIntegrity)
	}
	if sparse != nil && sparse.NDocs() != n {
		st.Close()
		return nil, fmt.Errorf("sparse index has %d documents for %d chunks: %w", sparse.NDocs(), n, domain.ErrIntegrity)
	}

	p := &Pipeline{
		cfg:       cfg,
		store:     st,
		dense:     dense,
		sparse:    sparse,
		biencoder: biencoder,
		scorer:    scorer,
		cache:     cache.New(cfg.Embed.QueryCacheSize),
		rerankSem: make(chan struct{}, 2),
		nChunks:   n,
	}

	slog.Info("search_pipeline_ready", "n_chunks", n)
	return p, nil
}

// Close releases the store handle. Only call once no request can reach
// this pipeline anymore.
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// Search runs the five pipeline stages for one request. Defaults are applied
// and the request is validated here, so direct callers get the same
// contract as the HTTP surface.
func (p *Pipeline) Search(req *Request) (*Response, error) {
	req.ApplyDefaults(p.cfg.Search)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := newRequestID()
	timings := make(map[string]float64, 4)
	mode := req.RetrievalMode

	// 1. Embed query (dense and hybrid only), through the cache.
	t0 := time.Now()
	var queryVec []float32
	if mode == ModeDense || mode == ModeHybrid {
		var err error
		queryVec, err = p.cache.Get(req.Query, p.biencoder.EncodeOne)
		if err != nil {
			return nil, fmt.Errorf("query embedding failed: %w", err)
		}
	}
	timings["embed_query_ms"] = ms(t0)

	// 2. Retrieve.
	t1 := time.Now()
	candidates, err := p.retrieve(req.Query, queryVec, req.TopKRetrieve, mode)
	if err != nil {
		return nil, err
	}
	timings["retrieval_ms"] = ms(t1)

	// 3. Filter, preserving retrieval order.
	if req.FilterLanguage != "" || req.FilterPathPrefix != "" {
		keep, err := p.store.FilterIDs(req.FilterLanguage, req.FilterPathPrefix)
		if err != nil {
			return nil, err
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if _, ok := keep[c.ChunkID]; ok {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	totalCandidates := len(candidates)
	for i := range candidates {
		candidates[i].RetrievalRank = i + 1
	}

	// 4. Rerank the head under the deadline; degrade to retrieval order
	// on timeout or scorer failure.
	rerankSkipped := false
	t2 := time.Now()
	if len(candidates) == 0 {
		rerankSkipped = true
	} else {
		head := candidates[:min(len(candidates), p.cfg.Search.MaxRerankCandidates)]
		if err := p.rerankHead(req.Query, head); err != nil {
			if errors.Is(err, domain.ErrIntegrity) {
				return nil, err
			}
			slog.Warn("rerank_skipped", "request_id", requestID, "error", err)
			rerankSkipped = true
		}
	}
	timings["rerank_ms"] = ms(t2)

	// 5. Truncate and assemble.
	final := candidates[:min(len(candidates), req.TopKRerank)]
	results, err := p.buildResults(final, req.WantSnippets())
	if err != nil {
		return nil, err
	}
	timings["total_ms"] = ms(t0)

	return &Response{
		RequestID:       requestID,
		Query:           req.Query,
		RetrievalMode:   mode,
		Results:         results,
		TimingsMS:       timings,
		RerankSkipped:   rerankSkipped,
		TotalCandidates: totalCandidates,
	}, nil
}

func (p *Pipeline) retrieve(query string, queryVec []float32, topK int, mode string) ([]domain.Candidate, error) {
	switch mode {
	case ModeDense:
		return hitCandidates(p.dense.Search(queryVec, topK)), nil

	case ModeSparse:
		return hitCandidates(p.sparseSearch(query, topK)), nil

	default: // hybrid: both retrievers fan out, RRF merges
		var denseHits, sparseHits []index.Hit
		g := new(errgroup.Group)
		g.Go(func() error {
			denseHits = p.dense.Search(queryVec, topK)
			return nil
		})
		g.Go(func() error {
			sparseHits = p.sparseSearch(query, topK)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		fused := ReciprocalRankFusion([][]index.Hit{denseHits, sparseHits}, p.cfg.Search.RRFK, topK)

		// Fusion discards retriever scores; keep the dense score (or the
		// sparse one when dense never saw the chunk) for explainability.
		denseScore := make(map[int]float64, len(denseHits))
		for _, h := range denseHits {
			denseScore[h.ID] = float64(h.Score)
		}
		sparseScore := make(map[int]float64, len(sparseHits))
		for _, h := range sparseHits {
			sparseScore[h.ID] = float64(h.Score)
		}

		candidates := make([]domain.Candidate, len(fused))
		for i, f := range fused {
			score, ok := denseScore[f.ID]
			if !ok {
				score = sparseScore[f.ID]
			}
			candidates[i] = domain.Candidate{ChunkID: f.ID, RetrievalScore: score}
		}
		return candidates, nil
	}
}

func (p *Pipeline) sparseSearch(query string, topK int) []index.Hit {
	if p.sparse == nil {
		return nil
	}
	return p.sparse.Search(analyzer.Tokenize(query), topK)
}

func hitCandidates(hits []index.Hit) []domain.Candidate {
	candidates := make([]domain.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = domain.Candidate{ChunkID: h.ID, RetrievalScore: float64(h.Score)}
	}
	return candidates
}

// rerankHead scores the head candidates with the cross-encoder and sorts
// them by score descending, original retrieval rank ascending. Metadata
// lookups happen synchronously so integrity errors surface; only the model
// call runs under the deadline.
func (p *Pipeline) rerankHead(query string, head []domain.Candidate) error {
	ids := make([]int, len(head))
	for i, c := range head {
		ids[i] = c.ChunkID
	}
	chunks, err := p.store.GetMany(ids)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.CodeText
	}

	scores, err := p.scoreWithDeadline(query, texts)
	if err != nil {
		return err
	}
	if len(scores) != len(head) {
		return fmt.Errorf("cross-encoder returned %d scores for %d pairs", len(scores), len(head))
	}

	for i := range head {
		s := scores[i]
		head[i].RerankScore = &s
	}
	sort.Slice(head, func(i, j int) bool {
		if *head[i].RerankScore != *head[j].RerankScore {
			return *head[i].RerankScore > *head[j].RerankScore
		}
		return head[i].RetrievalRank < head[j].RetrievalRank
	})
	return nil
}

// scoreWithDeadline joins the cross-encoder call with a deadline. Scoring
// cannot be interrupted safely, so on expiry the in-flight call finishes
// in the background and its result is dropped.
func (p *Pipeline) scoreWithDeadline(query string, texts []string) ([]float64, error) {
	type outcome struct {
		scores []float64
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		p.rerankSem <- struct{}{}
		defer func() { <-p.rerankSem }()
		scores, err := p.scorer.Score(query, texts)
		ch <- outcome{scores: scores, err: err}
	}()

	timeout := time.Duration(p.cfg.Search.RerankTimeoutSeconds * float64(time.Second))
	select {
	case out := <-ch:
		return out.scores, out.err
	case <-time.After(timeout):
		return nil, errRerankTimeout
	}
}

func (p *Pipeline) buildResults(final []domain.Candidate, wantSnippets bool) ([]ResultItem, error) {
	ids := make([]int, len(final))
	for i, c := range final {
		ids[i] = c.ChunkID
	}
	chunks, err := p.store.GetMany(ids)
	if err != nil {
		return nil, err
	}

	results := make([]ResultItem, len(final))
	for i, c := range final {
		chunk := chunks[i]
		item := ResultItem{
			ChunkID:        c.ChunkID,
			FilePath:       chunk.FilePath,
			Language:       chunk.Language,
			StartLine:      chunk.StartLine,
			EndLine:        chunk.EndLine,
			SymbolName:     chunk.SymbolName,
			RetrievalRank:  c.RetrievalRank,
			RetrievalScore: round4(c.RetrievalScore),
			FinalRank:      i + 1,
		}
		if wantSnippets {
			text := chunk.CodeText
			item.CodeSnippet = &text
		}
		if c.RerankScore != nil {
			score := round4(*c.RerankScore)
			item.RerankScore = &score
		}
		results[i] = item
	}
	return results, nil
}

// Stats and identity accessors for the serving surface.

func (p *Pipeline) NChunks() int { return p.nChunks }

func (p *Pipeline) Stats() StatsResponse {
	return StatsResponse{
		IndexSize:         p.dense.NTotal(),
		NChunks:           p.nChunks,
		CacheHits:         p.cache.Hits(),
		CacheMisses:       p.cache.Misses(),
		CacheHitRate:      round4(p.cache.HitRate()),
		RetrievalMode:     p.cfg.Search.RetrievalMode,
		BiencoderModel:    p.biencoder.ModelName(),
		CrossencoderModel: p.scorer.ModelName(),
	}
}

func newRequestID() string {
	var b [6]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func ms(start time.Time) float64 {
	return math.Round(float64(time.Since(start).Microseconds())/10) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
