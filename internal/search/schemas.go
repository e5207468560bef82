package search

import (
	"fmt"
	"strings"

	"hermes/config"
)

// Retrieval modes.
const (
	ModeDense  = "dense"
	ModeSparse = "sparse"
	ModeHybrid = "hybrid"
)

// Request is the search request body. Zero values take pipeline defaults
// via ApplyDefaults before validation.
type Request struct {
	Query            string `json:"query"`
	TopKRetrieve     int    `json:"top_k_retrieve"`
	TopKRerank       int    `json:"top_k_rerank"`
	RetrievalMode    string `json:"retrieval_mode"`
	FilterLanguage   string `json:"filter_language"`
	FilterPathPrefix string `json:"filter_path_prefix"`
	ReturnSnippets   *bool  `json:"return_snippets"`
}

// ApplyDefaults fills unset fields from the configured search defaults.
func (r *Request) ApplyDefaults(cfg config.SearchConfig) {
	if r.TopKRetrieve == 0 {
		r.TopKRetrieve = cfg.TopKRetrieve
	}
	if r.TopKRerank == 0 {
		r.TopKRerank = cfg.TopKRerank
	}
	if r.RetrievalMode == "" {
		r.RetrievalMode = cfg.RetrievalMode
	}
}

// Validate checks the request after defaults are applied. Failures are
// ValidationErrors, surfaced to the caller without state change.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return &ValidationError{Detail: "query must not be empty"}
	}
	if r.TopKRetrieve < 1 || r.TopKRetrieve > 1000 {
		return &ValidationError{Detail: fmt.Sprintf("top_k_retrieve must be in 1..1000, got %d", r.TopKRetrieve)}
	}
	if r.TopKRerank < 1 || r.TopKRerank > 200 {
		return &ValidationError{Detail: fmt.Sprintf("top_k_rerank must be in 1..200, got %d", r.TopKRerank)}
	}
	switch r.RetrievalMode {
	case ModeDense, ModeSparse, ModeHybrid:
	default:
		return &ValidationError{Detail: fmt.Sprintf("unknown retrieval_mode %q", r.RetrievalMode)}
	}
	return nil
}

// WantSnippets reports whether code_snippet should be included; defaults
// to true when the field is absent.
func (r *Request) WantSnippets() bool {
	return r.ReturnSnippets == nil || *r.ReturnSnippets
}

// ValidationError is a malformed request; callers map it to a client
// error.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// ResultItem is one search result.
type ResultItem struct {
	ChunkID        int      `json:"chunk_id"`
	FilePath       string   `json:"file_path"`
	Language       string   `json:"language"`
	StartLine      int      `json:"start_line"`
	EndLine        int      `json:"end_line"`
	SymbolName     string   `json:"symbol_name"`
	CodeSnippet    *string  `json:"code_snippet,omitempty"`
	RetrievalRank  int      `json:"retrieval_rank"`
	RetrievalScore float64  `json:"retrieval_score"`
	RerankScore    *float64 `json:"rerank_score"`
	FinalRank      int      `json:"final_rank"`
}

// Response is the search response body.
type Response struct {
	RequestID       string             `json:"request_id"`
	Query           string             `json:"query"`
	RetrievalMode   string             `json:"retrieval_mode"`
	Results         []ResultItem       `json:"results"`
	TimingsMS       map[string]float64 `json:"timings_ms"`
	RerankSkipped   bool               `json:"rerank_skipped"`
	TotalCandidates int                `json:"total_candidates"`
}

// StatsResponse is the /stats body.
type StatsResponse struct {
	IndexSize         int     `json:"index_size"`
	NChunks           int     `json:"n_chunks"`
	CacheHits         int64   `json:"cache_hits"`
	CacheMisses       int64   `json:"cache_misses"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	RetrievalMode     string  `json:"retrieval_mode"`
	BiencoderModel    string  `json:"biencoder_model"`
	CrossencoderModel string  `json:"crossencoder_model"`
}
