package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// HTTPReranker scores (query, passage) pairs through a rerank HTTP API
// (Cohere-compatible request/response shape). Calls are serialized per
// instance.
type HTTPReranker struct {
	endpoint string
	apiKey   string
	model    string
	maxLen   int
	client   *http.Client
	mu       sync.Mutex
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewHTTPReranker creates a cross-encoder client. apiKeyEnv names the
// environment variable holding the key; it may resolve empty for
// unauthenticated local endpoints.
func NewHTTPReranker(endpoint, apiKeyEnv, model string, maxLen int) (*HTTPReranker, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rerank endpoint not configured")
	}
	return &HTTPReranker{
		endpoint: endpoint,
		apiKey:   os.Getenv(apiKeyEnv),
		model:    model,
		maxLen:   maxLen,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Score returns one relevance score per passage, in input order.
func (r *HTTPReranker) Score(query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]string, len(passages))
	for i, p := range passages {
		docs[i] = clampRunes(p, r.maxLen*8)
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: docs, Model: r.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned status %d: %s", resp.StatusCode, data)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}

	scores := make([]float64, len(passages))
	for _, res := range parsed.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.RelevanceScore
		}
	}
	return scores, nil
}

func (r *HTTPReranker) ModelName() string { return r.model }
