package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBiencoder embeds text through an OpenAI-compatible embeddings API.
// Calls are serialized per instance; the pipeline makes no assumption about
// thread-safety of the underlying model endpoint.
type OpenAIBiencoder struct {
	client *openai.Client
	model  string
	dim    int
	maxLen int
	mu     sync.Mutex
}

// NewOpenAIBiencoder creates a bi-encoder client. baseURL may be empty for
// the default OpenAI endpoint; apiKeyEnv names the environment variable
// holding the key.
func NewOpenAIBiencoder(apiKeyEnv, baseURL, model string, dim, maxLen int) (*OpenAIBiencoder, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("API key not found in environment variable %s", apiKeyEnv)
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIBiencoder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
		maxLen: maxLen,
	}, nil
}

func (e *OpenAIBiencoder) EncodeOne(text string) ([]float32, error) {
	vecs, err := e.EncodeBatch([]string{text}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIBiencoder) EncodeBatch(texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 64
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))
		vecs, err := e.encodeBatch(texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIBiencoder) encodeBatch(texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = clampRunes(t, e.maxLen*8)
	}

	resp, err := e.client.CreateEmbeddings(context.Background(), openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			continue
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		L2Normalize(v)
		vecs[d.Index] = v
	}
	return vecs, nil
}

func (e *OpenAIBiencoder) Dimension() int { return e.dim }

func (e *OpenAIBiencoder) ModelName() string { return e.model }

// clampRunes keeps request sizes bounded; the model truncates to its own
// token limit regardless.
func clampRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
