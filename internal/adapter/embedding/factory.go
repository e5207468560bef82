package embedding

import (
	"fmt"

	"hermes/config"
	"hermes/internal/port"
)

// NewBiencoder builds the configured bi-encoder implementation.
func NewBiencoder(cfg config.EmbedConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIBiencoder(cfg.APIKeyEnv, cfg.BaseURL, cfg.BiencoderModel,
			cfg.BiencoderDimension, cfg.BiencoderMaxLength)
	case "local", "":
		return NewHashEmbedder(cfg.BiencoderDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewPairScorer builds the configured cross-encoder implementation. An
// empty rerank_url selects the local term-overlap scorer.
func NewPairScorer(cfg config.EmbedConfig) (port.PairScorer, error) {
	if cfg.RerankURL == "" {
		return &TermOverlapScorer{}, nil
	}
	return NewHTTPReranker(cfg.RerankURL, cfg.APIKeyEnv, cfg.CrossencoderModel, cfg.CrossencoderMaxLength)
}
