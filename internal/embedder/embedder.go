package embedder

import (
	"context"
	"fmt"
	"math"

	"github.com/Conversly/lead-response/internal/config"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// New builds the embedder selected by cfg.EmbeddingProvider.
func New(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.GeminiAPIKeys, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	case "openai", "":
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// normalize scales vec to unit length.
func normalize(vec []float64) []float64 {
	if len(vec) == 0 {
		return vec
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return vec
	}

	normalized := make([]float64, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
