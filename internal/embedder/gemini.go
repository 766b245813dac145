package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/genai"
)

// GeminiEmbedder embeds text through the genai SDK, rotating API keys.
type GeminiEmbedder struct {
	clients     []*genai.Client
	model       string
	dimensions  int
	keyIndex    uint64        // atomic counter for round-robin key selection
	rateLimiter chan struct{} // caps concurrent requests across goroutines
}

func NewGeminiEmbedder(ctx context.Context, keys []string, model string, dimensions int) (*GeminiEmbedder, error) {
	return newGeminiEmbedder(ctx, keys, model, dimensions, genai.HTTPOptions{})
}

func newGeminiEmbedder(ctx context.Context, keys []string, model string, dimensions int, opts genai.HTTPOptions) (*GeminiEmbedder, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	clients := make([]*genai.Client, len(keys))
	for i, key := range keys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      key,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: opts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client for key %d: %w", i+1, err)
		}
		clients[i] = client
	}

	return &GeminiEmbedder{
		clients:     clients,
		model:       model,
		dimensions:  dimensions,
		rateLimiter: make(chan struct{}, 5),
	}, nil
}

func (g *GeminiEmbedder) next() *genai.Client {
	if len(g.clients) == 1 {
		return g.clients[0]
	}
	idx := atomic.AddUint64(&g.keyIndex, 1)
	return g.clients[idx%uint64(len(g.clients))]
}

func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	select {
	case g.rateLimiter <- struct{}{}:
		defer func() { <-g.rateLimiter }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if g.dimensions > 0 {
		dims := int32(g.dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := g.next().Models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embeddings returned from API")
	}

	raw := resp.Embeddings[0].Values
	if g.dimensions > 0 && len(raw) != g.dimensions {
		return nil, fmt.Errorf("expected %d dimensions, got %d", g.dimensions, len(raw))
	}

	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = float64(v)
	}
	return normalize(values), nil
}
