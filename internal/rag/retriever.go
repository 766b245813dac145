package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/embedder"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

// NoKnowledgeBase is the context text used when nothing could be retrieved.
const NoKnowledgeBase = "No knowledge base available."

// Top-k per chat path.
const (
	TextTopK  = 1
	VoiceTopK = 5
)

// VectorSearcher is the nearest-neighbour primitive of the vector store.
type VectorSearcher interface {
	SearchChunks(ctx context.Context, chatbotID string, query []float64, limit int) ([]types.ChunkMatch, error)
}

type Retriever struct {
	store    VectorSearcher
	embedder embedder.Embedder
}

func NewRetriever(store VectorSearcher, emb embedder.Embedder) *Retriever {
	return &Retriever{store: store, embedder: emb}
}

// Retrieve embeds query and returns the k nearest chunks of a chatbot.
// Failures are logged and yield no matches.
func (r *Retriever) Retrieve(ctx context.Context, chatbotID, query string, k int) []types.ChunkMatch {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil
	}

	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		utils.Zlog.Warn("Query embedding failed",
			zap.String("chatbot_id", chatbotID),
			zap.Error(err))
		return nil
	}

	matches, err := r.store.SearchChunks(ctx, chatbotID, vec, k)
	if err != nil {
		utils.Zlog.Warn("Vector search failed",
			zap.String("chatbot_id", chatbotID),
			zap.Error(err))
		return nil
	}

	utils.Zlog.Debug("Retrieved context",
		zap.String("chatbot_id", chatbotID),
		zap.Int("matches", len(matches)))
	return matches
}

// FormatContext renders matches as the knowledge block of a system prompt.
func FormatContext(matches []types.ChunkMatch) string {
	if len(matches) == 0 {
		return NoKnowledgeBase
	}
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(m.Content))
	}
	return b.String()
}
