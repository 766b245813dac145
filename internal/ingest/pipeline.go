package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/embedder"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

// SourceStore reads and rewrites an organization's training lists.
type SourceStore interface {
	GetTrainingSources(ctx context.Context, chatbotID string) (*types.TrainingSources, error)
	SaveTrainingSources(ctx context.Context, src *types.TrainingSources) error
}

// ChunkWriter replaces the stored chunks of one source.
type ChunkWriter interface {
	ReplaceSourceChunks(ctx context.Context, chatbotID, source string, chunks []types.ContentChunk) error
}

type DocumentExtractor interface {
	Extract(ctx context.Context, item types.SourceItem) (*types.ProcessedDocument, error)
}

// ProgressFunc receives a percentage and a human readable message.
type ProgressFunc func(progress int, message string)

type Result struct {
	Documents int
	Chunks    int
	Embedded  int
	Sources   []string
	NoNewData bool
}

type Pipeline struct {
	sources   SourceStore
	chunks    ChunkWriter
	extractor DocumentExtractor
	embedder  embedder.Embedder
	cfg       types.ChunkConfig
}

func NewPipeline(sources SourceStore, chunks ChunkWriter, extractor DocumentExtractor, emb embedder.Embedder, cfg types.ChunkConfig) *Pipeline {
	return &Pipeline{
		sources:   sources,
		chunks:    chunks,
		extractor: extractor,
		embedder:  emb,
		cfg:       cfg,
	}
}

type pendingChunk struct {
	source  string
	content string
}

// Run ingests every untrained source item of the chatbot's organization.
// A failing item is logged and skipped; chunks whose embedding fails are
// dropped. Sources are replaced one at a time.
func (p *Pipeline) Run(ctx context.Context, chatbotID string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	log := utils.Zlog.With(zap.String("chatbot_id", chatbotID))

	progress(10, "Fetching training data...")
	raw, err := p.sources.GetTrainingSources(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load training sources: %w", err)
	}
	lists, err := ParseSources(raw)
	if err != nil {
		return nil, err
	}

	var (
		docs      []*types.ProcessedDocument
		processed = map[string][]types.SourceItem{}
	)
	for _, item := range lists.Untrained() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := p.extractor.Extract(ctx, item)
		if err != nil {
			log.Warn("Skipping source", zap.String("source", item.Source), zap.Error(err))
			continue
		}
		if _, seen := processed[doc.Source]; !seen {
			docs = append(docs, doc)
		}
		processed[doc.Source] = append(processed[doc.Source], item)
	}

	if len(docs) == 0 {
		log.Info("No untrained data found")
		return &Result{NoNewData: true}, nil
	}
	log.Info("Fetched documents for training", zap.Int("documents", len(docs)))

	progress(30, "Chunking text...")
	var pending []pendingChunk
	for _, doc := range docs {
		for _, c := range ChunkText(doc.Text, p.cfg) {
			if strings.TrimSpace(c) == "" {
				continue
			}
			pending = append(pending, pendingChunk{source: doc.Source, content: c})
		}
	}
	total := len(pending)

	progress(35, fmt.Sprintf("Embedding %d chunks...", total))
	bySource := make(map[string][]types.ContentChunk, len(docs))
	embedded := 0
	for i, pc := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := p.embedder.EmbedText(ctx, pc.content)
		if err != nil {
			metrics.IngestChunksTotal.WithLabelValues("dropped").Inc()
			log.Debug("Dropping chunk after embedding failure", zap.String("source", pc.source), zap.Error(err))
		} else {
			metrics.IngestChunksTotal.WithLabelValues("embedded").Inc()
			bySource[pc.source] = append(bySource[pc.source], types.ContentChunk{
				Source:     pc.source,
				Content:    pc.content,
				Embedding:  vec,
				ChunkIndex: len(bySource[pc.source]),
			})
			embedded++
		}
		if (i+1)%10 == 0 || i == total-1 {
			progress(30+(i+1)*40/total, fmt.Sprintf("Embedded %d/%d chunks...", i+1, total))
		}
	}

	progress(80, "Saving to database...")
	result := &Result{Documents: len(docs), Chunks: total, Embedded: embedded}
	var (
		trained  []types.SourceItem
		saveErrs []error
	)
	for _, doc := range docs {
		if err := p.chunks.ReplaceSourceChunks(ctx, chatbotID, doc.Source, bySource[doc.Source]); err != nil {
			log.Error("Failed to store chunks", zap.String("source", doc.Source), zap.Error(err))
			saveErrs = append(saveErrs, err)
			continue
		}
		result.Sources = append(result.Sources, doc.Source)
		trained = append(trained, processed[doc.Source]...)
	}
	if len(result.Sources) == 0 {
		return nil, fmt.Errorf("failed to store chunks: %w", errors.Join(saveErrs...))
	}

	progress(95, "Marking items as trained...")
	lists.MarkTrained(trained)
	encoded, err := lists.Encode()
	if err != nil {
		return nil, err
	}
	if err := p.sources.SaveTrainingSources(ctx, encoded); err != nil {
		return nil, fmt.Errorf("failed to mark sources trained: %w", err)
	}

	log.Info("Ingestion finished",
		zap.Int("documents", result.Documents),
		zap.Int("chunks", result.Chunks),
		zap.Int("embedded", result.Embedded))
	return result, nil
}
