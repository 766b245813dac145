package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/ingest"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/training"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

type Jobs interface {
	Start(ctx context.Context, chatbotID, webhookURL string) (*training.StartResult, error)
	Status(ctx context.Context, chatbotID string) (*types.TrainingState, error)
}

type Ingester interface {
	Run(ctx context.Context, chatbotID string, progress ingest.ProgressFunc) (*ingest.Result, error)
}

type ChunkDeleter interface {
	DeleteSourceChunks(ctx context.Context, chatbotID, source string) (int64, error)
}

type Service struct {
	jobs     Jobs
	ingester Ingester
	chunks   ChunkDeleter
}

func NewService(jobs Jobs, ingester Ingester, chunks ChunkDeleter) *Service {
	return &Service{jobs: jobs, ingester: ingester, chunks: chunks}
}

func (s *Service) StartJob(ctx context.Context, req *IngestRequest) (*training.StartResult, error) {
	return s.jobs.Start(ctx, req.ChatbotID, req.WebhookURL)
}

func (s *Service) Status(ctx context.Context, chatbotID string) (*types.TrainingState, error) {
	return s.jobs.Status(ctx, chatbotID)
}

// IngestNow runs the ingestion pipeline on the caller's request.
func (s *Service) IngestNow(ctx context.Context, chatbotID string) (*SyncResponse, error) {
	res, err := s.ingester.Run(ctx, chatbotID, func(progress int, message string) {
		utils.Zlog.Debug("Ingestion progress",
			zap.String("chatbot_id", chatbotID),
			zap.Int("progress", progress),
			zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest knowledge base: %w", err)
	}
	if res.NoNewData {
		return &SyncResponse{Message: "No new data to train"}, nil
	}
	return &SyncResponse{
		Message:   "Knowledge Base updated successfully (Local Vector DB)",
		Documents: res.Documents,
		Chunks:    res.Chunks,
		Sources:   res.Sources,
	}, nil
}

func (s *Service) DeleteSource(ctx context.Context, req *DeleteSourceRequest) (*DeleteSourceResponse, error) {
	n, err := s.chunks.DeleteSourceChunks(ctx, req.ChatbotID, req.Source)
	if err != nil {
		return nil, err
	}
	metrics.IngestChunksTotal.WithLabelValues("deleted").Add(float64(n))
	utils.Zlog.Info("Deleted source chunks",
		zap.String("chatbot_id", req.ChatbotID),
		zap.String("source", req.Source),
		zap.Int64("deleted", n))
	return &DeleteSourceResponse{Message: "Source deleted", Deleted: n}, nil
}
