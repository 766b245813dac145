package llm

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Conversly/lead-response/internal/utils"
)

// MultiKeyChatModel spreads Gemini requests over several API keys in
// round-robin order.
type MultiKeyChatModel struct {
	models   []model.ToolCallingChatModel
	clients  []*genai.Client
	keyIndex *uint64 // shared with tool-bound copies
}

func NewMultiKeyChatModel(ctx context.Context, apiKeys []string, modelName string, temperature *float32, maxTokens *int) (*MultiKeyChatModel, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}

	models := make([]model.ToolCallingChatModel, len(apiKeys))
	clients := make([]*genai.Client, len(apiKeys))

	for i, key := range apiKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client for key %d: %w", i+1, err)
		}

		chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model for key %d: %w", i+1, err)
		}

		models[i] = chatModel
		clients[i] = client
	}

	utils.Zlog.Info("Created multi-key chat model with round-robin rotation",
		zap.Int("key_count", len(apiKeys)),
		zap.String("model", modelName))

	var idx uint64
	return &MultiKeyChatModel{
		models:   models,
		clients:  clients,
		keyIndex: &idx,
	}, nil
}

func (m *MultiKeyChatModel) next() int {
	if len(m.models) == 1 {
		return 0
	}
	return int(atomic.AddUint64(m.keyIndex, 1) % uint64(len(m.models)))
}

func (m *MultiKeyChatModel) nextClient() *genai.Client {
	return m.clients[m.next()]
}

func (m *MultiKeyChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.models[m.next()].Generate(ctx, input, opts...)
}

func (m *MultiKeyChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.models[m.next()].Stream(ctx, input, opts...)
}

// WithTools returns a copy bound to tools; the receiver is left untouched.
func (m *MultiKeyChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound := make([]model.ToolCallingChatModel, len(m.models))
	for i, chatModel := range m.models {
		withTools, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools to model %d: %w", i+1, err)
		}
		bound[i] = withTools
	}

	return &MultiKeyChatModel{
		models:   bound,
		clients:  m.clients,
		keyIndex: m.keyIndex,
	}, nil
}

var _ model.ToolCallingChatModel = (*MultiKeyChatModel)(nil)
