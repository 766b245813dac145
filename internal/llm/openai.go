package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider streams chat completions from OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIProvider(apiKey, baseURL, model string, temperature float32) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) buildRequest(req *Request) openai.ChatCompletionRequest {
	temperature := p.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	out := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(withSystem(req)),
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, t := range req.Tools {
		info := t.ToolInfo()
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  t.JSONSchema(),
			},
		})
	}
	return out
}

func (p *OpenAIProvider) StreamComplete(ctx context.Context, req *Request) (Stream, error) {
	r := p.buildRequest(req)
	r.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// TranscribeImage sends the image as a data URL alongside prompt.
func (p *OpenAIProvider) TranscribeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
		MaxTokens: 2000,
	})
	if err != nil {
		return "", fmt.Errorf("openai vision failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toOpenAIMessages(msgs []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		msg := openai.ChatCompletionMessage{Content: m.Content}
		switch m.Role {
		case schema.System:
			msg.Role = openai.ChatMessageRoleSystem
		case schema.Assistant:
			msg.Role = openai.ChatMessageRoleAssistant
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		case schema.Tool:
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
		default:
			msg.Role = openai.ChatMessageRoleUser
		}
		out = append(out, msg)
	}
	return out
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (Delta, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return Delta{}, err
	}
	var d Delta
	if len(resp.Choices) == 0 {
		return d, nil
	}
	choice := resp.Choices[0].Delta
	d.Text = choice.Content
	for _, tc := range choice.ToolCalls {
		d.ToolCalls = append(d.ToolCalls, ToolCallDelta{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return d, nil
}

func (s *openAIStream) Close() {
	_ = s.stream.Close()
}
