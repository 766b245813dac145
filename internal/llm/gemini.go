package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// GeminiProvider streams completions from Gemini through eino.
type GeminiProvider struct {
	chat        *MultiKeyChatModel
	visionModel string
}

func NewGeminiProvider(ctx context.Context, apiKeys []string, modelName string, temperature float32) (*GeminiProvider, error) {
	chat, err := NewMultiKeyChatModel(ctx, apiKeys, modelName, &temperature, nil)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{chat: chat, visionModel: modelName}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) bind(req *Request) (model.ToolCallingChatModel, error) {
	if len(req.Tools) == 0 {
		return p.chat, nil
	}
	infos := make([]*schema.ToolInfo, len(req.Tools))
	for i, t := range req.Tools {
		infos[i] = t.ToolInfo()
	}
	return p.chat.WithTools(infos)
}

func (p *GeminiProvider) StreamComplete(ctx context.Context, req *Request) (Stream, error) {
	cm, err := p.bind(req)
	if err != nil {
		return nil, err
	}
	sr, err := cm.Stream(ctx, withSystem(req), callOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("gemini stream failed: %w", err)
	}
	return &einoStream{reader: sr}, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, req *Request) (string, error) {
	cm, err := p.bind(req)
	if err != nil {
		return "", err
	}
	msg, err := cm.Generate(ctx, withSystem(req), callOptions(req)...)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	return strings.TrimSpace(msg.Content), nil
}

// TranscribeImage asks Gemini to describe an image.
func (p *GeminiProvider) TranscribeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	resp, err := p.chat.nextClient().Models.GenerateContent(ctx, p.visionModel, []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		},
	}}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini vision failed: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func callOptions(req *Request) []model.Option {
	var opts []model.Option
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	return opts
}

// einoStream adapts an eino message stream. Gemini delivers each function
// call whole, so every named call gets its own index here.
type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
	next   int
}

func (s *einoStream) Recv() (Delta, error) {
	msg, err := s.reader.Recv()
	if err != nil {
		return Delta{}, err
	}
	d := Delta{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		delta := ToolCallDelta{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
		if delta.Index == nil && delta.Name != "" {
			idx := s.next
			s.next++
			delta.Index = &idx
		}
		if delta.ID == "" {
			delta.ID = delta.Name
		}
		d.ToolCalls = append(d.ToolCalls, delta)
	}
	return d, nil
}

func (s *einoStream) Close() {
	s.reader.Close()
}
