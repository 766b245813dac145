package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ToolDefinition is a callable function exposed to the model. ToolInfo feeds
// eino-based providers and JSONSchema feeds providers that take a raw schema.
type ToolDefinition interface {
	ToolInfo() *schema.ToolInfo
	JSONSchema() map[string]any
}

// Request is one completion call. Messages hold the conversation without the
// system prompt; tool calls and results travel as eino messages.
type Request struct {
	SystemPrompt string
	Messages     []*schema.Message
	Tools        []ToolDefinition
	Temperature  *float32
	MaxTokens    int
}

// ToolCallDelta is a fragment of a tool call as it arrives on the stream.
// Index is nil when the provider does not number its calls.
type ToolCallDelta struct {
	Index     *int
	ID        string
	Name      string
	Arguments string
}

// Delta is one stream event; it may carry text, tool call fragments or both.
type Delta struct {
	Text      string
	ToolCalls []ToolCallDelta
}

// Stream yields deltas until Recv returns io.EOF.
type Stream interface {
	Recv() (Delta, error)
	Close()
}

// Provider is the capability every chat backend implements.
type Provider interface {
	Name() string
	StreamComplete(ctx context.Context, req *Request) (Stream, error)
	Complete(ctx context.Context, req *Request) (string, error)
}

// ImageTranscriber describes or transcribes an image for indexing.
type ImageTranscriber interface {
	TranscribeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

func withSystem(req *Request) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemPrompt))
	}
	return append(msgs, req.Messages...)
}
