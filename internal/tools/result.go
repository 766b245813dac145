package tools

import (
	"context"
	"encoding/json"

	"github.com/Conversly/lead-response/internal/crm"
	"github.com/Conversly/lead-response/internal/types"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the JSON payload returned to the model from a tool.
type Result struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Results []string `json:"results,omitempty"`
	Count   *int     `json:"count,omitempty"`
}

func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"status":"error","message":"Failed to encode tool result."}`
	}
	return string(b)
}

func success(msg string) Result { return Result{Status: StatusSuccess, Message: msg} }
func failure(msg string) Result { return Result{Status: StatusError, Message: msg} }

// StatusOf extracts the status of a tool result, "error" when unreadable.
func StatusOf(result string) string {
	var r Result
	if err := json.Unmarshal([]byte(result), &r); err != nil || r.Status == "" {
		return StatusError
	}
	return r.Status
}

// Session is the per-conversation context tool handlers act on. A
// successful form submission updates UserEmail.
type Session struct {
	ChatbotID      string
	UserID         string
	UserEmail      string
	ConversationID string
}

type LeadService interface {
	SaveLead(ctx context.Context, chatbotID, email string, data map[string]any) (string, error)
	RequestCallback(ctx context.Context, c crm.Contact) error
	QueueForSupport(ctx context.Context, c crm.Contact) error
}

type ConversationStore interface {
	SetConversationEmail(ctx context.Context, conversationID, email string) error
}

type Searcher interface {
	Retrieve(ctx context.Context, chatbotID, query string, k int) []types.ChunkMatch
}
