package types

import (
	"fmt"
	"strings"
	"time"
)

// History roles as stored in bot_conversations.history.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Chatbot identifies a tenant bot and the organization that owns it.
type Chatbot struct {
	ChatbotID        string `json:"chatbot_id"`
	OrganizationID   string `json:"organization_id"`
	OrganizationType string `json:"organization_type"`
}

// FormField is one configured pre-chat form field.
type FormField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// HistoryEntry is one element of a conversation's append-only history.
type HistoryEntry struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func NewHistoryEntry(role, text string, at time.Time) HistoryEntry {
	return HistoryEntry{Role: role, Text: text, Timestamp: at.UTC().Format(time.RFC3339Nano)}
}

type Conversation struct {
	ConversationID string
	ChatbotID      string
	UserID         string
	UserEmail      string
	UserPlan       string
	Title          string
	History        []HistoryEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Customer is keyed by (organization, email); CustomData holds collected fields.
type Customer struct {
	ID             string
	OrganizationID string
	Email          string
	CustomData     map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Field returns a custom data value as trimmed text, or "" when absent.
func (c *Customer) Field(key string) string {
	if c == nil || c.CustomData == nil {
		return ""
	}
	v, ok := c.CustomData[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

type Notification struct {
	ChatbotID      string
	OrganizationID string
	Type           string
	Title          string
	Message        string
	Data           map[string]any
}

// TrainingState mirrors the training columns of an organization's automations row.
type TrainingState struct {
	OrganizationID string `json:"organization_id"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	Message        string `json:"message"`
	JobID          string `json:"job_id,omitempty"`
}

// TrainingSources holds the raw JSON source lists of an organization.
type TrainingSources struct {
	OrganizationID string
	URLs           []byte
	Files          []byte
	Articles       []byte
}

// ChunkMatch is one vector search hit.
type ChunkMatch struct {
	Content    string  `json:"content"`
	Source     string  `json:"source,omitempty"`
	Similarity float64 `json:"similarity"`
}
