package core

import (
	"context"

	"github.com/Conversly/lead-response/internal/types"
)

// Turn is one completed exchange to persist. Conversation carries the row
// defaults used when the conversation has to be created.
type Turn struct {
	Conversation types.Conversation
	Entries      []types.HistoryEntry
	IsNew        bool

	// Retitle, when set, produces a better title once the turn is stored.
	Retitle func(ctx context.Context) string
	// Saved receives the write result. It must have room for one value.
	Saved chan error
}

// ConversationWriter is the persistence a TurnSaver writes through.
type ConversationWriter interface {
	CreateConversation(ctx context.Context, conv *types.Conversation) error
	AppendHistory(ctx context.Context, conversationID string, entries []types.HistoryEntry) error
	SetConversationTitle(ctx context.Context, conversationID, title string) error
}
