package loaders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Conversly/lead-response/internal/types"
)

// decodeHistory accepts a JSON array or a JSON string holding an array,
// which older rows were written as.
func decodeHistory(raw []byte) []types.HistoryEntry {
	if len(raw) == 0 {
		return nil
	}
	var entries []types.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &entries); err == nil {
			return entries
		}
	}
	return nil
}

func (c *PostgresClient) GetConversation(ctx context.Context, conversationID string) (*types.Conversation, error) {
	var conv types.Conversation
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		var (
			userID, email, plan, title *string
			history                    []byte
		)
		err := conn.QueryRow(ctx, `
			SELECT conversation_id, chatbot_id, user_id, user_email, user_plan, title,
			       history, created_at, updated_at
			FROM bot_conversations
			WHERE conversation_id = $1`, conversationID).
			Scan(&conv.ConversationID, &conv.ChatbotID, &userID, &email, &plan, &title,
				&history, &conv.CreatedAt, &conv.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get conversation: %w", err)
		}
		conv.UserID = deref(userID)
		conv.UserEmail = deref(email)
		conv.UserPlan = deref(plan)
		conv.Title = deref(title)
		conv.History = decodeHistory(history)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversation inserts a conversation row. If the row already exists
// (a concurrent first turn) its history is appended to instead and the
// existing title is kept.
func (c *PostgresClient) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	history, err := json.Marshal(nonNilHistory(conv.History))
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	now := time.Now().UTC()
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO bot_conversations
				(user_id, user_email, user_plan, chatbot_id, conversation_id, title, history, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $8)
			ON CONFLICT (conversation_id) DO UPDATE
			SET history = COALESCE(bot_conversations.history, '[]'::jsonb) || EXCLUDED.history,
			    updated_at = EXCLUDED.updated_at`,
			conv.UserID, conv.UserEmail, conv.UserPlan, conv.ChatbotID, conv.ConversationID,
			conv.Title, string(history), now)
		if err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
		return nil
	})
}

// AppendHistory concatenates entries onto the stored history array.
func (c *PostgresClient) AppendHistory(ctx context.Context, conversationID string, entries []types.HistoryEntry) error {
	payload, err := json.Marshal(nonNilHistory(entries))
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE bot_conversations
			SET history = COALESCE(history, '[]'::jsonb) || $1::jsonb, updated_at = $2
			WHERE conversation_id = $3`,
			string(payload), time.Now().UTC(), conversationID)
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (c *PostgresClient) SetConversationEmail(ctx context.Context, conversationID, email string) error {
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE bot_conversations SET user_email = $1, updated_at = $2
			WHERE conversation_id = $3`,
			email, time.Now().UTC(), conversationID)
		if err != nil {
			return fmt.Errorf("failed to update conversation email: %w", err)
		}
		return nil
	})
}

func (c *PostgresClient) SetConversationTitle(ctx context.Context, conversationID, title string) error {
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE bot_conversations SET title = $1, updated_at = $2
			WHERE conversation_id = $3`,
			title, time.Now().UTC(), conversationID)
		if err != nil {
			return fmt.Errorf("failed to update conversation title: %w", err)
		}
		return nil
	})
}

func nonNilHistory(h []types.HistoryEntry) []types.HistoryEntry {
	if h == nil {
		return []types.HistoryEntry{}
	}
	return h
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
