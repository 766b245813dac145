package loaders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Conversly/lead-response/internal/types"
)

// GetChatbot resolves a chatbot and its organization type. Returns ErrNotFound for unknown ids.
func (c *PostgresClient) GetChatbot(ctx context.Context, chatbotID string) (*types.Chatbot, error) {
	var bot types.Chatbot
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		var orgType *string
		err := conn.QueryRow(ctx, `
			SELECT c.chatbot_id, c.organization_id::text, o.organization_type
			FROM chatbots c
			LEFT JOIN organizations o ON o.id = c.organization_id
			WHERE c.chatbot_id = $1`, chatbotID).
			Scan(&bot.ChatbotID, &bot.OrganizationID, &orgType)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get chatbot: %w", err)
		}
		bot.OrganizationType = deref(orgType)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// GetPreChatForm returns the configured pre-chat form fields of a chatbot,
// or nil when none is configured.
func (c *PostgresClient) GetPreChatForm(ctx context.Context, chatbotID string) ([]types.FormField, error) {
	var raw []byte
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx,
			`SELECT pre_chat_form FROM forms WHERE chatbot_id = $1 LIMIT 1`, chatbotID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pre-chat form: %w", err)
	}
	return ParseFormFields(raw)
}

// ParseFormFields accepts either a bare array of fields or an object with a
// "fields" array; an empty object means no form.
func ParseFormFields(raw []byte) ([]types.FormField, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var fields []types.FormField
	if err := json.Unmarshal(raw, &fields); err == nil {
		return compactFields(fields), nil
	}
	var wrapped struct {
		Fields []types.FormField `json:"fields"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse pre-chat form: %w", err)
	}
	return compactFields(wrapped.Fields), nil
}

func compactFields(in []types.FormField) []types.FormField {
	out := make([]types.FormField, 0, len(in))
	for _, f := range in {
		if f.ID != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
