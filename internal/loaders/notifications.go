package loaders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Conversly/lead-response/internal/types"
)

func (c *PostgresClient) CreateNotification(ctx context.Context, n types.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO notifications (chatbot_id, organization_id, type, title, message, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
			n.ChatbotID, n.OrganizationID, n.Type, n.Title, n.Message, string(data), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
		return nil
	})
}
