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

func (c *PostgresClient) GetCustomer(ctx context.Context, organizationID, email string) (*types.Customer, error) {
	var cust types.Customer
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		var raw []byte
		err := conn.QueryRow(ctx, `
			SELECT id::text, organization_id::text, email, custom_data, created_at, updated_at
			FROM customers
			WHERE organization_id = $1 AND email = $2`, organizationID, email).
			Scan(&cust.ID, &cust.OrganizationID, &cust.Email, &raw, &cust.CreatedAt, &cust.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &cust.CustomData); err != nil {
				return fmt.Errorf("failed to decode custom_data: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

// UpsertCustomer inserts a customer or merges data into the existing
// custom_data of (organizationID, email). Keys absent from data are kept.
// It returns the customer id.
func (c *PostgresClient) UpsertCustomer(ctx context.Context, organizationID, email string, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal custom_data: %w", err)
	}

	var id string
	err = c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		now := time.Now().UTC()
		return conn.QueryRow(ctx, `
			INSERT INTO customers (organization_id, email, custom_data, created_at, updated_at)
			VALUES ($1, $2, $3::jsonb, $4, $4)
			ON CONFLICT (organization_id, email) DO UPDATE
			SET custom_data = COALESCE(customers.custom_data, '{}'::jsonb) || EXCLUDED.custom_data,
			    updated_at = EXCLUDED.updated_at
			RETURNING id::text`,
			organizationID, email, string(payload), now).Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert customer: %w", err)
	}
	return id, nil
}
