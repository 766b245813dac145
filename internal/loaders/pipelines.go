package loaders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// StageMutator receives the raw stages JSON of a pipeline and returns the
// new JSON and whether it changed.
type StageMutator func(stages []byte) ([]byte, bool, error)

// UpdateDefaultPipeline locks the oldest default_customers pipeline of an
// organization and applies fn to its stages within a transaction. Returns
// ErrPipelineNotFound when the organization has no such pipeline.
func (c *PostgresClient) UpdateDefaultPipeline(ctx context.Context, organizationID string, fn StageMutator) (bool, error) {
	var changed bool
	err := c.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			pipelineID string
			stages     []byte
		)
		err := tx.QueryRow(ctx, `
			SELECT id::text, COALESCE(stages, '[]'::jsonb)
			FROM pipelines
			WHERE organization_id = $1 AND pipeline_manage_type = 'default_customers'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE`, organizationID).Scan(&pipelineID, &stages)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPipelineNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load pipeline: %w", err)
		}

		updated, ok, err := fn(stages)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE pipelines SET stages = $1::jsonb, updated_at = $2 WHERE id::text = $3`,
			string(updated), time.Now().UTC(), pipelineID); err != nil {
			return fmt.Errorf("failed to update pipeline stages: %w", err)
		}
		changed = true
		return nil
	})
	return changed, err
}
