package loaders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Conversly/lead-response/internal/types"
)

// GetTrainingState resolves a chatbot's organization and its training columns.
func (c *PostgresClient) GetTrainingState(ctx context.Context, chatbotID string) (*types.TrainingState, error) {
	var st types.TrainingState
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		var (
			status, message, jobID *string
			progress               *int32
		)
		err := conn.QueryRow(ctx, `
			SELECT c.organization_id::text, a.training_status, a.training_progress,
			       a.training_message, a.training_job_id
			FROM chatbots c
			LEFT JOIN automations a ON c.organization_id = a.organization_id
			WHERE c.chatbot_id = $1`, chatbotID).
			Scan(&st.OrganizationID, &status, &progress, &message, &jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get training state: %w", err)
		}
		st.Status = deref(status)
		st.Message = deref(message)
		st.JobID = deref(jobID)
		if progress != nil {
			st.Progress = int(*progress)
		}
		if st.Status == "" {
			st.Status = "idle"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *PostgresClient) MarkTrainingStarted(ctx context.Context, organizationID, jobID string, progress int, message string) error {
	return c.execAutomations(ctx, `
		UPDATE automations
		SET training_status = 'training', training_progress = $1, training_job_id = $2,
		    training_started_at = NOW(), training_message = $3
		WHERE organization_id::text = $4`, progress, jobID, message, organizationID)
}

func (c *PostgresClient) UpdateTrainingProgress(ctx context.Context, organizationID, status string, progress int, message string) error {
	return c.execAutomations(ctx, `
		UPDATE automations
		SET training_status = $1, training_progress = $2, training_message = $3
		WHERE organization_id::text = $4`, status, progress, message, organizationID)
}

func (c *PostgresClient) MarkTrainingFailed(ctx context.Context, organizationID, message string) error {
	return c.execAutomations(ctx, `
		UPDATE automations SET training_status = 'failed', training_message = $1
		WHERE organization_id::text = $2`, message, organizationID)
}

// GetTrainingSources loads the raw source lists of a chatbot's organization.
func (c *PostgresClient) GetTrainingSources(ctx context.Context, chatbotID string) (*types.TrainingSources, error) {
	var src types.TrainingSources
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
			SELECT a.organization_id::text, a.training_url, a.training_pdf, a.training_article
			FROM automations a
			JOIN chatbots c ON c.organization_id = a.organization_id
			WHERE c.chatbot_id = $1`, chatbotID).
			Scan(&src.OrganizationID, &src.URLs, &src.Files, &src.Articles)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get training sources: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// SaveTrainingSources rewrites the three source lists of an organization.
func (c *PostgresClient) SaveTrainingSources(ctx context.Context, src *types.TrainingSources) error {
	return c.execAutomations(ctx, `
		UPDATE automations
		SET training_url = $1::jsonb, training_pdf = $2::jsonb, training_article = $3::jsonb
		WHERE organization_id::text = $4`,
		jsonOrEmpty(src.URLs), jsonOrEmpty(src.Files), jsonOrEmpty(src.Articles), src.OrganizationID)
}

func (c *PostgresClient) execAutomations(ctx context.Context, sql string, args ...any) error {
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to update automations: %w", err)
		}
		return nil
	})
}

func jsonOrEmpty(b []byte) string {
	if len(b) == 0 {
		return "[]"
	}
	return string(b)
}
