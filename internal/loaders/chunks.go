package loaders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

func toVector(v []float64) pgvector.Vector {
	vec32 := make([]float32, len(v))
	for i, f := range v {
		vec32[i] = float32(f)
	}
	return pgvector.NewVector(vec32)
}

// ReplaceSourceChunks deletes every stored chunk of (chatbotID, source) and
// inserts chunks in one transaction, so re-ingesting a source never leaves
// it half replaced and never touches other sources.
func (c *PostgresClient) ReplaceSourceChunks(ctx context.Context, chatbotID, source string, chunks []types.ContentChunk) error {
	return c.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM training_chunks WHERE chatbot_id = $1 AND source = $2`,
			chatbotID, source)
		if err != nil {
			return fmt.Errorf("failed to delete chunks for source %q: %w", source, err)
		}

		if len(chunks) == 0 {
			return nil
		}

		now := time.Now().UTC()
		batch := &pgx.Batch{}
		for _, ch := range chunks {
			batch.Queue(`
				INSERT INTO training_chunks (chatbot_id, chunk_index, content, embedding, source, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				chatbotID, ch.ChunkIndex, ch.Content, toVector(ch.Embedding), source, now)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert chunks for source %q: %w", source, err)
		}

		utils.Zlog.Debug("Replaced source chunks",
			zap.String("chatbot_id", chatbotID),
			zap.String("source", source),
			zap.Int64("deleted", tag.RowsAffected()),
			zap.Int("inserted", len(chunks)))
		return nil
	})
}

// DeleteSourceChunks removes the chunks of one source and reports how many were deleted.
func (c *PostgresClient) DeleteSourceChunks(ctx context.Context, chatbotID, source string) (int64, error) {
	var deleted int64
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx,
			`DELETE FROM training_chunks WHERE chatbot_id = $1 AND source = $2`,
			chatbotID, source)
		if err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

// SearchChunks returns the limit nearest chunks of a chatbot by cosine
// distance, nearest first, with similarity = 1 - distance.
func (c *PostgresClient) SearchChunks(ctx context.Context, chatbotID string, query []float64, limit int) ([]types.ChunkMatch, error) {
	var results []types.ChunkMatch
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT content, COALESCE(source, ''), 1 - (embedding <=> $2) AS similarity
			FROM training_chunks
			WHERE chatbot_id = $1
			ORDER BY embedding <=> $2
			LIMIT $3`,
			chatbotID, toVector(query), limit)
		if err != nil {
			return fmt.Errorf("failed to query training_chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var m types.ChunkMatch
			if err := rows.Scan(&m.Content, &m.Source, &m.Similarity); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}
			results = append(results, m)
		}
		return rows.Err()
	})
	return results, err
}

// ListChunkContents returns stored chunk texts in source and index order.
func (c *PostgresClient) ListChunkContents(ctx context.Context, chatbotID string, limit int) ([]string, error) {
	var out []string
	err := c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT content FROM training_chunks
			WHERE chatbot_id = $1
			ORDER BY source ASC, chunk_index ASC
			LIMIT $2`, chatbotID, limit)
		if err != nil {
			return fmt.Errorf("failed to list chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return fmt.Errorf("failed to scan chunk: %w", err)
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}
