package loaders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/utils"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPipelineNotFound is returned when an organization has no default customers pipeline.
	ErrPipelineNotFound = errors.New("default customers pipeline not found")
)

type PostgresClient struct {
	dsn  string
	pool *pgxpool.Pool
}

// NewPostgresClient opens a bounded pool (workerCount+2 connections). With
// vector set, the pgvector extension is ensured and its types are registered
// on every pooled connection.
func NewPostgresClient(dsn string, workerCount int, vector bool) (*PostgresClient, error) {
	client := &PostgresClient{dsn: dsn}

	pool, err := client.createConnectionPool(workerCount, vector)
	if err != nil {
		return nil, err
	}

	client.pool = pool
	utils.Zlog.Info("Connected to PostgreSQL", zap.Bool("pgvector", vector))
	return client, nil
}

func (c *PostgresClient) createConnectionPool(workerCount int, vector bool) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Postgres DSN: %w", err)
	}

	cfg.MaxConns = int32(workerCount) + 2
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = 60 * time.Minute
	cfg.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if vector {
		// The extension has to exist before any pooled connection registers its types.
		if err := ensureVectorExtension(ctx, cfg.ConnConfig); err != nil {
			utils.Zlog.Warn("Failed to enable pgvector extension", zap.Error(err))
		}
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
	}

	utils.Zlog.Info("Creating Postgres connection pool", zap.Int32("max_conns", cfg.MaxConns))
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	return pool, nil
}

func ensureVectorExtension(ctx context.Context, connCfg *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, connCfg.Copy())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	return err
}

// WithConnection borrows a pooled connection for the duration of fn and
// returns it on every exit path, including panics inside fn.
func (c *PostgresClient) WithConnection(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

// WithTx runs fn inside a transaction on a borrowed connection. The
// transaction is committed when fn returns nil and rolled back otherwise.
func (c *PostgresClient) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return c.WithConnection(ctx, func(conn *pgxpool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *PostgresClient) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}
