package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateMissions = `
        CREATE TABLE IF NOT EXISTS missions (
            id UUID PRIMARY KEY,
            last_tick INTEGER NOT NULL,
            finished BOOLEAN NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlCreateViews = `
        CREATE TABLE IF NOT EXISTS mission_views (
            mission_id UUID NOT NULL REFERENCES missions(id),
            tick INTEGER NOT NULL,
            final BOOLEAN NOT NULL,
            node_count INTEGER NOT NULL,
            edge_count INTEGER NOT NULL,
            task_count INTEGER NOT NULL,
            graph JSONB NOT NULL,
            agents JSONB NOT NULL,
            recorded_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (mission_id, tick, final)
        );
    `
	sqlUpsertMission = `
        INSERT INTO missions (id, last_tick, finished, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET
            last_tick = EXCLUDED.last_tick,
            finished = EXCLUDED.finished,
            updated_at = EXCLUDED.updated_at;
    `
	sqlUpsertView = `
        INSERT INTO mission_views (mission_id, tick, final, node_count, edge_count, task_count, graph, agents, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (mission_id, tick, final) DO UPDATE SET
            node_count = EXCLUDED.node_count,
            edge_count = EXCLUDED.edge_count,
            task_count = EXCLUDED.task_count,
            graph = EXCLUDED.graph,
            agents = EXCLUDED.agents,
            recorded_at = EXCLUDED.recorded_at;
    `
)

// PostgresRecorder stores mission views in PostgreSQL.
type PostgresRecorder struct {
	pool    DBPool
	log     *zap.Logger
	closeFn func()
}

var _ Recorder = (*PostgresRecorder)(nil)

// NewPostgresRecorder creates a recorder and verifies the connection.
func NewPostgresRecorder(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresRecorder, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRecorder{pool: pool, log: logger.Named("store.postgres")}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlCreateMissions, sqlCreateViews} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Record upserts the mission row and the view in one transaction.
func (s *PostgresRecorder) Record(ctx context.Context, view telemetry.MissionView) error {
	enc, err := encode(view)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, sqlUpsertMission, view.MissionID, view.Tick, view.Final, now); err != nil {
		return fmt.Errorf("failed to upsert mission: %w", err)
	}
	if _, err := tx.Exec(ctx, sqlUpsertView,
		view.MissionID, view.Tick, view.Final,
		enc.nodes, enc.edges, enc.tasks,
		enc.graph, enc.agents, now,
	); err != nil {
		return fmt.Errorf("failed to upsert mission view: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the pool when the recorder owns it.
func (s *PostgresRecorder) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
