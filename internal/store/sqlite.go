package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mission_views (
    mission_id TEXT NOT NULL,
    tick INTEGER NOT NULL,
    final INTEGER NOT NULL,
    node_count INTEGER NOT NULL,
    edge_count INTEGER NOT NULL,
    task_count INTEGER NOT NULL,
    graph TEXT NOT NULL,
    agents TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    PRIMARY KEY (mission_id, tick, final)
);
`

// SQLiteRecorder stores mission views in a local SQLite database.
type SQLiteRecorder struct {
	conn *sql.DB
	log  *zap.Logger
}

var _ Recorder = (*SQLiteRecorder)(nil)

// OpenSQLite opens or creates the database at path and applies the schema. Use
// ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding sqlite path: %w", err)
	}
	conn, err := sql.Open("sqlite", expanded)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite has a single writer and every ":memory:" connection
	// would otherwise see its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteRecorder{conn: conn, log: logger.Named("store.sqlite")}, nil
}

// Record inserts the view, replacing an earlier one with the same key.
func (s *SQLiteRecorder) Record(ctx context.Context, view telemetry.MissionView) error {
	enc, err := encode(view)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
        INSERT OR REPLACE INTO mission_views
            (mission_id, tick, final, node_count, edge_count, task_count, graph, agents, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		view.MissionID.String(), view.Tick, view.Final,
		enc.nodes, enc.edges, enc.tasks,
		string(enc.graph), string(enc.agents), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting mission view: %w", err)
	}
	return nil
}

// StoredView is one recorded row, with the graph and agents left encoded.
type StoredView struct {
	Tick      int
	Final     bool
	NodeCount int
	EdgeCount int
	TaskCount int
	Graph     string
	Agents    string
}

// Views returns the recorded views of a mission ordered by tick, the final view
// last.
func (s *SQLiteRecorder) Views(ctx context.Context, missionID uuid.UUID) ([]StoredView, error) {
	rows, err := s.conn.QueryContext(ctx, `
        SELECT tick, final, node_count, edge_count, task_count, graph, agents
        FROM mission_views
        WHERE mission_id = ?
        ORDER BY final, tick`, missionID.String())
	if err != nil {
		return nil, fmt.Errorf("querying mission views: %w", err)
	}
	defer rows.Close()

	var out []StoredView
	for rows.Next() {
		var v StoredView
		if err := rows.Scan(&v.Tick, &v.Final, &v.NodeCount, &v.EdgeCount, &v.TaskCount, &v.Graph, &v.Agents); err != nil {
			return nil, fmt.Errorf("scanning mission view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteRecorder) Close() error {
	return s.conn.Close()
}
