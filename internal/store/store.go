// Package store records mission views so a run can be inspected or replayed
// after it ends. Recorders consume MissionView events from the telemetry bus.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Recorder persists mission views.
type Recorder interface {
	Record(ctx context.Context, view telemetry.MissionView) error
	Close() error
}

// encodedView is a mission view split into the columns every backend stores.
type encodedView struct {
	graph  []byte
	agents []byte
	nodes  int
	edges  int
	tasks  int
}

func encode(view telemetry.MissionView) (encodedView, error) {
	graph, err := json.Marshal(view.Graph)
	if err != nil {
		return encodedView{}, fmt.Errorf("failed to encode graph snapshot: %w", err)
	}
	agents, err := json.Marshal(view.Agents)
	if err != nil {
		return encodedView{}, fmt.Errorf("failed to encode agents: %w", err)
	}
	return encodedView{
		graph:  graph,
		agents: agents,
		nodes:  len(view.Graph.Nodes),
		edges:  len(view.Graph.Edges),
		tasks:  len(view.Graph.Tasks),
	}, nil
}

// Open creates the recorder selected by cfg, or nil for the "none" store.
func Open(ctx context.Context, cfg config.StoreConfig, fs afero.Fs, logger *zap.Logger) (Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case config.StoreNone, "":
		return nil, nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		rec, err := NewPostgresRecorder(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		rec.closeFn = pool.Close
		if err := rec.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return rec, nil
	case config.StoreSQLite:
		rec, err := OpenSQLite(ctx, cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case config.StoreFile:
		rec, err := NewFileRecorder(fs, cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// Consume records every MissionView arriving on events and acknowledges each
// event. Each write gets its own timeout and survives cancellation of ctx, so the
// final view of an interrupted mission is still stored. On the first failed write
// the remaining events are drained in the background until the bus closes the
// channel, and the error is returned.
func Consume(ctx context.Context, events <-chan telemetry.Event, ack func(telemetry.Event), rec Recorder, timeout time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("recorder")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := context.WithoutCancel(ctx)

	recorded := 0
	for ev := range events {
		view, ok := ev.Payload.(telemetry.MissionView)
		if !ok {
			ack(ev)
			continue
		}
		wctx, cancel := context.WithTimeout(base, timeout)
		err := rec.Record(wctx, view)
		cancel()
		ack(ev)
		if err != nil {
			logger.Error("Failed to record mission view", zap.Int("tick", view.Tick), zap.Error(err))
			go drain(events, ack)
			return fmt.Errorf("recording tick %d: %w", view.Tick, err)
		}
		recorded++
	}
	logger.Debug("Recorder finished", zap.Int("views", recorded))
	return nil
}

func drain(events <-chan telemetry.Event, ack func(telemetry.Event)) {
	for ev := range events {
		ack(ev)
	}
}
