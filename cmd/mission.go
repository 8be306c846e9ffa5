package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/mission"
	"github.com/xkilldash9x/sgexplore/internal/platform"
	"github.com/xkilldash9x/sgexplore/internal/store"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// appFs is the filesystem scenarios and file snapshots are read from and written to.
var appFs afero.Fs = afero.NewOsFs()

// loadWorld reads the configured scenario and builds the simulated world around it.
func loadWorld(fs afero.Fs, cfg config.Interface, logger *zap.Logger) (*platform.World, localgrid.OccupancyTest, error) {
	grid := cfg.Grid()
	test, err := localgrid.NewOccupancyTest(grid.OccupancyTest, grid.Threshold)
	if err != nil {
		return nil, nil, err
	}
	scenario, err := platform.LoadScenario(fs, cfg.Scenario().File)
	if err != nil {
		return nil, nil, err
	}
	world, err := platform.NewWorld(scenario, grid, test, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build world: %w", err)
	}
	return world, test, nil
}

// runMission executes one mission end to end. Mission views are recorded by the
// configured store while the mission runs; a failing recorder stops the mission.
func runMission(ctx context.Context, fs afero.Fs, cfg config.Interface, logger *zap.Logger) (mission.Result, error) {
	world, test, err := loadWorld(fs, cfg, logger)
	if err != nil {
		return mission.Result{}, err
	}
	agents, err := mission.AgentsFromWorld(world, cfg.Grid(), test, logger)
	if err != nil {
		return mission.Result{}, err
	}

	rec, err := store.Open(ctx, cfg.Store(), fs, logger)
	if err != nil {
		return mission.Result{}, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	if rec != nil {
		defer func() {
			if cerr := rec.Close(); cerr != nil {
				logger.Warn("Failed to close snapshot store", zap.Error(cerr))
			}
		}()
	}

	bus := telemetry.NewBus(logger, cfg.Mission().TelemetryBuffer)
	sink := telemetry.Multi{telemetry.NewLogSink(logger), bus}
	runner, err := mission.NewRunner(cfg, agents, sink, logger)
	if err != nil {
		bus.Shutdown()
		return mission.Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if rec != nil {
		events, _ := bus.Subscribe(telemetry.EventMissionView)
		g.Go(func() error {
			return store.Consume(gctx, events, bus.Acknowledge, rec, cfg.Store().Timeout, logger)
		})
	}

	var res mission.Result
	g.Go(func() error {
		defer bus.Shutdown()
		var runErr error
		res, runErr = runner.Run(gctx)
		return runErr
	})
	return res, g.Wait()
}

// printResult writes a human readable mission summary.
func printResult(w io.Writer, res mission.Result) {
	fmt.Fprintf(w, "Mission %s finished: %s after %d ticks\n", res.MissionID, res.Reason, res.Ticks)
	fmt.Fprintf(w, "Remaining tasks: %d\n", res.RemainingTasks)

	kinds := make([]string, 0, len(res.Nodes))
	for kind := range res.Nodes {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %-16s %d\n", kind, res.Nodes[kind])
	}
}
