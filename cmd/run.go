package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/observability"
)

// newRunCmd creates the `run` command.
func newRunCmd() *cobra.Command {
	var (
		steps    int
		seed     int64
		scenario string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs an exploration mission in the configured scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			// Flags override the config file and environment.
			if cmd.Flags().Changed("steps") {
				if steps < 1 {
					return fmt.Errorf("--steps must be at least 1, got %d", steps)
				}
				cfg.SetMissionStepBudget(steps)
			}
			if cmd.Flags().Changed("seed") {
				cfg.SetMissionSeed(seed)
			}
			if cmd.Flags().Changed("scenario") {
				cfg.SetScenarioFile(scenario)
			}

			logger.Info("Starting mission",
				zap.String("scenario", cfg.Scenario().File),
				zap.Int("step_budget", cfg.Mission().StepBudget),
				zap.Int64("seed", cfg.Mission().Seed),
				zap.String("store", cfg.Store().Type),
			)

			res, err := runMission(ctx, appFs, cfg, logger)
			if res.MissionID != uuid.Nil {
				printResult(cmd.OutOrStdout(), res)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Mission aborted", zap.Stringer("mission", res.MissionID))
				}
				return err
			}
			return nil
		},
	}

	runCmd.Flags().IntVarP(&steps, "steps", "n", 0, "Step budget for the mission. (Overrides config/env)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for frontier sampling and assessment outcomes. (Overrides config/env)")
	runCmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Scenario file describing the simulated world. (Overrides config/env)")
	return runCmd
}
