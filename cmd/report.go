package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/observability"
	"github.com/xkilldash9x/sgexplore/internal/store"
)

// newReportCmd creates the `report` command, which lists the views a mission
// recorded into a SQLite snapshot store.
func newReportCmd() *cobra.Command {
	var missionID string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Lists the recorded views of a mission from the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(missionID)
			if err != nil {
				return fmt.Errorf("invalid --mission-id: %w", err)
			}
			if cfg.Store().Type != config.StoreSQLite {
				return fmt.Errorf("report reads the sqlite store, but store.type is %q", cfg.Store().Type)
			}

			rec, err := store.OpenSQLite(ctx, cfg.Store().Path, observability.GetLogger())
			if err != nil {
				return err
			}
			defer rec.Close()

			views, err := rec.Views(ctx, id)
			if err != nil {
				return err
			}
			if len(views) == 0 {
				return fmt.Errorf("no views recorded for mission %s", id)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TICK\tFINAL\tNODES\tEDGES\tTASKS")
			for _, v := range views {
				fmt.Fprintf(tw, "%d\t%t\t%d\t%d\t%d\n", v.Tick, v.Final, v.NodeCount, v.EdgeCount, v.TaskCount)
			}
			return tw.Flush()
		},
	}
	reportCmd.Flags().StringVar(&missionID, "mission-id", "", "ID of the mission to report on.")
	_ = reportCmd.MarkFlagRequired("mission-id")
	return reportCmd
}
