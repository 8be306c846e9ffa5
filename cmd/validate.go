package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sgexplore/internal/observability"
)

// newValidateCmd creates the `validate` command, which checks the configuration
// and scenario without running a mission.
func newValidateCmd() *cobra.Command {
	var scenario string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Checks the configuration and scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("scenario") {
				cfg.SetScenarioFile(scenario)
			}

			world, _, err := loadWorld(appFs, cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			s := world.Scenario()
			name := s.Name
			if name == "" {
				name = cfg.Scenario().File
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scenario %q is valid: %d agents, %d world objects, %d obstacles\n",
				name, len(s.Agents), len(s.WorldObjects), len(s.Obstacles))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Scenario file to check. (Overrides config/env)")
	return validateCmd
}
