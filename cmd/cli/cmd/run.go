package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/report"
	"github.com/picogrid/railops-sim/pkg/simulation"
	"github.com/picogrid/railops-sim/pkg/utils"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario simulation",
	Long: `Run a scenario simulation interactively or with specified parameters.

Missing parameters are prompted for when stdin is a terminal.`,
	Example: `  railops-sim run --scenario train_delay --train T001 --delay 10
  railops-sim run --scenario track_blockage --track TR002
  railops-sim run --custom --json`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().StringP("scenario", "s", "", "scenario id (see `railops-sim list scenarios`)")
	runCmd.Flags().String("train", "", "train id for train_delay")
	runCmd.Flags().String("track", "", "track id for track_blockage")
	runCmd.Flags().String("delay", simulation.DefaultDelayMinutes, "delay in minutes for train_delay")
	runCmd.Flags().Bool("custom", false, "run a custom scenario instead of a catalog one")
	runCmd.Flags().Bool("json", false, "print the session summary as JSON")
	runCmd.MarkFlagsMutuallyExclusive("scenario", "custom")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	exec, cleanup, err := newExecution(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	c := exec.controller
	if err := applyRunFlags(cmd, c); err != nil {
		return err
	}

	if utils.IsInteractive() && !exec.jsonOutput {
		if !cmd.Flags().Changed("scenario") && !cmd.Flags().Changed("custom") {
			mode, err := utils.PromptMode()
			if err != nil {
				return fmt.Errorf("failed to get scenario type: %w", err)
			}
			c.SetSelectionMode(mode)
		}
		if err := utils.FillForm(c); err != nil {
			return err
		}
	}

	snap := c.Snapshot()
	if !exec.jsonOutput {
		logger.LogSection("Simulation Setup")
		report.RenderSnapshot(cmd.OutOrStdout(), snap)
	}
	if snap.RunDisabled() {
		return fmt.Errorf("no scenario selected (use --scenario or --custom)")
	}

	runID, ok := c.Run()
	if !ok {
		return fmt.Errorf("simulation refused for scenario %q", snap.Parameters.ScenarioID)
	}
	return exec.wait(runID)
}

// applyRunFlags copies the flags into the controller form, checking ids
// against the catalog
func applyRunFlags(cmd *cobra.Command, c *simulation.Controller) error {
	flags := cmd.Flags()

	if custom, _ := flags.GetBool("custom"); custom {
		c.SetSelectionMode(simulation.ModeCustom)
	}

	if scenario, _ := flags.GetString("scenario"); scenario != "" {
		if err := catalog.ValidateScenario(scenario); err != nil {
			return err
		}
		c.SelectScenario(scenario)
	}
	if train, _ := flags.GetString("train"); train != "" {
		if err := catalog.ValidateTrain(train); err != nil {
			return err
		}
		c.SetParameter(simulation.ParamTrainID, train)
	}
	if track, _ := flags.GetString("track"); track != "" {
		if err := catalog.ValidateTrack(track); err != nil {
			return err
		}
		c.SetParameter(simulation.ParamTrackID, track)
	}
	if flags.Changed("delay") {
		delay, _ := flags.GetString("delay")
		c.SetParameter(simulation.ParamDelayMinutes, delay)
	}
	return nil
}
