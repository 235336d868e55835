package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/config"
	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/report"
	"github.com/picogrid/railops-sim/pkg/simulation"
	"github.com/picogrid/railops-sim/pkg/utils"
)

var quickCmd = &cobra.Command{
	Use:   "quick [preset]",
	Short: "Run a quick scenario",
	Long: `Run a quick scenario: a named set of parameters that is filled in
and simulated immediately. Built-in quick scenarios can be extended with
'railops-sim preset add'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuick,
}

func init() {
	quickCmd.Flags().Bool("json", false, "print the session summary as JSON")
}

// loadRegistry returns the built-in quick scenarios plus the user presets
func loadRegistry() (*catalog.Registry, error) {
	reg := catalog.NewDefaultRegistry()

	path, err := config.DefaultPresetsPath()
	if err != nil {
		return nil, err
	}
	presets, err := config.LoadPresets(path)
	if err != nil {
		return nil, err
	}
	if err := presets.RegisterAll(reg); err != nil {
		return nil, fmt.Errorf("failed to register presets: %w", err)
	}
	return reg, nil
}

func runQuick(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	name, err := selectQuickScenario(reg, args)
	if err != nil {
		return err
	}
	preset, err := reg.Get(name)
	if err != nil {
		return err
	}
	patch, err := simulation.PatchFromMap(preset.Patch)
	if err != nil {
		return fmt.Errorf("quick scenario %s: %w", name, err)
	}

	exec, cleanup, err := newExecution(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runID, ok := exec.controller.RunQuick(patch)
	if !ok {
		return fmt.Errorf("quick scenario %s was refused", name)
	}
	if !exec.jsonOutput {
		logger.LogSection("Quick Scenario: " + quickLabel(preset))
		report.RenderSnapshot(cmd.OutOrStdout(), exec.controller.Snapshot())
	}
	return exec.wait(runID)
}

func selectQuickScenario(reg *catalog.Registry, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if !utils.IsInteractive() {
		return "", fmt.Errorf("a quick scenario name is required (one of %v)", reg.Names())
	}

	presets := reg.List()
	options := make([]string, len(presets))
	for i, q := range presets {
		options[i] = quickLabel(q)
	}

	var index int
	prompt := &survey.Select{
		Message: "Select quick scenario:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &index); err != nil {
		return "", err
	}
	return presets[index].Name, nil
}

func quickLabel(q catalog.QuickScenario) string {
	if q.Label == "" {
		return q.Name
	}
	return q.Label
}
