package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/config"
	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/utils"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage quick scenario presets",
	Long:  `Manage the user quick scenarios stored in $HOME/.railops-sim/presets.yaml`,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user presets",
	RunE:  listPresets,
}

var presetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new preset",
	RunE:  addPreset,
}

var presetRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a preset",
	Args:  cobra.MaximumNArgs(1),
	RunE:  removePreset,
}

func init() {
	presetRemoveCmd.Flags().BoolP("yes", "y", false, "remove without confirmation")

	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetAddCmd)
	presetCmd.AddCommand(presetRemoveCmd)
}

func loadPresets() (string, *config.Presets, error) {
	path, err := config.DefaultPresetsPath()
	if err != nil {
		return "", nil, err
	}
	presets, err := config.LoadPresets(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load presets: %w", err)
	}
	return path, presets, nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	_, presets, err := loadPresets()
	if err != nil {
		return err
	}

	if len(presets.Presets) == 0 {
		fmt.Println("No presets configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tLABEL\tPARAMETERS")
	_, _ = fmt.Fprintln(w, "----\t-----\t----------")

	for _, q := range presets.Presets {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", q.Name, q.Label, formatPatch(q.Patch))
	}

	return w.Flush()
}

func formatPatch(patch map[string]string) string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + patch[k]
	}
	return strings.Join(parts, " ")
}

func addPreset(cmd *cobra.Command, args []string) error {
	if !utils.IsInteractive() {
		return fmt.Errorf("preset add needs an interactive terminal")
	}

	path, presets, err := loadPresets()
	if err != nil {
		return err
	}

	builtins := catalog.NewDefaultRegistry()
	taken := func(name string) bool {
		if _, err := builtins.Get(name); err == nil {
			return true
		}
		_, exists := presets.Find(name)
		return exists
	}

	q, err := utils.PromptPreset(taken)
	if err != nil {
		return err
	}

	presets.Presets = append(presets.Presets, q)
	if err := config.SavePresets(path, presets); err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}

	logger.Successf("Preset %s added", q.Name)
	return nil
}

func removePreset(cmd *cobra.Command, args []string) error {
	path, presets, err := loadPresets()
	if err != nil {
		return err
	}

	if len(presets.Presets) == 0 {
		fmt.Println("No presets to remove")
		return nil
	}

	var selected string
	if len(args) == 1 {
		selected = args[0]
		if _, ok := presets.Find(selected); !ok {
			return fmt.Errorf("%w: %s", catalog.ErrUnknownPreset, selected)
		}
	} else {
		if !utils.IsInteractive() {
			return fmt.Errorf("a preset name is required")
		}

		names := make([]string, len(presets.Presets))
		for i, q := range presets.Presets {
			names[i] = q.Name
		}

		prompt := &survey.Select{
			Message: "Select preset to remove:",
			Options: names,
		}
		if err := survey.AskOne(prompt, &selected); err != nil {
			return err
		}
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && utils.IsInteractive() {
		var confirm bool
		confirmPrompt := &survey.Confirm{
			Message: fmt.Sprintf("Are you sure you want to remove %s?", selected),
			Default: false,
		}
		if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
			return err
		}
		if !confirm {
			fmt.Println("Removal cancelled")
			return nil
		}
	}

	presets.Remove(selected)
	if err := config.SavePresets(path, presets); err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}

	logger.Successf("Preset %s removed", selected)
	return nil
}
