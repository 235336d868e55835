package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/report"
)

var listCmd = &cobra.Command{
	Use:       "list [scenarios|trains|tracks|quick]",
	Short:     "List the scenario, train and track catalogs",
	Long:      `List the predefined scenarios, the train and track catalogs and the quick scenarios`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"scenarios", "trains", "tracks", "quick"},
	RunE:      listCatalogs,
}

func listCatalogs(cmd *cobra.Command, args []string) error {
	sections := []string{"scenarios", "trains", "tracks", "quick"}
	if len(args) == 1 {
		sections = args
	}

	for i, section := range sections {
		var table *logger.Table
		switch section {
		case "scenarios":
			table = report.ScenarioTable()
		case "trains":
			table = report.TrainTable()
		case "tracks":
			table = report.TrackTable()
		case "quick":
			reg, err := loadRegistry()
			if err != nil {
				return fmt.Errorf("failed to load quick scenarios: %w", err)
			}
			table = report.QuickTable(reg)
		}

		if len(sections) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			logger.LogSubSection(section)
		}
		table.Fprint(cmd.OutOrStdout())
	}
	return nil
}
