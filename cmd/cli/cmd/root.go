package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/railops-sim/pkg/config"
	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/simulation"
	"github.com/picogrid/railops-sim/pkg/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "railops-sim",
	Short: "Railway operations what-if simulator",
	Long: `railops-sim runs what-if scenarios against a railway network:
train delays, track blockages, signal failures, weather and peak load.
Each run reports the expected delay impact, affected trains, alternative
routes, estimated cost and a list of recommended actions.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.railops-sim/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("no-color", false, "disable colored output")
	flags.Duration("completion-delay", simulation.DefaultCompletionDelay, "how long a run stays pending")
	flags.Int64("seed", 0, "random seed for results (0 picks one from the clock)")
	flags.Bool("stale-completions", false, "let superseded runs overwrite the state when they land")
	flags.Bool("metrics", false, "print run metrics before exiting")

	for key, flag := range map[string]string{
		config.KeyLogLevel:         "log-level",
		config.KeyNoColor:          "no-color",
		config.KeyCompletionDelay:  "completion-delay",
		config.KeySeed:             "seed",
		config.KeyStaleCompletions: "stale-completions",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(quickCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(presetCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig reads in config file and ENV variables if set
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.Configure(viper.GetViper(), cfgFile); err != nil {
		return err
	}

	noColor := viper.GetBool(config.KeyNoColor) || !utils.IsColorTerminal()
	logger.SetLevel(logger.ParseLevel(viper.GetString(config.KeyLogLevel)))
	logger.SetNoColor(noColor)
	color.NoColor = noColor
	return nil
}

// newController builds a controller from the loaded settings, recording
// metrics into a private registry
func newController() (*simulation.Controller, *simulation.Metrics, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	metrics, err := simulation.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	opts := append(settings.ControllerOptions(),
		simulation.WithMetrics(metrics),
		simulation.WithLogger(logger.WithPrefix("simulation")),
	)
	return simulation.NewController(opts...), metrics, nil
}
