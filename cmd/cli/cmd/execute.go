package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/report"
	"github.com/picogrid/railops-sim/pkg/simulation"
	"github.com/picogrid/railops-sim/pkg/utils"
)

// execution wires a controller to the terminal for one run
type execution struct {
	controller *simulation.Controller
	metrics    *simulation.Metrics
	session    *report.Session
	jsonOutput bool
	showMetric bool
}

func newExecution(cmd *cobra.Command) (*execution, func(), error) {
	c, metrics, err := newController()
	if err != nil {
		return nil, nil, err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	showMetrics, _ := cmd.Flags().GetBool("metrics")

	session := report.NewSession(nil)
	if !jsonOutput {
		session = report.NewSession(os.Stdout)
	}
	detach := session.Attach(c)

	cleanup := func() {
		detach()
		c.Close()
	}
	return &execution{
		controller: c,
		metrics:    metrics,
		session:    session,
		jsonOutput: jsonOutput,
		showMetric: showMetrics,
	}, cleanup, nil
}

// wait blocks until the run started as runID lands, then renders it
func (e *execution) wait(runID uuid.UUID) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Warn("Received interrupt signal, abandoning simulation...")
			e.controller.Reset()
			cancel()
		case <-ctx.Done():
		}
	}()

	var spinner *logger.Spinner
	if !e.jsonOutput && utils.IsColorTerminal() {
		spinner = logger.NewSpinner("Simulating...")
		spinner.Start()
	}

	result, err := e.controller.Await(ctx)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return fmt.Errorf("simulation %s did not complete: %w", runID, err)
	}

	if e.jsonOutput {
		if err := e.session.WriteJSON(os.Stdout); err != nil {
			return err
		}
	} else {
		logger.LogSection("Simulation Results")
		report.RenderResult(os.Stdout, result)
	}

	if e.showMetric {
		table, err := report.MetricsTable(e.metrics.Gatherer())
		if err != nil {
			return err
		}
		logger.LogSubSection("Metrics")
		table.Print()
	}
	return nil
}
