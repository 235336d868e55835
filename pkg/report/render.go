package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/simulation"
)

// Color definitions for the result tiles
var (
	colorDelay    = color.New(color.FgRed, color.Bold)
	colorAffected = color.New(color.FgYellow, color.Bold)
	colorRoutes   = color.New(color.FgBlue, color.Bold)
	colorCost     = color.New(color.FgMagenta, color.Bold)
	colorTitle    = color.New(color.FgCyan, color.Bold)
	colorMuted    = color.New(color.FgHiBlack)
	colorPending  = color.New(color.FgYellow)
	colorReady    = color.New(color.FgGreen)
)

var printer = message.NewPrinter(language.English)

// FormatCost renders a currency amount with thousands separators
func FormatCost(amount int) string {
	return printer.Sprintf("$%d", amount)
}

// DescribeParameters lists the parameters the selected scenario uses, with
// catalog names resolved
func DescribeParameters(mode simulation.Mode, p simulation.Parameters) []string {
	if mode == simulation.ModeCustom {
		return []string{"Scenario: " + simulation.CustomScenarioName}
	}

	def, ok := catalog.LookupScenario(p.ScenarioID)
	if !ok {
		if p.ScenarioID == "" {
			return []string{"Scenario: (none selected)"}
		}
		return []string{fmt.Sprintf("Scenario: %s (unknown)", p.ScenarioID)}
	}

	lines := []string{fmt.Sprintf("Scenario: %s - %s", def.Name, def.Description)}
	if def.RequiresParam(string(simulation.ParamTrainID)) {
		lines = append(lines, "Train: "+trainLabel(p.TrainID))
	}
	if def.RequiresParam(string(simulation.ParamDelayMinutes)) {
		lines = append(lines, fmt.Sprintf("Delay: %d min", simulation.ParseDelayMinutes(p.DelayMinutes)))
	}
	if def.RequiresParam(string(simulation.ParamTrackID)) {
		lines = append(lines, "Track: "+trackLabel(p.TrackID))
	}
	return lines
}

func trainLabel(id string) string {
	if id == "" {
		return "(none)"
	}
	if t, ok := catalog.LookupTrain(id); ok {
		return fmt.Sprintf("%s (%s)", t.Name, t.ID)
	}
	return id
}

func trackLabel(id string) string {
	if id == "" {
		return "(none)"
	}
	if t, ok := catalog.LookupTrack(id); ok {
		return fmt.Sprintf("%s (%s)", t.Name, t.ID)
	}
	return id
}

// RenderResult writes the result tiles and the numbered recommendations
func RenderResult(w io.Writer, r simulation.Result) {
	_, _ = colorTitle.Fprintf(w, "Simulation Results - %s\n", r.ScenarioName)
	_, _ = colorMuted.Fprintf(w, "run %s\n\n", r.RunID)

	tiles := []struct {
		value string
		label string
		c     *color.Color
	}{
		{fmt.Sprintf("+%dmin", r.DelayImpact), "Average Delay Impact", colorDelay},
		{fmt.Sprintf("%d", r.AffectedTrains), "Affected Trains", colorAffected},
		{fmt.Sprintf("%d", r.AlternativeRoutes), "Alternative Routes", colorRoutes},
		{FormatCost(r.EstimatedCost), "Estimated Cost", colorCost},
	}

	width := 0
	for _, t := range tiles {
		if len(t.label) > width {
			width = len(t.label)
		}
	}
	for _, t := range tiles {
		_, _ = fmt.Fprintf(w, "  %-*s  ", width, t.label)
		_, _ = t.c.Fprintln(w, t.value)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = colorTitle.Fprintln(w, "AI Recommendations:")
	for i, rec := range r.Recommendations {
		_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, rec)
	}
}

// RenderSnapshot writes a one block summary of the controller state
func RenderSnapshot(w io.Writer, snap simulation.Snapshot) {
	_, _ = fmt.Fprintf(w, "Mode: %s\n", snap.Mode)
	for _, line := range DescribeParameters(snap.Mode, snap.Parameters) {
		_, _ = fmt.Fprintln(w, line)
	}

	_, _ = fmt.Fprint(w, "State: ")
	switch s := snap.State.(type) {
	case simulation.Idle:
		_, _ = colorMuted.Fprintln(w, "idle")
	case simulation.Pending:
		_, _ = colorPending.Fprintf(w, "simulating (run %s)\n", s.RunID)
	case simulation.Ready:
		_, _ = colorReady.Fprintf(w, "ready (%s)\n", s.Result.ScenarioName)
	}

	runLabel := "enabled"
	if snap.RunDisabled() {
		runLabel = "disabled"
	}
	_, _ = fmt.Fprintf(w, "Run: %s\n", runLabel)
}

// ScenarioTable builds the catalog listing used by `list scenarios`
func ScenarioTable() *logger.Table {
	table := logger.NewTable("ID", "NAME", "PARAMETERS", "DESCRIPTION")
	for _, s := range catalog.Scenarios() {
		params := "-"
		if len(s.Requires) > 0 {
			params = strings.Join(s.Requires, ",")
		}
		table.AddRow(s.ID, s.Name, params, s.Description)
	}
	return table
}

// TrainTable builds the train catalog listing
func TrainTable() *logger.Table {
	table := logger.NewTable("ID", "NAME")
	for _, t := range catalog.Trains() {
		table.AddRow(t.ID, t.Name)
	}
	return table
}

// TrackTable builds the track catalog listing
func TrackTable() *logger.Table {
	table := logger.NewTable("ID", "NAME")
	for _, t := range catalog.Tracks() {
		table.AddRow(t.ID, t.Name)
	}
	return table
}

// QuickTable builds the quick scenario listing for a registry
func QuickTable(r *catalog.Registry) *logger.Table {
	table := logger.NewTable("NAME", "SCENARIO", "LABEL")
	for _, q := range r.List() {
		label := q.Label
		if label == "" {
			label = "-"
		}
		table.AddRow(q.Name, q.ScenarioID(), label)
	}
	return table
}
