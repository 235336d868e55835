package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/simulation"
)

// SkipPromptsEnv disables every prompt when set to "true" (for CI/automation)
const SkipPromptsEnv = "RAILOPS_SKIP_PROMPTS"

// IsInteractive reports whether prompts can be shown
func IsInteractive() bool {
	if os.Getenv(SkipPromptsEnv) == "true" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsColorTerminal reports whether stdout is a terminal
func IsColorTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// option is one selectable catalog entry
type option struct {
	id          string
	label       string
	description string
}

func scenarioOptions() []option {
	scenarios := catalog.Scenarios()
	opts := make([]option, len(scenarios))
	for i, s := range scenarios {
		opts[i] = option{id: s.ID, label: s.Name, description: s.Description}
	}
	return opts
}

func trainOptions() []option {
	trains := catalog.Trains()
	opts := make([]option, len(trains))
	for i, t := range trains {
		opts[i] = option{id: t.ID, label: fmt.Sprintf("%s (%s)", t.Name, t.ID)}
	}
	return opts
}

func trackOptions() []option {
	tracks := catalog.Tracks()
	opts := make([]option, len(tracks))
	for i, t := range tracks {
		opts[i] = option{id: t.ID, label: fmt.Sprintf("%s (%s)", t.Name, t.ID)}
	}
	return opts
}

// selectOption asks for one of opts and returns its id
func selectOption(message string, opts []option, current string) (string, error) {
	labels := make([]string, len(opts))
	descriptions := make(map[string]string, len(opts))
	var def interface{}
	for i, o := range opts {
		labels[i] = o.label
		descriptions[o.label] = o.description
		if o.id == current {
			def = o.label
		}
	}

	prompt := &survey.Select{
		Message: message,
		Options: labels,
		Default: def,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return "", err
	}
	return opts[index].id, nil
}

// PromptMode asks for the selection mode
func PromptMode() (simulation.Mode, error) {
	prompt := &survey.Select{
		Message: "Scenario type:",
		Options: []string{"Predefined Scenarios", "Custom Scenario"},
		Default: "Predefined Scenarios",
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return "", err
	}
	if index == 1 {
		return simulation.ModeCustom, nil
	}
	return simulation.ModePredefined, nil
}

// PromptScenario asks for a catalog scenario
func PromptScenario(current string) (string, error) {
	return selectOption("Select scenario:", scenarioOptions(), current)
}

// PromptTrain asks for a train
func PromptTrain(current string) (string, error) {
	return selectOption("Select train:", trainOptions(), current)
}

// PromptTrack asks for the track to block
func PromptTrack(current string) (string, error) {
	return selectOption("Select track to block:", trackOptions(), current)
}

// PromptDelayMinutes asks for the delay in minutes
func PromptDelayMinutes(current string) (string, error) {
	if current == "" {
		current = simulation.DefaultDelayMinutes
	}
	prompt := &survey.Input{
		Message: "Delay time (minutes):",
		Default: current,
	}

	var result string
	if err := survey.AskOne(prompt, &result, survey.WithValidator(validateMinutes)); err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

func validateMinutes(val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("expected text input")
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return fmt.Errorf("enter a whole number of minutes")
	}
	if n < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	return nil
}

// FillForm prompts for whatever the current selection still needs and
// stores the answers in c. Custom mode needs nothing.
func FillForm(c *simulation.Controller) error {
	snap := c.Snapshot()
	if snap.Mode == simulation.ModeCustom {
		return nil
	}

	params := snap.Parameters
	if _, ok := catalog.LookupScenario(params.ScenarioID); !ok {
		id, err := PromptScenario(params.ScenarioID)
		if err != nil {
			return fmt.Errorf("failed to get scenario: %w", err)
		}
		c.SelectScenario(id)
		params.ScenarioID = id
	}

	def, _ := catalog.LookupScenario(params.ScenarioID)
	for _, key := range MissingParameters(def, params) {
		var (
			value string
			err   error
		)
		switch key {
		case simulation.ParamTrainID:
			value, err = PromptTrain(params.TrainID)
		case simulation.ParamTrackID:
			value, err = PromptTrack(params.TrackID)
		case simulation.ParamDelayMinutes:
			value, err = PromptDelayMinutes(params.DelayMinutes)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}
		c.SetParameter(key, value)
	}
	return nil
}

// MissingParameters returns the sub-parameters def uses that are not set
// to a catalog value yet. The delay is always offered so its default can be
// confirmed.
func MissingParameters(def catalog.ScenarioDefinition, p simulation.Parameters) []simulation.ParamKey {
	var missing []simulation.ParamKey
	if def.RequiresParam(string(simulation.ParamTrainID)) {
		if _, ok := catalog.LookupTrain(p.TrainID); !ok {
			missing = append(missing, simulation.ParamTrainID)
		}
	}
	if def.RequiresParam(string(simulation.ParamDelayMinutes)) {
		missing = append(missing, simulation.ParamDelayMinutes)
	}
	if def.RequiresParam(string(simulation.ParamTrackID)) {
		if _, ok := catalog.LookupTrack(p.TrackID); !ok {
			missing = append(missing, simulation.ParamTrackID)
		}
	}
	return missing
}

// PromptPreset asks for a new quick scenario
func PromptPreset(taken func(name string) bool) (catalog.QuickScenario, error) {
	q := catalog.QuickScenario{Patch: make(map[string]string)}

	namePrompt := &survey.Input{Message: "Preset name:"}
	nameValidator := survey.ComposeValidators(survey.Required, func(val interface{}) error {
		if name, _ := val.(string); taken(strings.TrimSpace(name)) {
			return fmt.Errorf("quick scenario %s already exists", name)
		}
		return nil
	})
	if err := survey.AskOne(namePrompt, &q.Name, survey.WithValidator(nameValidator)); err != nil {
		return q, err
	}
	q.Name = strings.TrimSpace(q.Name)

	labelPrompt := &survey.Input{Message: "Label (optional):"}
	if err := survey.AskOne(labelPrompt, &q.Label); err != nil {
		return q, err
	}

	scenarioID, err := PromptScenario("")
	if err != nil {
		return q, err
	}
	q.Patch[string(simulation.ParamScenarioID)] = scenarioID

	def, _ := catalog.LookupScenario(scenarioID)
	for _, key := range MissingParameters(def, simulation.Parameters{}) {
		var value string
		switch key {
		case simulation.ParamTrainID:
			value, err = PromptTrain("")
		case simulation.ParamTrackID:
			value, err = PromptTrack("")
		case simulation.ParamDelayMinutes:
			value, err = PromptDelayMinutes("")
		}
		if err != nil {
			return q, err
		}
		q.Patch[string(key)] = value
	}

	return q, nil
}
