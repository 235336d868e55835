package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Sentinel errors returned by the lookup helpers
var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnknownTrain    = errors.New("unknown train")
	ErrUnknownTrack    = errors.New("unknown track")
	ErrUnknownPreset   = errors.New("unknown quick scenario")
)

// ScenarioDefinition is an immutable entry of the scenario catalog
type ScenarioDefinition struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Requires    []string `yaml:"requires,omitempty"` // parameter keys the scenario uses
}

// RequiresParam reports whether the scenario uses the given parameter key
func (s ScenarioDefinition) RequiresParam(key string) bool {
	for _, r := range s.Requires {
		if r == key {
			return true
		}
	}
	return false
}

// Train is an entry of the train catalog
type Train struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Track is an entry of the track catalog
type Track struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// QuickScenario is a named parameter patch that runs immediately
type QuickScenario struct {
	Name  string            `yaml:"name"`
	Label string            `yaml:"label"`
	Patch map[string]string `yaml:"patch"`
}

// ScenarioID returns the scenario the preset runs
func (q QuickScenario) ScenarioID() string {
	return q.Patch["scenarioId"]
}

type document struct {
	Scenarios []ScenarioDefinition `yaml:"scenarios"`
	Trains    []Train              `yaml:"trains"`
	Tracks    []Track              `yaml:"tracks"`
	Quick     []QuickScenario      `yaml:"quick"`
}

var builtin = mustParse(catalogYAML)

func mustParse(data []byte) *document {
	doc, err := parse(data)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return doc
}

func parse(data []byte) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	for _, s := range doc.Scenarios {
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("scenario entries need an id and a name")
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario %s", s.ID)
		}
		seen[s.ID] = true
	}
	for _, q := range doc.Quick {
		if !seen[q.ScenarioID()] {
			return nil, fmt.Errorf("quick scenario %s: %w: %q", q.Name, ErrUnknownScenario, q.ScenarioID())
		}
	}

	return &doc, nil
}

// Scenarios returns the predefined scenarios in display order
func Scenarios() []ScenarioDefinition {
	out := make([]ScenarioDefinition, len(builtin.Scenarios))
	copy(out, builtin.Scenarios)
	return out
}

// LookupScenario finds a scenario by id
func LookupScenario(id string) (ScenarioDefinition, bool) {
	for _, s := range builtin.Scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDefinition{}, false
}

// Trains returns the train catalog
func Trains() []Train {
	out := make([]Train, len(builtin.Trains))
	copy(out, builtin.Trains)
	return out
}

// LookupTrain finds a train by id
func LookupTrain(id string) (Train, bool) {
	for _, t := range builtin.Trains {
		if t.ID == id {
			return t, true
		}
	}
	return Train{}, false
}

// Tracks returns the track catalog
func Tracks() []Track {
	out := make([]Track, len(builtin.Tracks))
	copy(out, builtin.Tracks)
	return out
}

// LookupTrack finds a track by id
func LookupTrack(id string) (Track, bool) {
	for _, t := range builtin.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// ValidateScenario returns ErrUnknownScenario when id is not in the catalog
func ValidateScenario(id string) error {
	if _, ok := LookupScenario(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return nil
}

// ValidateTrain returns ErrUnknownTrain when id is not in the catalog
func ValidateTrain(id string) error {
	if _, ok := LookupTrain(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrain, id)
	}
	return nil
}

// ValidateTrack returns ErrUnknownTrack when id is not in the catalog
func ValidateTrack(id string) error {
	if _, ok := LookupTrack(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrack, id)
	}
	return nil
}
