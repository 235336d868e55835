package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/simulation"
)

// PresetsFile is the name of the user quick scenario file inside Dir()
const PresetsFile = "presets.yaml"

// Presets holds the user defined quick scenarios
type Presets struct {
	Presets []catalog.QuickScenario `yaml:"presets"`
}

// DefaultPresetsPath returns $HOME/.railops-sim/presets.yaml
func DefaultPresetsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PresetsFile), nil
}

// LoadPresets reads presets from path. A missing file yields no presets.
func LoadPresets(path string) (*Presets, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Presets{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}

	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse presets file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid presets file %s: %w", path, err)
	}
	return &p, nil
}

// SavePresets validates p and writes it to path
func SavePresets(path string, p *Presets) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid presets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write presets file: %w", err)
	}
	return nil
}

// Validate checks every preset names a catalog scenario and only known
// parameter keys
func (p *Presets) Validate() error {
	seen := make(map[string]bool)
	for _, q := range p.Presets {
		if q.Name == "" {
			return fmt.Errorf("preset name is required")
		}
		if seen[q.Name] {
			return fmt.Errorf("duplicate preset %s", q.Name)
		}
		seen[q.Name] = true

		if err := catalog.ValidateScenario(q.ScenarioID()); err != nil {
			return fmt.Errorf("preset %s: %w", q.Name, err)
		}
		if _, err := simulation.PatchFromMap(q.Patch); err != nil {
			return fmt.Errorf("preset %s: %w", q.Name, err)
		}
	}
	return nil
}

// Find returns the preset called name
func (p *Presets) Find(name string) (catalog.QuickScenario, bool) {
	for _, q := range p.Presets {
		if q.Name == name {
			return q, true
		}
	}
	return catalog.QuickScenario{}, false
}

// Remove drops the preset called name and reports whether it existed
func (p *Presets) Remove(name string) bool {
	kept := make([]catalog.QuickScenario, 0, len(p.Presets))
	for _, q := range p.Presets {
		if q.Name != name {
			kept = append(kept, q)
		}
	}
	removed := len(kept) != len(p.Presets)
	p.Presets = kept
	return removed
}

// RegisterAll adds the presets to r after the built-ins
func (p *Presets) RegisterAll(r *catalog.Registry) error {
	for _, q := range p.Presets {
		if err := r.Register(q); err != nil {
			return err
		}
	}
	return nil
}
