package simulation

import (
	"fmt"
	"strings"
)

// Mode selects how a run resolves its scenario
type Mode string

const (
	// ModePredefined runs a scenario picked from the catalog
	ModePredefined Mode = "predefined"
	// ModeCustom skips the catalog and always reports CustomScenarioName
	ModeCustom Mode = "custom"
)

// ParseMode converts a user supplied mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePredefined:
		return ModePredefined, nil
	case ModeCustom:
		return ModeCustom, nil
	default:
		return "", fmt.Errorf("unknown selection mode %q (want predefined or custom)", s)
	}
}

func (m Mode) valid() bool {
	return m == ModePredefined || m == ModeCustom
}

// ParamKey names one field of Parameters
type ParamKey string

// Parameter keys
const (
	ParamScenarioID   ParamKey = "scenarioId"
	ParamTrainID      ParamKey = "trainId"
	ParamTrackID      ParamKey = "trackId"
	ParamDelayMinutes ParamKey = "delayMinutes"
)

// DefaultDelayMinutes is the delay input a fresh form starts with
const DefaultDelayMinutes = "15"

// ParamKeys lists every parameter key in form order
var ParamKeys = []ParamKey{ParamScenarioID, ParamTrainID, ParamTrackID, ParamDelayMinutes}

// ParseParamKey converts a user supplied key
func ParseParamKey(s string) (ParamKey, error) {
	for _, k := range ParamKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown parameter %q", s)
}

// Parameters is the working record edited before a run.
// DelayMinutes stays a string because it mirrors raw form input.
type Parameters struct {
	ScenarioID   string `json:"scenarioId" yaml:"scenarioId"`
	TrainID      string `json:"trainId" yaml:"trainId"`
	TrackID      string `json:"trackId" yaml:"trackId"`
	DelayMinutes string `json:"delayMinutes" yaml:"delayMinutes"`
}

// DefaultParameters returns the record a fresh or reset controller holds
func DefaultParameters() Parameters {
	return Parameters{DelayMinutes: DefaultDelayMinutes}
}

// Get returns the value stored under key
func (p Parameters) Get(key ParamKey) (string, bool) {
	switch key {
	case ParamScenarioID:
		return p.ScenarioID, true
	case ParamTrainID:
		return p.TrainID, true
	case ParamTrackID:
		return p.TrackID, true
	case ParamDelayMinutes:
		return p.DelayMinutes, true
	default:
		return "", false
	}
}

// set stores value under key and leaves every other field untouched
func (p *Parameters) set(key ParamKey, value string) bool {
	switch key {
	case ParamScenarioID:
		p.ScenarioID = value
	case ParamTrainID:
		p.TrainID = value
	case ParamTrackID:
		p.TrackID = value
	case ParamDelayMinutes:
		p.DelayMinutes = value
	default:
		return false
	}
	return true
}

// With returns a copy of p with patch applied on top
func (p Parameters) With(patch Patch) Parameters {
	for k, v := range patch {
		p.set(k, v)
	}
	return p
}

// Patch is a partial set of parameter values
type Patch map[ParamKey]string

// PatchFromMap converts string keyed values, typically read from YAML or flags
func PatchFromMap(m map[string]string) (Patch, error) {
	patch := make(Patch, len(m))
	for k, v := range m {
		key, err := ParseParamKey(k)
		if err != nil {
			return nil, err
		}
		patch[key] = v
	}
	return patch, nil
}
