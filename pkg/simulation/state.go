package simulation

import (
	"time"

	"github.com/google/uuid"
)

// CustomScenarioName is reported for runs that do not resolve a catalog scenario
const CustomScenarioName = "Custom Scenario"

// Recommendations returned with every result, in display order
var recommendations = [...]string{
	"Reroute affected trains via alternative tracks",
	"Deploy additional staff at key stations",
	"Activate backup signaling system if applicable",
	"Communicate delays to passengers promptly",
}

// Recommendations returns a fresh copy of the fixed recommendation list
func Recommendations() []string {
	out := make([]string, len(recommendations))
	copy(out, recommendations[:])
	return out
}

// Result is the immutable output of one completed run. DelayImpact is in
// minutes and EstimatedCost in whole currency units.
type Result struct {
	RunID             uuid.UUID  `json:"runId"`
	Mode              Mode       `json:"mode"`
	Parameters        Parameters `json:"parameters"`
	ScenarioName      string     `json:"scenarioName"`
	DelayImpact       int        `json:"delayImpact"`
	AffectedTrains    int        `json:"affectedTrains"`
	AlternativeRoutes int        `json:"alternativeRoutes"`
	EstimatedCost     int        `json:"estimatedCost"`
	Recommendations   []string   `json:"recommendations"`
	CompletedAt       time.Time  `json:"completedAt"`
}

// ResultState is one of Idle, Pending or Ready
type ResultState interface {
	resultState()
	String() string
}

// Idle means no run is in flight and no result is held
type Idle struct{}

// Pending means a run has started and its result has not landed yet
type Pending struct {
	RunID     uuid.UUID
	StartedAt time.Time
}

// Ready holds the result of the most recently applied run
type Ready struct {
	Result Result
}

func (Idle) resultState()    {}
func (Pending) resultState() {}
func (Ready) resultState()   {}

func (Idle) String() string    { return "idle" }
func (Pending) String() string { return "pending" }
func (Ready) String() string   { return "ready" }

// Snapshot is the read-only view handed to the display layer
type Snapshot struct {
	Version    uint64
	Mode       Mode
	Parameters Parameters
	State      ResultState
}

// IsPending reports whether a run is in flight
func (s Snapshot) IsPending() bool {
	_, ok := s.State.(Pending)
	return ok
}

// Result returns the ready result, if any
func (s Snapshot) Result() (Result, bool) {
	r, ok := s.State.(Ready)
	if !ok {
		return Result{}, false
	}
	return r.Result, true
}

// RunDisabled reports whether the run action must be disabled: while a run
// is pending, or in predefined mode with no scenario selected
func (s Snapshot) RunDisabled() bool {
	return s.IsPending() || (s.Mode == ModePredefined && s.Parameters.ScenarioID == "")
}
