package simulation

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// DefaultCompletionDelay is how long a run stays pending
const DefaultCompletionDelay = 2000 * time.Millisecond

// FallbackDelayMinutes replaces a delay input that does not parse as an integer
const FallbackDelayMinutes = 5

// Result value ranges, inclusive
const (
	minDelayJitter       = 0
	maxDelayJitter       = 29
	minAffectedTrains    = 2
	maxAffectedTrains    = 9
	minAlternativeRoutes = 1
	maxAlternativeRoutes = 3
	minEstimatedCost     = 1000
	maxEstimatedCost     = 5999
)

// RandSource is the random number source results are drawn from.
// *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

// NewRandSource returns a seeded source; a zero seed uses the current time
func NewRandSource(seed int64) RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Timer is a scheduled completion that can be stopped
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock schedules completions with time.AfterFunc
var WallClock Scheduler = wallClock{}

// ExecutionRequest is the immutable input of one run, finalized when the
// run starts so later form edits cannot leak into it
type ExecutionRequest struct {
	ID           uuid.UUID
	Generation   uint64
	Mode         Mode
	Parameters   Parameters
	ScenarioName string
	StartedAt    time.Time
}

// Engine synthesizes results for execution requests
type Engine struct {
	rng RandSource
	now func() time.Time
}

// NewEngine creates an engine drawing from rng
func NewEngine(rng RandSource) *Engine {
	if rng == nil {
		rng = NewRandSource(0)
	}
	return &Engine{rng: rng, now: time.Now}
}

// Execute computes the result for req. Draws happen in a fixed order
// (delay jitter, affected trains, alternative routes, cost) so a seeded
// source reproduces the same result.
func (e *Engine) Execute(req ExecutionRequest) Result {
	delay := ParseDelayMinutes(req.Parameters.DelayMinutes)

	return Result{
		RunID:             req.ID,
		Mode:              req.Mode,
		Parameters:        req.Parameters,
		ScenarioName:      req.ScenarioName,
		DelayImpact:       e.randomInt(minDelayJitter, maxDelayJitter) + delay,
		AffectedTrains:    e.randomInt(minAffectedTrains, maxAffectedTrains),
		AlternativeRoutes: e.randomInt(minAlternativeRoutes, maxAlternativeRoutes),
		EstimatedCost:     e.randomInt(minEstimatedCost, maxEstimatedCost),
		Recommendations:   Recommendations(),
		CompletedAt:       e.now(),
	}
}

// randomInt returns a value in [lo, hi]
func (e *Engine) randomInt(lo, hi int) int {
	return lo + e.rng.Intn(hi-lo+1)
}

// ParseDelayMinutes reads the leading integer of s: optional surrounding
// whitespace, an optional sign, then digits. Anything after the digits is
// ignored ("12.5" reads as 12). Input without leading digits yields
// FallbackDelayMinutes.
func ParseDelayMinutes(s string) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	start := i
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		// clamp absurd input instead of overflowing
		if n < 1_000_000_000 {
			n = n*10 + int(s[i]-'0')
		}
		i++
	}
	if i == start {
		return FallbackDelayMinutes
	}

	if neg {
		return -n
	}
	return n
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
