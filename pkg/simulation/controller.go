package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/picogrid/railops-sim/pkg/catalog"
	"github.com/picogrid/railops-sim/pkg/logger"
)

// ErrNoRun is returned by Await when there is no run to wait for
var ErrNoRun = errors.New("no simulation run in flight")

// Controller owns the scenario form, the execution engine and the result
// state. All methods are safe for concurrent use; completions fire on the
// scheduler's goroutine.
type Controller struct {
	mu         sync.Mutex
	version    uint64
	mode       Mode
	params     Parameters
	state      ResultState
	generation uint64
	timers     map[uint64]Timer
	closed     bool

	engine           *Engine
	scheduler        Scheduler
	delay            time.Duration
	metrics          *Metrics
	log              logger.Logger
	staleCompletions bool
	now              func() time.Time

	subs       []subscription
	nextSubID  int
	queue      []Snapshot
	delivering bool
}

type subscription struct {
	id    int
	after uint64
	fn    func(Snapshot)
}

// Option configures a Controller
type Option func(*Controller)

// WithRandSource sets the source results are drawn from
func WithRandSource(rng RandSource) Option {
	return func(c *Controller) { c.engine = NewEngine(rng) }
}

// WithScheduler replaces the wall clock scheduler
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithCompletionDelay sets how long runs stay pending
func WithCompletionDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithMetrics records run activity in m
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the controller logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithStaleCompletions lets superseded completions overwrite the state when
// they land, the way an uncancelled timer would. Off by default.
func WithStaleCompletions(allow bool) Option {
	return func(c *Controller) { c.staleCompletions = allow }
}

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller in the Idle state with default parameters
func NewController(opts ...Option) *Controller {
	c := &Controller{
		mode:      ModePredefined,
		params:    DefaultParameters(),
		state:     Idle{},
		timers:    make(map[uint64]Timer),
		scheduler: WallClock,
		delay:     DefaultCompletionDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = NewEngine(nil)
	}
	c.engine.now = c.now
	if c.log == nil {
		c.log = logger.WithPrefix("simulation")
	}
	return c
}

// Snapshot returns the current read-only view
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// RunDisabled reports whether Run would be refused or is blocked by a pending run
func (c *Controller) RunDisabled() bool {
	return c.Snapshot().RunDisabled()
}

// Subscribe registers fn to receive every snapshot published after the call,
// in order. Calls never overlap. fn may call back into the controller.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscription{id: id, after: c.version, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// SetParameter sets one parameter and leaves the others untouched. It
// reports false only for an unknown key.
func (c *Controller) SetParameter(key ParamKey, value string) bool {
	c.mu.Lock()
	ok := c.params.set(key, value)
	if ok {
		c.publishLocked()
	}
	c.mu.Unlock()

	c.flush()
	return ok
}

// SelectScenario picks a catalog scenario for predefined runs
func (c *Controller) SelectScenario(id string) {
	c.SetParameter(ParamScenarioID, id)
}

// SetSelectionMode switches between predefined and custom runs
func (c *Controller) SetSelectionMode(mode Mode) bool {
	if !mode.valid() {
		return false
	}

	c.mu.Lock()
	c.mode = mode
	c.publishLocked()
	c.mu.Unlock()

	c.flush()
	return true
}

// ResetParameters restores the default parameters
func (c *Controller) ResetParameters() {
	c.mu.Lock()
	c.params = DefaultParameters()
	c.publishLocked()
	c.mu.Unlock()

	c.flush()
}

// Reset returns to Idle with default parameters in predefined mode. A run
// still in flight is superseded.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	c.mode = ModePredefined
	c.params = DefaultParameters()
	c.state = Idle{}
	c.publishLocked()
	c.mu.Unlock()

	c.log.Debug("simulation reset")
	c.flush()
}

// Run starts a run with the current parameters. It returns the run id, or
// false when the run is refused: predefined mode without a catalog scenario.
func (c *Controller) Run() (uuid.UUID, bool) {
	c.mu.Lock()
	id, ok := c.startLocked()
	c.mu.Unlock()

	c.flush()
	return id, ok
}

// RunQuick replaces the parameters with patch merged over the defaults,
// switches to predefined mode and runs
func (c *Controller) RunQuick(patch Patch) (uuid.UUID, bool) {
	c.mu.Lock()
	c.params = DefaultParameters().With(patch)
	c.mode = ModePredefined
	id, ok := c.startLocked()
	if !ok {
		c.publishLocked()
	}
	c.mu.Unlock()

	c.flush()
	return id, ok
}

// Await blocks until the run in flight lands and returns its result. A ready
// result is returned immediately. ErrNoRun is returned when the controller is
// idle or the run is superseded by a reset.
func (c *Controller) Await(ctx context.Context) (Result, error) {
	done := make(chan ResultState, 1)

	c.mu.Lock()
	switch s := c.state.(type) {
	case Ready:
		c.mu.Unlock()
		return s.Result, nil
	case Idle:
		c.mu.Unlock()
		return Result{}, ErrNoRun
	}
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscription{id: id, after: c.version, fn: func(snap Snapshot) {
		if _, pending := snap.State.(Pending); pending {
			return
		}
		select {
		case done <- snap.State:
		default:
		}
	}})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case state := <-done:
		if r, ok := state.(Ready); ok {
			return r.Result, nil
		}
		return Result{}, ErrNoRun
	}
}

// Close stops every scheduled completion. The controller keeps its last
// state but no further results land.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for gen, t := range c.timers {
		t.Stop()
		delete(c.timers, gen)
	}
}

func (c *Controller) startLocked() (uuid.UUID, bool) {
	req, ok := c.finalizeLocked()
	if !ok {
		c.metrics.runRefused()
		c.log.WithFields(map[string]interface{}{
			"mode":     c.mode,
			"scenario": c.params.ScenarioID,
		}).Debug("run refused: no catalog scenario selected")
		return uuid.Nil, false
	}

	c.state = Pending{RunID: req.ID, StartedAt: req.StartedAt}
	c.publishLocked()
	c.metrics.runStarted(req.Mode)

	if !c.closed {
		gen := req.Generation
		c.timers[gen] = c.scheduler.AfterFunc(c.delay, func() {
			c.complete(req)
		})
	}

	c.log.WithFields(map[string]interface{}{
		"run":      req.ID,
		"scenario": req.ScenarioName,
	}).Debugf("run started, result due in %s", c.delay)
	return req.ID, true
}

// finalizeLocked freezes the current form into an execution request
func (c *Controller) finalizeLocked() (ExecutionRequest, bool) {
	name := CustomScenarioName
	if c.mode == ModePredefined {
		if c.params.ScenarioID == "" {
			return ExecutionRequest{}, false
		}
		def, ok := catalog.LookupScenario(c.params.ScenarioID)
		if !ok {
			return ExecutionRequest{}, false
		}
		name = def.Name
	}

	c.generation++
	return ExecutionRequest{
		ID:           uuid.New(),
		Generation:   c.generation,
		Mode:         c.mode,
		Parameters:   c.params,
		ScenarioName: name,
		StartedAt:    c.now(),
	}, true
}

func (c *Controller) complete(req ExecutionRequest) {
	c.mu.Lock()
	delete(c.timers, req.Generation)

	if c.closed {
		c.mu.Unlock()
		return
	}

	runLog := c.log.WithField("run", req.ID)
	if req.Generation != c.generation && !c.staleCompletions {
		c.metrics.staleDiscarded()
		c.mu.Unlock()
		runLog.Debug("discarding superseded completion")
		return
	}

	result := c.engine.Execute(req)
	c.state = Ready{Result: result}
	c.publishLocked()
	c.metrics.runCompleted(result)
	c.mu.Unlock()

	runLog.WithFields(map[string]interface{}{
		"scenario":     result.ScenarioName,
		"delay_impact": result.DelayImpact,
	}).Debug("run completed")
	c.flush()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version:    c.version,
		Mode:       c.mode,
		Parameters: c.params,
		State:      c.state,
	}
}

// publishLocked queues the current state for subscribers
func (c *Controller) publishLocked() {
	c.version++
	c.queue = append(c.queue, c.snapshotLocked())
}

// flush delivers queued snapshots outside the lock. Only one goroutine
// delivers at a time; others leave their snapshots to it.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.queue) > 0 {
		snap := c.queue[0]
		c.queue = c.queue[1:]

		var targets []func(Snapshot)
		for _, s := range c.subs {
			if snap.Version > s.after {
				targets = append(targets, s.fn)
			}
		}

		c.mu.Unlock()
		for _, fn := range targets {
			fn(snap)
		}
		c.mu.Lock()
	}

	c.delivering = false
	c.mu.Unlock()
}
