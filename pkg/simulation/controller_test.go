package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/picogrid/railops-sim/pkg/catalog"
)

func TestNewControllerDefaults(t *testing.T) {
	c, _ := newTestController()
	snap := c.Snapshot()

	if snap.Mode != ModePredefined {
		t.Errorf("Expected predefined mode, got %s", snap.Mode)
	}
	if snap.Parameters != DefaultParameters() {
		t.Errorf("Expected default parameters, got %+v", snap.Parameters)
	}
	if _, ok := snap.State.(Idle); !ok {
		t.Errorf("Expected Idle state, got %s", snap.State)
	}
	if !c.RunDisabled() {
		t.Error("Run should be disabled before a scenario is selected")
	}
}

func TestSetParameterLeavesOtherFields(t *testing.T) {
	c, _ := newTestController()

	c.SelectScenario("train_delay")
	c.SetParameter(ParamTrainID, "T002")
	c.SetParameter(ParamDelayMinutes, "40")

	want := Parameters{ScenarioID: "train_delay", TrainID: "T002", DelayMinutes: "40"}
	if got := c.Snapshot().Parameters; got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if c.SetParameter(ParamKey("platform"), "3") {
		t.Error("Unknown key should be reported")
	}
	if got := c.Snapshot().Parameters; got != want {
		t.Errorf("Unknown key changed parameters: %+v", got)
	}
}

func TestResetParametersRestoresDefaults(t *testing.T) {
	c, _ := newTestController()
	c.SelectScenario("track_blockage")
	c.SetParameter(ParamTrackID, "TR003")
	c.SetParameter(ParamTrainID, "T001")
	c.SetParameter(ParamDelayMinutes, "99")

	c.ResetParameters()

	want := Parameters{ScenarioID: "", TrainID: "", TrackID: "", DelayMinutes: "15"}
	if got := c.Snapshot().Parameters; got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestRunDisabledRule(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		scenario string
		pending  bool
		disabled bool
	}{
		{"predefined without scenario", ModePredefined, "", false, true},
		{"predefined with scenario", ModePredefined, "peak_hour", false, false},
		{"custom without scenario", ModeCustom, "", false, false},
		{"pending predefined", ModePredefined, "peak_hour", true, true},
		{"pending custom", ModeCustom, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController()
			c.SetSelectionMode(tt.mode)
			c.SelectScenario(tt.scenario)
			if tt.pending {
				if _, ok := c.Run(); !ok {
					t.Fatal("Run refused")
				}
			}
			if got := c.RunDisabled(); got != tt.disabled {
				t.Errorf("RunDisabled() = %v, want %v", got, tt.disabled)
			}
		})
	}
}

func TestRunRefusedWithoutScenario(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	c, sched := newTestController(WithMetrics(metrics))

	var published int
	c.Subscribe(func(Snapshot) { published++ })

	if _, ok := c.Run(); ok {
		t.Fatal("Run should be refused without a scenario")
	}
	c.SelectScenario("volcano")
	if _, ok := c.Run(); ok {
		t.Fatal("Run should be refused for a scenario outside the catalog")
	}

	if sched.count() != 0 {
		t.Errorf("Refused runs scheduled %d completions", sched.count())
	}
	if _, ok := c.Snapshot().State.(Idle); !ok {
		t.Errorf("Expected Idle state, got %s", c.Snapshot().State)
	}
	if published != 1 {
		t.Errorf("Expected only the parameter change to be published, got %d snapshots", published)
	}
	if got := testutil.ToFloat64(metrics.RunsRefused); got != 2 {
		t.Errorf("railops_sim_runs_refused_total = %v, want 2", got)
	}
}

func TestPredefinedRunResolvesScenarioName(t *testing.T) {
	for _, def := range catalog.Scenarios() {
		t.Run(def.ID, func(t *testing.T) {
			c, sched := newTestController()
			c.SelectScenario(def.ID)

			id, ok := c.Run()
			if !ok {
				t.Fatal("Run refused")
			}
			sched.fireAll()

			result, ok := c.Snapshot().Result()
			if !ok {
				t.Fatalf("Expected Ready state, got %s", c.Snapshot().State)
			}
			if result.ScenarioName != def.Name {
				t.Errorf("Expected scenario name %q, got %q", def.Name, result.ScenarioName)
			}
			if result.RunID != id {
				t.Errorf("Result run id %s does not match %s", result.RunID, id)
			}
		})
	}
}

func TestCustomModeAlwaysReportsCustomScenario(t *testing.T) {
	for _, scenario := range []string{"", "peak_hour", "volcano"} {
		c, sched := newTestController()
		c.SetSelectionMode(ModeCustom)
		c.SelectScenario(scenario)

		if _, ok := c.Run(); !ok {
			t.Fatalf("Custom run refused with scenario %q", scenario)
		}
		sched.fireAll()

		result, _ := c.Snapshot().Result()
		if result.ScenarioName != CustomScenarioName {
			t.Errorf("Scenario %q: expected %q, got %q", scenario, CustomScenarioName, result.ScenarioName)
		}
		if result.Mode != ModeCustom {
			t.Errorf("Expected custom mode on result, got %s", result.Mode)
		}
	}
}

func TestNewRunClearsPriorResult(t *testing.T) {
	c, sched := newTestController()
	c.SelectScenario("signal_failure")
	c.Run()
	sched.fireAll()

	if _, ok := c.Snapshot().Result(); !ok {
		t.Fatal("Expected a ready result")
	}

	id, _ := c.Run()
	snap := c.Snapshot()
	pending, ok := snap.State.(Pending)
	if !ok {
		t.Fatalf("Expected Pending immediately after Run, got %s", snap.State)
	}
	if pending.RunID != id {
		t.Errorf("Pending run id %s does not match %s", pending.RunID, id)
	}
	if _, ok := snap.Result(); ok {
		t.Error("Prior result still visible after starting a new run")
	}
}

func TestDelayImpactBounds(t *testing.T) {
	tests := []struct {
		input  string
		parsed int
	}{
		{"15", 15},
		{"0", 0},
		{"", FallbackDelayMinutes},
		{"abc", FallbackDelayMinutes},
		{"12.5", 12},
		{"  7", 7},
		{"-3", -3},
	}

	for _, tt := range tests {
		for _, high := range []bool{false, true} {
			c, sched := newTestController(WithRandSource(fixedRand{high: high}))
			c.SelectScenario("train_delay")
			c.SetParameter(ParamDelayMinutes, tt.input)
			c.Run()
			sched.fireAll()

			result, _ := c.Snapshot().Result()
			want := tt.parsed
			if high {
				want += maxDelayJitter
			}
			if result.DelayImpact != want {
				t.Errorf("delay %q (high=%v): expected impact %d, got %d", tt.input, high, want, result.DelayImpact)
			}
			if result.DelayImpact < tt.parsed || result.DelayImpact >= tt.parsed+30 {
				t.Errorf("delay %q: impact %d outside [%d, %d)", tt.input, result.DelayImpact, tt.parsed, tt.parsed+30)
			}
		}
	}
}

func TestTrackBlockageScenario(t *testing.T) {
	c, sched := newTestController()
	c.SelectScenario("track_blockage")
	c.SetParameter(ParamTrackID, "TR002")

	if _, ok := c.Run(); !ok {
		t.Fatal("Run refused")
	}
	if d := sched.timer(0).delay; d != 2000*time.Millisecond {
		t.Errorf("Expected completion delay 2s, got %s", d)
	}
	if _, ok := c.Snapshot().State.(Pending); !ok {
		t.Fatalf("Expected Pending before the delay elapses, got %s", c.Snapshot().State)
	}

	sched.fireAll()

	result, ok := c.Snapshot().Result()
	if !ok {
		t.Fatalf("Expected Ready, got %s", c.Snapshot().State)
	}
	if result.ScenarioName != "Track Blockage" {
		t.Errorf("Expected Track Blockage, got %q", result.ScenarioName)
	}
	if result.AffectedTrains < 2 || result.AffectedTrains > 9 {
		t.Errorf("Affected trains %d outside [2, 9]", result.AffectedTrains)
	}
	if len(result.Recommendations) != 4 {
		t.Errorf("Expected 4 recommendations, got %d", len(result.Recommendations))
	}
	if result.Parameters.TrackID != "TR002" {
		t.Errorf("Expected TR002 on the result parameters, got %q", result.Parameters.TrackID)
	}
}

func TestRunQuickTransitions(t *testing.T) {
	c, sched := newTestController()

	if _, ok := c.Snapshot().State.(Idle); !ok {
		t.Fatalf("Expected Idle start, got %s", c.Snapshot().State)
	}

	var states []string
	c.Subscribe(func(s Snapshot) { states = append(states, s.State.String()) })

	if _, ok := c.RunQuick(Patch{ParamScenarioID: "weather_impact"}); !ok {
		t.Fatal("RunQuick refused")
	}
	sched.fireAll()

	if len(states) != 2 || states[0] != "pending" || states[1] != "ready" {
		t.Errorf("Expected [pending ready], got %v", states)
	}
	result, _ := c.Snapshot().Result()
	if result.ScenarioName != "Weather Impact" {
		t.Errorf("Expected Weather Impact, got %q", result.ScenarioName)
	}
}

func TestRunQuickMergesOverDefaults(t *testing.T) {
	c, sched := newTestController()
	c.SetSelectionMode(ModeCustom)
	c.SetParameter(ParamTrackID, "TR001")
	c.SetParameter(ParamDelayMinutes, "60")

	c.RunQuick(Patch{ParamScenarioID: "train_delay", ParamTrainID: "T001", ParamDelayMinutes: "10"})

	snap := c.Snapshot()
	want := Parameters{ScenarioID: "train_delay", TrainID: "T001", DelayMinutes: "10"}
	if snap.Parameters != want {
		t.Errorf("Expected %+v, got %+v", want, snap.Parameters)
	}
	if snap.Mode != ModePredefined {
		t.Errorf("Expected RunQuick to force predefined mode, got %s", snap.Mode)
	}

	sched.fireAll()
	result, _ := c.Snapshot().Result()
	if result.ScenarioName != "Train Delay" {
		t.Errorf("Expected Train Delay, got %q", result.ScenarioName)
	}
}

func TestParametersFrozenAtRunStart(t *testing.T) {
	c, sched := newTestController(WithRandSource(fixedRand{}))
	c.SelectScenario("train_delay")
	c.Run()

	c.SetParameter(ParamDelayMinutes, "100")
	sched.fireAll()

	result, _ := c.Snapshot().Result()
	if result.DelayImpact != 15 {
		t.Errorf("Expected impact from the frozen delay (15), got %d", result.DelayImpact)
	}
	if result.Parameters.DelayMinutes != "15" {
		t.Errorf("Expected frozen parameters, got %+v", result.Parameters)
	}
}

func TestResetDuringRunDiscardsCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, _ := NewMetrics(reg)
	c, sched := newTestController(WithMetrics(metrics))

	c.SetSelectionMode(ModeCustom)
	c.SelectScenario("peak_hour")
	c.Run()
	c.Reset()
	sched.fireAll()

	snap := c.Snapshot()
	if _, ok := snap.State.(Idle); !ok {
		t.Errorf("Expected Idle after reset, got %s", snap.State)
	}
	if snap.Mode != ModePredefined || snap.Parameters != DefaultParameters() {
		t.Errorf("Reset left mode %s and parameters %+v", snap.Mode, snap.Parameters)
	}
	if got := testutil.ToFloat64(metrics.StaleDiscarded); got != 1 {
		t.Errorf("railops_sim_stale_completions_total = %v, want 1", got)
	}
}

func TestStaleCompletionsOverwriteReset(t *testing.T) {
	c, sched := newTestController(WithStaleCompletions(true))
	c.SelectScenario("emergency_stop")
	c.Run()
	c.Reset()
	sched.fireAll()

	result, ok := c.Snapshot().Result()
	if !ok {
		t.Fatalf("Expected the in-flight completion to land, got %s", c.Snapshot().State)
	}
	if result.ScenarioName != "Emergency Stop" {
		t.Errorf("Expected Emergency Stop, got %q", result.ScenarioName)
	}
	if c.Snapshot().Parameters != DefaultParameters() {
		t.Error("Landing completion should not restore parameters")
	}
}

func TestOverlappingRunsLastCallWins(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		c, sched := newTestController(WithStaleCompletions(legacy))
		c.SelectScenario("peak_hour")
		first, _ := c.Run()
		c.SelectScenario("signal_failure")
		second, _ := c.Run()

		sched.timer(0).fire()
		result, ready := c.Snapshot().Result()
		if legacy {
			if !ready || result.RunID != first {
				t.Errorf("legacy: expected first result to land, got %s", c.Snapshot().State)
			}
		} else if ready {
			t.Errorf("superseded completion applied: %+v", result)
		}

		sched.timer(1).fire()
		result, _ = c.Snapshot().Result()
		if result.RunID != second || result.ScenarioName != "Signal Failure" {
			t.Errorf("legacy=%v: expected second run to win, got %+v", legacy, result)
		}
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	c, _ := newTestController()

	var got []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) { got = append(got, s) })

	c.SelectScenario("peak_hour")
	c.SetSelectionMode(ModeCustom)
	unsubscribe()
	unsubscribe()
	c.SetSelectionMode(ModePredefined)

	if len(got) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(got))
	}
	if got[0].Parameters.ScenarioID != "peak_hour" || got[1].Mode != ModeCustom {
		t.Errorf("Unexpected snapshots: %+v", got)
	}
	if got[1].Version <= got[0].Version {
		t.Errorf("Versions not increasing: %d, %d", got[0].Version, got[1].Version)
	}
}

func TestSubscriberMayCallBack(t *testing.T) {
	c, sched := newTestController()

	// chain a second run from the subscriber once the first lands
	var runs int
	c.Subscribe(func(s Snapshot) {
		if _, ok := s.Result(); ok && runs < 2 {
			runs++
			c.RunQuick(Patch{ParamScenarioID: "peak_hour"})
		}
	})

	c.RunQuick(Patch{ParamScenarioID: "weather_impact"})
	sched.fireAll()
	sched.fireAll()

	if runs != 2 {
		t.Errorf("Expected subscriber to start 2 runs, got %d", runs)
	}
	if sched.count() != 3 {
		t.Errorf("Expected 3 scheduled completions, got %d", sched.count())
	}
}

func TestSetSelectionModeRejectsUnknownMode(t *testing.T) {
	c, _ := newTestController()
	if c.SetSelectionMode(Mode("hybrid")) {
		t.Error("Unknown mode accepted")
	}
	if c.Snapshot().Mode != ModePredefined {
		t.Errorf("Mode changed to %s", c.Snapshot().Mode)
	}
}

func TestAwait(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		c, _ := newTestController()
		if _, err := c.Await(context.Background()); !errors.Is(err, ErrNoRun) {
			t.Errorf("Expected ErrNoRun, got %v", err)
		}
	})

	t.Run("completes", func(t *testing.T) {
		c, sched := newTestController()
		id, _ := c.RunQuick(Patch{ParamScenarioID: "peak_hour"})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			sched.fireAll()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		result, err := c.Await(ctx)
		wg.Wait()
		if err != nil {
			t.Fatalf("Await: %v", err)
		}
		if result.RunID != id {
			t.Errorf("Expected run %s, got %s", id, result.RunID)
		}
	})

	t.Run("reset", func(t *testing.T) {
		c, _ := newTestController()
		c.RunQuick(Patch{ParamScenarioID: "peak_hour"})

		go func() {
			time.Sleep(10 * time.Millisecond)
			c.Reset()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := c.Await(ctx); !errors.Is(err, ErrNoRun) {
			t.Errorf("Expected ErrNoRun after reset, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		c, _ := newTestController()
		c.RunQuick(Patch{ParamScenarioID: "peak_hour"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Await(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestCloseStopsCompletions(t *testing.T) {
	c, sched := newTestController()
	c.RunQuick(Patch{ParamScenarioID: "peak_hour"})
	c.Close()

	if fired := sched.fireAll(); fired != 0 {
		t.Errorf("Expected stopped timers, %d fired", fired)
	}
	if !c.Snapshot().IsPending() {
		t.Errorf("Expected Close to keep the last state, got %s", c.Snapshot().State)
	}
}

func TestWallClockCompletion(t *testing.T) {
	c := NewController(
		WithCompletionDelay(5*time.Millisecond),
		WithRandSource(NewRandSource(7)),
	)
	defer c.Close()

	c.RunQuick(Patch{ParamScenarioID: "track_blockage", ParamTrackID: "TR002"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := c.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if result.ScenarioName != "Track Blockage" {
		t.Errorf("Expected Track Blockage, got %q", result.ScenarioName)
	}
}

func TestMetricsRecordRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	// registering twice against one registry reuses the collectors
	again, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}

	c, sched := newTestController(WithMetrics(again))
	c.RunQuick(Patch{ParamScenarioID: "peak_hour"})
	c.SetSelectionMode(ModeCustom)
	c.Run()
	sched.fireAll()

	if got := testutil.ToFloat64(metrics.RunsStarted.WithLabelValues("predefined")); got != 1 {
		t.Errorf("predefined runs started = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RunsStarted.WithLabelValues("custom")); got != 1 {
		t.Errorf("custom runs started = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RunsCompleted.WithLabelValues(CustomScenarioName)); got != 1 {
		t.Errorf("custom runs completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.StaleDiscarded); got != 1 {
		t.Errorf("stale completions = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(metrics.DelayImpact); n != 1 {
		t.Errorf("delay impact histogram series = %d, want 1", n)
	}
}
