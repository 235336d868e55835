package simulation

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors updated by a Controller
type Metrics struct {
	gatherer prometheus.Gatherer

	RunsStarted    *prometheus.CounterVec
	RunsRefused    prometheus.Counter
	RunsCompleted  *prometheus.CounterVec
	StaleDiscarded prometheus.Counter
	DelayImpact    prometheus.Histogram
}

// NewMetrics registers the simulation collectors against reg, defaulting to
// the global Prometheus registry when nil
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer}

	started := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "railops_sim_runs_started_total",
		Help: "Simulation runs started, labeled by selection mode.",
	}, []string{"mode"})
	if err := register(reg, started, &m.RunsStarted); err != nil {
		return nil, err
	}

	refused := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "railops_sim_runs_refused_total",
		Help: "Run requests refused because no catalog scenario was selected.",
	})
	if err := register(reg, refused, &m.RunsRefused); err != nil {
		return nil, err
	}

	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "railops_sim_runs_completed_total",
		Help: "Simulation runs whose result was applied, labeled by scenario name.",
	}, []string{"scenario"})
	if err := register(reg, completed, &m.RunsCompleted); err != nil {
		return nil, err
	}

	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "railops_sim_stale_completions_total",
		Help: "Completions discarded because a newer run or a reset superseded them.",
	})
	if err := register(reg, stale, &m.StaleDiscarded); err != nil {
		return nil, err
	}

	impact := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "railops_sim_delay_impact_minutes",
		Help:    "Delay impact of completed runs in minutes.",
		Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90},
	})
	if err := register(reg, impact, &m.DelayImpact); err != nil {
		return nil, err
	}

	return m, nil
}

// Gatherer returns the gatherer the collectors were registered with
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

// register stores c in dst, reusing an already registered collector of the
// same type so repeated construction against one registry is harmless
func register[T prometheus.Collector](reg prometheus.Registerer, c T, dst *T) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("collector already registered with a different type: %w", err)
			}
			*dst = existing
			return nil
		}
		return fmt.Errorf("failed to register collector: %w", err)
	}
	*dst = c
	return nil
}

func (m *Metrics) runStarted(mode Mode) {
	if m == nil {
		return
	}
	m.RunsStarted.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) runRefused() {
	if m == nil {
		return
	}
	m.RunsRefused.Inc()
}

func (m *Metrics) runCompleted(r Result) {
	if m == nil {
		return
	}
	m.RunsCompleted.WithLabelValues(r.ScenarioName).Inc()
	m.DelayImpact.Observe(float64(r.DelayImpact))
}

func (m *Metrics) staleDiscarded() {
	if m == nil {
		return
	}
	m.StaleDiscarded.Inc()
}
