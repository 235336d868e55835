package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/picogrid/railops-sim/pkg/simulation"
)

// EventType constants
const (
	EventTypeMode      = "mode"
	EventTypeParameter = "parameter"
	EventTypeStarted   = "run_started"
	EventTypeCompleted = "run_completed"
	EventTypeCleared   = "cleared"
)

// Event is one observed state change
type Event struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	RunID     *uuid.UUID `json:"run_id,omitempty"`
}

// Session follows a controller and keeps a log of what changed
type Session struct {
	id        uuid.UUID
	startTime time.Time
	out       io.Writer
	now       func() time.Time

	mu     sync.Mutex
	events []Event
	last   simulation.Snapshot
	seen   bool
	result *simulation.Result
}

// NewSession creates a session that echoes transitions to out; a nil out
// records silently
func NewSession(out io.Writer) *Session {
	return &Session{
		id:        uuid.New(),
		startTime: time.Now(),
		out:       out,
		now:       time.Now,
	}
}

// Attach subscribes the session to c and returns the unsubscribe function
func (s *Session) Attach(c *simulation.Controller) func() {
	s.mu.Lock()
	s.last = c.Snapshot()
	s.seen = true
	s.mu.Unlock()
	return c.Subscribe(s.Observe)
}

// Observe records the differences between snap and the previous snapshot
func (s *Session) Observe(snap simulation.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.last, s.seen
	s.last, s.seen = snap, true

	if seen && prev.Mode != snap.Mode {
		s.record(Event{Type: EventTypeMode, Message: fmt.Sprintf("selection mode %s", snap.Mode)}, nil)
	}
	if seen && prev.Parameters != snap.Parameters {
		s.record(Event{Type: EventTypeParameter, Message: fmt.Sprintf("parameters %+v", snap.Parameters)}, nil)
	}

	switch st := snap.State.(type) {
	case simulation.Pending:
		if p, ok := prev.State.(simulation.Pending); !seen || !ok || p.RunID != st.RunID {
			id := st.RunID
			s.record(Event{Type: EventTypeStarted, RunID: &id, Message: "simulating..."}, colorPending)
		}
	case simulation.Ready:
		if r, ok := prev.State.(simulation.Ready); !seen || !ok || r.Result.RunID != st.Result.RunID {
			result := st.Result
			s.result = &result
			s.record(Event{
				Type:    EventTypeCompleted,
				RunID:   &result.RunID,
				Message: fmt.Sprintf("%s: +%dmin, %d trains affected", result.ScenarioName, result.DelayImpact, result.AffectedTrains),
			}, colorReady)
		}
	case simulation.Idle:
		if seen {
			if _, ok := prev.State.(simulation.Idle); !ok {
				s.record(Event{Type: EventTypeCleared, Message: "result cleared"}, colorMuted)
			}
		}
	}
}

func (s *Session) record(e Event, c *color.Color) {
	e.Timestamp = s.now()
	s.events = append(s.events, e)

	if s.out == nil || c == nil {
		return
	}
	_, _ = colorMuted.Fprintf(s.out, "%s ", e.Timestamp.Format("15:04:05"))
	_, _ = c.Fprintln(s.out, e.Message)
}

// Events returns a copy of the recorded events
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Summary is the JSON document written by WriteJSON
type Summary struct {
	SessionID uuid.UUID          `json:"session_id"`
	StartedAt time.Time          `json:"started_at"`
	Duration  string             `json:"duration"`
	Events    []Event            `json:"events"`
	Result    *simulation.Result `json:"result,omitempty"`
}

// WriteJSON writes the session summary with the last applied result
func (s *Session) WriteJSON(w io.Writer) error {
	s.mu.Lock()
	summary := Summary{
		SessionID: s.id,
		StartedAt: s.startTime,
		Duration:  s.now().Sub(s.startTime).Round(time.Millisecond).String(),
		Events:    append([]Event(nil), s.events...),
		Result:    s.result,
	}
	s.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode session summary: %w", err)
	}
	return nil
}
