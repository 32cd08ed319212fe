package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out a scripted time so reaction durations are exact.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// manualScheduler captures deferred callbacks so tests fire them by hand
// instead of sleeping.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (s *manualScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, fn)
	s.delays = append(s.delays, d)
}

func (s *manualScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// FireNext runs the oldest pending callback.
func (s *manualScheduler) FireNext(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	require.NotEmpty(t, s.pending, "no pending scheduler callbacks")
	fn := s.pending[0]
	s.pending = s.pending[1:]
	s.delays = s.delays[1:]
	s.mu.Unlock()
	fn()
}

// scriptedCells returns cells in order, cycling when exhausted.
type scriptedCells struct {
	mu    sync.Mutex
	cells []Cell
	next  int
}

func newScriptedCells(cells ...Cell) *scriptedCells {
	return &scriptedCells{cells: cells}
}

func (sc *scriptedCells) Pick(gridSize int) Cell {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	cell := sc.cells[sc.next%len(sc.cells)]
	sc.next++
	return cell
}

// drainEvents empties a participant's outbox into decoded envelopes.
func drainEvents(t *testing.T, p *Participant) []EventEnvelope {
	t.Helper()
	var events []EventEnvelope
	for {
		select {
		case frame := <-p.outbox:
			var env EventEnvelope
			require.NoError(t, json.Unmarshal(frame, &env))
			events = append(events, env)
		default:
			return events
		}
	}
}

func eventNames(events []EventEnvelope) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Event)
	}
	return names
}

// lastEventData re-decodes the data of the last event with the given
// name into out. Fails the test if the event never arrived.
func lastEventData(t *testing.T, events []EventEnvelope, name string, out any) {
	t.Helper()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event != name {
			continue
		}
		raw, err := json.Marshal(events[i].Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
		return
	}
	t.Fatalf("no %q event found in %v", name, eventNames(events))
}

// recordingReporter captures results synchronously.
type recordingReporter struct {
	mu      sync.Mutex
	results []*GameResult
}

func (rr *recordingReporter) Report(result *GameResult) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.results = append(rr.results, result)
}

func (rr *recordingReporter) Results() []*GameResult {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return rr.results
}

type MockScoreLedger struct {
	mock.Mock
}

func (m *MockScoreLedger) TryInsertScore(ctx context.Context, email string, average time.Duration) (bool, error) {
	args := m.Called(ctx, email, average)
	return args.Bool(0), args.Error(1)
}
