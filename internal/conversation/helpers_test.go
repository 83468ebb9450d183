package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-agent/internal/audit"
	"github.com/wolfman30/appointment-agent/internal/calendar"
	"github.com/wolfman30/appointment-agent/internal/dateparse"
	"github.com/wolfman30/appointment-agent/internal/notify"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// Thursday, October 15 2026, 10:30 IST.
var testNow = time.Date(2026, 10, 15, 10, 30, 0, 0, ist)

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2026, month, day, hour, minute, 0, 0, ist)
}

// spyCalendar records writes and can inject failures.
type spyCalendar struct {
	calendar.Calendar

	mu           sync.Mutex
	created      []calendar.NewEvent
	updated      []calendar.Event
	deleted      []string
	availableErr error
	createErr    error
	panicOnCheck bool
}

func (s *spyCalendar) IsAvailable(ctx context.Context, start, end time.Time) (bool, error) {
	if s.panicOnCheck {
		panic("calendar exploded")
	}
	if s.availableErr != nil {
		return false, s.availableErr
	}
	return s.Calendar.IsAvailable(ctx, start, end)
}

func (s *spyCalendar) CreateEvent(ctx context.Context, ev calendar.NewEvent) (calendar.Event, error) {
	s.mu.Lock()
	s.created = append(s.created, ev)
	s.mu.Unlock()
	if s.createErr != nil {
		return calendar.Event{}, s.createErr
	}
	return s.Calendar.CreateEvent(ctx, ev)
}

func (s *spyCalendar) UpdateEvent(ctx context.Context, id string, start, end time.Time) (calendar.Event, error) {
	ev, err := s.Calendar.UpdateEvent(ctx, id, start, end)
	if err == nil {
		s.mu.Lock()
		s.updated = append(s.updated, ev)
		s.mu.Unlock()
	}
	return ev, err
}

func (s *spyCalendar) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, id)
	s.mu.Unlock()
	return s.Calendar.DeleteEvent(ctx, id)
}

type fakeAudit struct {
	entries []audit.Entry
	err     error
}

func (f *fakeAudit) LogAction(_ context.Context, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

type fakeNotifier struct {
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) SendNotification(_ context.Context, n notify.Notification) (bool, error) {
	f.sent = append(f.sent, n)
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

type fakeMetrics struct {
	turns       []string
	sideEffects []string
}

func (f *fakeMetrics) RecordTurn(intent, outcome string) {
	f.turns = append(f.turns, intent+"/"+outcome)
}

func (f *fakeMetrics) RecordSideEffectFailure(effect string) {
	f.sideEffects = append(f.sideEffects, effect)
}

type harness struct {
	agent    *Agent
	mem      *calendar.MemoryCalendar
	cal      *spyCalendar
	audit    *fakeAudit
	notifier *fakeNotifier
	metrics  *fakeMetrics
}

func newHarness(t *testing.T, opts ...func(*AgentConfig)) *harness {
	t.Helper()
	clock := func() time.Time { return testNow }
	mem := calendar.NewMemoryCalendar(calendar.DefaultHours(ist), clock)
	h := &harness{
		mem:      mem,
		cal:      &spyCalendar{Calendar: mem},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
	}
	cfg := AgentConfig{
		Calendar:    h.cal,
		AuditLog:    h.audit,
		Notifier:    h.notifier,
		Parser:      dateparse.New(ist, clock),
		Logger:      logging.Discard(),
		Metrics:     h.metrics,
		BookingCode: func() string { return "AB-C123" },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	agent, err := NewAgent(cfg)
	require.NoError(t, err)
	h.agent = agent
	return h
}

func (h *harness) turn(msg string, state *State) TurnResponse {
	return h.agent.HandleTurn(context.Background(), TurnRequest{Message: msg, SessionState: state})
}

func (h *harness) seed(id string, start time.Time) {
	h.mem.Seed(calendar.Event{ID: id, Title: "Appointment", Start: start, End: start.Add(30 * time.Minute)})
}

var errBackend = errors.New("backend unavailable")
