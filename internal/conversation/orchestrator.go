// Package conversation turns free-text scheduling requests into calendar
// operations, one stateless turn at a time.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/appointment-agent/internal/audit"
	"github.com/wolfman30/appointment-agent/internal/calendar"
	"github.com/wolfman30/appointment-agent/internal/dateparse"
	"github.com/wolfman30/appointment-agent/internal/notify"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

var turnTracer = otel.Tracer("scheduler.internal.conversation")

const (
	maxSuggestions     = 2
	defaultTitle       = "Appointment - Voice Scheduler"
	defaultAppointment = 30 * time.Minute
)

// ActionLogger records completed appointment actions.
type ActionLogger interface {
	LogAction(ctx context.Context, entry audit.Entry) error
}

// Notifier sends confirmation emails. It reports false when nothing was sent.
type Notifier interface {
	SendNotification(ctx context.Context, n notify.Notification) (bool, error)
}

// Metrics receives turn outcomes.
type Metrics interface {
	RecordTurn(intent, outcome string)
	RecordSideEffectFailure(effect string)
}

// AgentConfig wires an Agent. Calendar and Parser are required.
type AgentConfig struct {
	Calendar            calendar.Calendar
	AuditLog            ActionLogger
	Notifier            Notifier
	Parser              *dateparse.Parser
	Logger              *logging.Logger
	Metrics             Metrics
	AppointmentTitle    string
	AppointmentDuration time.Duration
	SuggestionLimit     int
	RequireConfirmation bool
	BookingCode         func() string
}

// Agent runs conversation turns against the calendar.
type Agent struct {
	cal                 calendar.Calendar
	auditLog            ActionLogger
	notifier            Notifier
	parser              *dateparse.Parser
	logger              *logging.Logger
	metrics             Metrics
	title               string
	duration            time.Duration
	suggestions         int
	requireConfirmation bool
	bookingCode         func() string
}

// NewAgent validates cfg and applies defaults.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Calendar == nil {
		return nil, errors.New("conversation: calendar is required")
	}
	if cfg.Parser == nil {
		return nil, errors.New("conversation: date parser is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.AuditLog == nil {
		cfg.AuditLog = audit.NopLogger{}
	}
	if cfg.AppointmentTitle == "" {
		cfg.AppointmentTitle = defaultTitle
	}
	if cfg.AppointmentDuration <= 0 {
		cfg.AppointmentDuration = defaultAppointment
	}
	if cfg.SuggestionLimit <= 0 || cfg.SuggestionLimit > maxSuggestions {
		cfg.SuggestionLimit = maxSuggestions
	}
	if cfg.BookingCode == nil {
		cfg.BookingCode = NewBookingCode
	}
	return &Agent{
		cal:                 cfg.Calendar,
		auditLog:            cfg.AuditLog,
		notifier:            cfg.Notifier,
		parser:              cfg.Parser,
		logger:              cfg.Logger,
		metrics:             cfg.Metrics,
		title:               cfg.AppointmentTitle,
		duration:            cfg.AppointmentDuration,
		suggestions:         cfg.SuggestionLimit,
		requireConfirmation: cfg.RequireConfirmation,
		bookingCode:         cfg.BookingCode,
	}, nil
}

// TurnRequest is one user message plus the state returned by the previous turn.
type TurnRequest struct {
	Message      string `json:"message"`
	SessionState *State `json:"sessionState,omitempty"`
}

// TurnResponse is the reply and the state the client must send back next turn.
type TurnResponse struct {
	Reply          string          `json:"reply"`
	SuggestedSlots []calendar.Slot `json:"suggestedSlots,omitempty"`
	NewState       State           `json:"newState"`
	Success        bool            `json:"success"`
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// HandleTurn never fails: errors become apology replies, and a panic resets
// the session.
func (a *Agent) HandleTurn(ctx context.Context, req TurnRequest) (resp TurnResponse) {
	ctx, span := turnTracer.Start(ctx, "conversation.turn")
	defer span.End()

	state := NewState()
	if req.SessionState != nil {
		state = *req.SessionState
	}
	intent := ParsedIntent{Type: IntentUnknown}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("conversation turn panicked", "panic", r, "stack", string(debug.Stack()))
			span.RecordError(&panicError{value: r})
			span.SetStatus(codes.Error, "panic")
			resp = TurnResponse{Reply: replyUnexpectedError, NewState: NewState()}
		}
		outcome := "success"
		if !resp.Success {
			outcome = "failure"
		}
		span.SetAttributes(
			attribute.String("conversation.intent", intent.Type.String()),
			attribute.String("conversation.outcome", outcome),
		)
		if a.metrics != nil {
			a.metrics.RecordTurn(intent.Type.String(), outcome)
		}
	}()

	intent = Classify(req.Message, state)
	return a.dispatch(ctx, req.Message, state, intent)
}

func (a *Agent) dispatch(ctx context.Context, msg string, state State, intent ParsedIntent) TurnResponse {
	switch intent.Type {
	case IntentSelectSlot:
		return a.selectSlot(ctx, msg, state, *intent.SlotIndex)
	case IntentConfirm:
		return a.confirm(ctx, msg, state)
	case IntentCancel:
		return a.cancel(ctx, msg, state)
	case IntentReschedule:
		return a.reschedule(ctx, msg, state)
	case IntentBook:
		return a.book(ctx, msg, state)
	}

	// A follow-up such as "at 3pm" carries no keyword; it continues the
	// active flow.
	switch state.CurrentIntent {
	case FlowBook:
		return a.book(ctx, msg, state)
	case FlowReschedule:
		return a.reschedule(ctx, msg, state)
	case FlowCancel:
		return a.cancel(ctx, msg, state)
	}
	return reply(replyHelp, state, true)
}

func (a *Agent) book(ctx context.Context, msg string, state State) TurnResponse {
	flow := state.Begin(FlowBook)
	parsed := a.parser.Parse(msg)

	date := parsed.Date
	if date == nil && flow.TargetDate != nil {
		staged := a.local(*flow.TargetDate)
		date = &staged
	}
	if date == nil {
		return reply(replyAskBookingDate, flow, true)
	}
	if parsed.Time == nil {
		return reply(replyAskTime(*date), flow.WithTargetDate(*date), true)
	}

	start := dateparse.Combine(*date, *parsed.Time)
	if a.parser.IsPast(start) {
		return reply(replyPastBooking, state, false)
	}
	end := start.Add(a.duration)

	available, err := a.cal.IsAvailable(ctx, start, end)
	if err != nil {
		a.logger.Error("availability check failed", "error", err, "start", start)
		return reply(replyAvailabilityError, state, false)
	}
	if !available {
		return a.offerAlternatives(ctx, *date, flow.WithTargetDate(*date), FlowBook, state, replyBookingAlternatives(*date))
	}
	if a.requireConfirmation {
		return reply(replyConfirmBooking(start), flow.WithAwaitingConfirmation(*date, parsed.Time.String()), true)
	}
	return a.commitBooking(ctx, msg, start, end, state)
}

func (a *Agent) confirm(ctx context.Context, msg string, state State) TurnResponse {
	if !state.AwaitingConfirmation || state.TargetDate == nil || state.TargetTime == "" {
		return reply(replyNothingToConfirm, state, true)
	}
	clock, err := dateparse.ParseClock(state.TargetTime)
	if err != nil {
		a.logger.Warn("discarding unparseable staged time", "target_time", state.TargetTime, "error", err)
		return reply(replyNothingToConfirm, NewState(), true)
	}

	date := a.local(*state.TargetDate)
	start := dateparse.Combine(date, clock)
	if a.parser.IsPast(start) {
		return reply(replyPastBooking, state, false)
	}
	end := start.Add(a.duration)

	available, err := a.cal.IsAvailable(ctx, start, end)
	if err != nil {
		a.logger.Error("availability check failed", "error", err, "start", start)
		return reply(replyAvailabilityError, state, false)
	}
	if !available {
		fallback := NewState().Begin(FlowBook).WithTargetDate(date)
		return a.offerAlternatives(ctx, date, fallback, FlowBook, fallback, replyBookingAlternatives(date))
	}
	return a.commitBooking(ctx, msg, start, end, state)
}

func (a *Agent) selectSlot(ctx context.Context, msg string, state State, index int) TurnResponse {
	slot, ok := state.SelectedSlot(index)
	if !ok {
		return reply(replyUnknownSlot, state, false)
	}
	failed := state.ClearPendingSlots()
	if state.CurrentIntent == FlowReschedule && state.OriginalEvent != nil {
		return a.commitReschedule(ctx, msg, *state.OriginalEvent, slot.Start, slot.End, failed)
	}
	return a.commitBooking(ctx, msg, slot.Start, slot.End, failed)
}

func (a *Agent) reschedule(ctx context.Context, msg string, state State) TurnResponse {
	flow := state.Begin(FlowReschedule)
	rs := a.parser.ParseReschedule(msg)

	if rs.Original == nil && flow.OriginalEvent != nil {
		return a.moveLocated(ctx, msg, flow, *flow.OriginalEvent, rs.NewDate, rs.NewTime)
	}

	if rs.Original == nil {
		date := a.parser.Parse(msg).Date
		if date == nil {
			return reply(replyAskWhichToMove, flow, true)
		}
		ev, err := a.cal.FindEventByDate(ctx, *date)
		if err != nil {
			a.logger.Error("event lookup failed", "error", err, "date", *date)
			return reply(replyRescheduleError, state, false)
		}
		if ev == nil {
			return reply(replyNotFound(*date), state, false)
		}
		return reply(replyFoundForReschedule(a.local(ev.Start)), NewState().WithOriginalEvent(*ev), true)
	}

	ev, err := a.cal.FindEventByDate(ctx, *rs.Original)
	if err != nil {
		a.logger.Error("event lookup failed", "error", err, "date", *rs.Original)
		return reply(replyRescheduleError, state, false)
	}
	if ev == nil {
		return reply(replyNotFound(*rs.Original), state, false)
	}
	located := NewState().WithOriginalEvent(*ev)
	if rs.NewDate == nil && rs.NewTime == nil {
		return reply(replyFoundForReschedule(a.local(ev.Start)), located, true)
	}
	return a.moveLocated(ctx, msg, located, *ev, rs.NewDate, rs.NewTime)
}

// moveLocated moves an already identified event, asking for whatever part of
// the target is still missing.
func (a *Agent) moveLocated(ctx context.Context, msg string, state State, ev calendar.Event, newDate *time.Time, newTime *dateparse.ClockTime) TurnResponse {
	date := newDate
	if date == nil && newTime != nil && state.TargetDate != nil {
		staged := a.local(*state.TargetDate)
		date = &staged
	}
	if date == nil {
		return reply(replyAskRescheduleWhen, state, true)
	}
	if newTime == nil {
		return reply(replyAskRescheduleTime(*date), state.WithTargetDate(*date), true)
	}

	start := dateparse.Combine(*date, *newTime)
	if a.parser.IsPast(start) {
		return reply(replyPastReschedule, state, false)
	}
	end := start.Add(a.duration)

	available, err := a.cal.IsAvailable(ctx, start, end)
	if err != nil {
		a.logger.Error("availability check failed", "error", err, "start", start)
		return reply(replyRescheduleError, state, false)
	}
	if !available {
		return a.offerAlternatives(ctx, *date, state, FlowReschedule, state, replyAlternatives)
	}
	return a.commitReschedule(ctx, msg, ev, start, end, state)
}

func (a *Agent) cancel(ctx context.Context, msg string, state State) TurnResponse {
	flow := state.Begin(FlowCancel)
	date := a.parser.Parse(msg).Date
	if date == nil {
		return reply(replyAskCancelDate, flow, true)
	}

	ev, err := a.cal.FindEventByDate(ctx, *date)
	if err != nil {
		a.logger.Error("event lookup failed", "error", err, "date", *date)
		return reply(replyCancelError, state, false)
	}
	if ev == nil {
		return reply(replyNotFound(*date), state, false)
	}
	if err := a.cal.DeleteEvent(ctx, ev.ID); err != nil {
		a.logger.Error("delete event failed", "error", err, "event_id", ev.ID)
		return reply(replyCancelError, state, false)
	}

	start := a.local(ev.Start)
	when := dateparse.FormatDateTime(start)
	a.runBestEffort(ctx,
		a.auditEffect(audit.Cancelled(a.parser.Now(), msg, when)),
		a.notifyEffect(notify.Notification{Kind: notify.KindCancellation, AppointmentTime: when}),
	)
	a.logger.Info("appointment cancelled", "event_id", ev.ID, "start", start)
	return reply(replyCancelled(start), NewState(), true)
}

// offerAlternatives puts up to the configured number of free slots on date
// in front of the user. With nothing free, fallback is returned unchanged.
func (a *Agent) offerAlternatives(ctx context.Context, date time.Time, next State, flow Flow, fallback State, text string) TurnResponse {
	slots, err := a.cal.FindFreeSlots(ctx, date, a.suggestions)
	if err != nil {
		a.logger.Error("free slot search failed", "error", err, "date", date)
		return reply(replyAvailabilityError, fallback, false)
	}
	if len(slots) == 0 {
		return reply(replyNoSlots(date), fallback, true)
	}
	if len(slots) > a.suggestions {
		slots = slots[:a.suggestions]
	}
	return TurnResponse{
		Reply:          text,
		SuggestedSlots: slots,
		NewState:       next.WithPendingSlots(slots, flow),
		Success:        true,
	}
}

func (a *Agent) commitBooking(ctx context.Context, msg string, start, end time.Time, failed State) TurnResponse {
	code := a.bookingCode()
	created, err := a.cal.CreateEvent(ctx, calendar.NewEvent{
		Title:       a.title,
		Description: "Booking code: " + code,
		Start:       start,
		End:         end,
	})
	if err != nil {
		return a.writeFailed(err, replyBookingError, failed)
	}

	start = a.local(start)
	when := dateparse.FormatDateTime(start)
	a.runBestEffort(ctx,
		a.auditEffect(audit.Booked(a.parser.Now(), msg, when)),
		a.notifyEffect(notify.Notification{Kind: notify.KindBooking, AppointmentTime: when, BookingCode: code}),
	)
	a.logger.Info("appointment booked", "event_id", created.ID, "start", start, "booking_code", code)
	return reply(replyBooked(start, code), NewState(), true)
}

func (a *Agent) commitReschedule(ctx context.Context, msg string, ev calendar.Event, start, end time.Time, failed State) TurnResponse {
	if _, err := a.cal.UpdateEvent(ctx, ev.ID, start, end); err != nil {
		return a.writeFailed(err, replyRescheduleError, failed)
	}

	oldStart, newStart := a.local(ev.Start), a.local(start)
	when := dateparse.FormatDateTime(newStart)
	a.runBestEffort(ctx,
		a.auditEffect(audit.Rescheduled(a.parser.Now(), msg, when)),
		a.notifyEffect(notify.Notification{
			Kind:            notify.KindReschedule,
			AppointmentTime: when,
			PreviousTime:    dateparse.FormatDateTime(oldStart),
		}),
	)
	a.logger.Info("appointment rescheduled", "event_id", ev.ID, "from", oldStart, "to", newStart)
	return reply(replyRescheduled(oldStart, newStart), NewState(), true)
}

func (a *Agent) writeFailed(err error, text string, state State) TurnResponse {
	if errors.Is(err, calendar.ErrSlotUnavailable) || errors.Is(err, calendar.ErrSlotLocked) {
		a.logger.Warn("slot taken during write", "error", err)
		return reply(replySlotTaken, state, false)
	}
	a.logger.Error("calendar write failed", "error", err)
	return reply(text, state, false)
}

func (a *Agent) auditEffect(entry audit.Entry) sideEffect {
	return sideEffect{name: "audit_log", run: func(ctx context.Context) error {
		return a.auditLog.LogAction(ctx, entry)
	}}
}

func (a *Agent) notifyEffect(n notify.Notification) sideEffect {
	return sideEffect{name: "email", run: func(ctx context.Context) error {
		if a.notifier == nil {
			return nil
		}
		sent, err := a.notifier.SendNotification(ctx, n)
		if err != nil {
			return err
		}
		if !sent {
			a.logger.Info("confirmation email not sent", "kind", n.Kind)
		}
		return nil
	}}
}

func (a *Agent) local(t time.Time) time.Time {
	return t.In(a.parser.Location())
}

func reply(text string, state State, success bool) TurnResponse {
	return TurnResponse{Reply: text, NewState: state, Success: success}
}
