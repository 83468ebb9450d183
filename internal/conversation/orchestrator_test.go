package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-agent/internal/audit"
	"github.com/wolfman30/appointment-agent/internal/calendar"
	"github.com/wolfman30/appointment-agent/internal/notify"
)

func TestNewAgentValidation(t *testing.T) {
	_, err := NewAgent(AgentConfig{})
	require.Error(t, err)

	h := newHarness(t, func(c *AgentConfig) { c.SuggestionLimit = 10 })
	assert.Equal(t, maxSuggestions, h.agent.suggestions)
	assert.Equal(t, defaultTitle, h.agent.title)
	assert.Equal(t, defaultAppointment, h.agent.duration)
}

func TestHelpForUnrecognisedMessage(t *testing.T) {
	h := newHarness(t)
	resp := h.turn("hello", nil)
	assert.True(t, resp.Success)
	assert.Equal(t, replyHelp, resp.Reply)
	assert.Equal(t, NewState(), resp.NewState)
	assert.Equal(t, []string{"unknown/success"}, h.metrics.turns)
}

func TestBookAsksForMissingParts(t *testing.T) {
	h := newHarness(t)

	resp := h.turn("I want to book an appointment", nil)
	assert.True(t, resp.Success)
	assert.Equal(t, replyAskBookingDate, resp.Reply)
	assert.Equal(t, FlowBook, resp.NewState.CurrentIntent)

	resp = h.turn("Book an appointment on Monday", nil)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Reply, "What time would you prefer")
	assert.Contains(t, resp.Reply, "Monday, October 19")
	assert.Equal(t, FlowBook, resp.NewState.CurrentIntent)
	require.NotNil(t, resp.NewState.TargetDate)
	assert.True(t, resp.NewState.TargetDate.Equal(at(time.October, 19, 0, 0)))
	assert.Empty(t, resp.NewState.PendingSlots)
	assert.Empty(t, h.cal.created)
}

func TestBookFollowUpWithTimeCompletesBooking(t *testing.T) {
	h := newHarness(t)
	first := h.turn("Book an appointment on Monday", nil)

	resp := h.turn("at 2pm", &first.NewState)
	require.True(t, resp.Success, resp.Reply)
	assert.Contains(t, resp.Reply, "Mon, Oct 19, 2026, 2:00 PM")
	assert.Contains(t, resp.Reply, "AB-C123")
	assert.Equal(t, NewState(), resp.NewState)

	require.Len(t, h.cal.created, 1)
	created := h.cal.created[0]
	assert.True(t, created.Start.Equal(at(time.October, 19, 14, 0)))
	assert.True(t, created.End.Equal(at(time.October, 19, 14, 30)))
	assert.Equal(t, defaultTitle, created.Title)
	assert.Equal(t, "Booking code: AB-C123", created.Description)

	require.Len(t, h.audit.entries, 1)
	entry := h.audit.entries[0]
	assert.Equal(t, audit.ActionBooked, entry.Action)
	assert.Equal(t, audit.StatusConfirmed, entry.Status)
	assert.Equal(t, "at 2pm", entry.UserRequest)
	assert.Equal(t, "Mon, Oct 19, 2026, 2:00 PM", entry.AppointmentDateTime)
	assert.True(t, entry.Timestamp.Equal(testNow))

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notify.Notification{
		Kind:            notify.KindBooking,
		AppointmentTime: "Mon, Oct 19, 2026, 2:00 PM",
		BookingCode:     "AB-C123",
	}, h.notifier.sent[0])
}

func TestBookBusyOffersAlternatives(t *testing.T) {
	h := newHarness(t)
	h.seed("busy", at(time.October, 19, 14, 0))

	resp := h.turn("Book Monday at 2pm", nil)
	require.True(t, resp.Success)
	assert.Contains(t, resp.Reply, "next available slots for Monday, October 19")
	require.Len(t, resp.SuggestedSlots, 2)
	assert.True(t, resp.SuggestedSlots[0].Start.Equal(at(time.October, 19, 9, 0)))
	assert.True(t, resp.SuggestedSlots[1].Start.Equal(at(time.October, 19, 9, 30)))
	assert.Equal(t, resp.SuggestedSlots, resp.NewState.PendingSlots)
	assert.Equal(t, FlowBook, resp.NewState.CurrentIntent)
	assert.False(t, resp.NewState.AwaitingConfirmation)
	assert.Empty(t, h.cal.created)
}

func TestSelectedSlotIsBookedExactly(t *testing.T) {
	h := newHarness(t)
	h.seed("busy", at(time.October, 19, 14, 0))
	offer := h.turn("Book Monday at 2pm", nil)
	require.Len(t, offer.SuggestedSlots, 2)

	resp := h.turn("the second one", &offer.NewState)
	require.True(t, resp.Success, resp.Reply)
	assert.Equal(t, NewState(), resp.NewState)

	require.Len(t, h.cal.created, 1)
	slot := offer.SuggestedSlots[1]
	assert.True(t, h.cal.created[0].Start.Equal(slot.Start))
	assert.True(t, h.cal.created[0].End.Equal(slot.End))
	assert.Equal(t, []string{"book/success", "select_slot/success"}, h.metrics.turns)
}

func TestSelectingMissingSlotKeepsState(t *testing.T) {
	h := newHarness(t)
	slot := calendar.Slot{Label: "9:00 AM - 9:30 AM", Start: at(time.October, 19, 9, 0), End: at(time.October, 19, 9, 30)}
	state := NewState().Begin(FlowBook).WithPendingSlots([]calendar.Slot{slot}, FlowBook)

	resp := h.turn("second", &state)
	assert.False(t, resp.Success)
	assert.Equal(t, replyUnknownSlot, resp.Reply)
	assert.Equal(t, state, resp.NewState)
	assert.Empty(t, h.cal.created)
}

func TestBookingInThePastIsRejected(t *testing.T) {
	h := newHarness(t)
	resp := h.turn("Book today at 9am", nil)
	assert.False(t, resp.Success)
	assert.Equal(t, replyPastBooking, resp.Reply)
	assert.Equal(t, NewState(), resp.NewState)
	assert.Empty(t, h.cal.created)
}

func TestNoSlotsLeft(t *testing.T) {
	h := newHarness(t)
	h.mem.Seed(calendar.Event{ID: "all-day", Start: at(time.October, 19, 9, 0), End: at(time.October, 19, 18, 0)})

	resp := h.turn("Book Monday at 2pm", nil)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Reply, "no available slots on Monday, October 19")
	assert.Empty(t, resp.SuggestedSlots)
	assert.Equal(t, NewState(), resp.NewState)
}

func TestRescheduleInOneMessage(t *testing.T) {
	h := newHarness(t)
	h.seed("ev-1", at(time.October, 19, 10, 0))

	msg := "Reschedule my appointment on Monday to Tuesday at 3pm"
	resp := h.turn(msg, nil)
	require.True(t, resp.Success, resp.Reply)
	assert.Contains(t, resp.Reply, "Tue, Oct 20, 2026, 3:00 PM")
	assert.Contains(t, resp.Reply, "Mon, Oct 19, 2026, 10:00 AM")
	assert.Equal(t, NewState(), resp.NewState)

	require.Len(t, h.cal.updated, 1)
	assert.Equal(t, "ev-1", h.cal.updated[0].ID)
	assert.True(t, h.cal.updated[0].Start.Equal(at(time.October, 20, 15, 0)))
	assert.True(t, h.cal.updated[0].End.Equal(at(time.October, 20, 15, 30)))

	require.Len(t, h.audit.entries, 1)
	assert.Equal(t, audit.Rescheduled(testNow, msg, "Tue, Oct 20, 2026, 3:00 PM"), h.audit.entries[0])
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "Mon, Oct 19, 2026, 10:00 AM", h.notifier.sent[0].PreviousTime)
}

func TestRescheduleAcrossTurns(t *testing.T) {
	h := newHarness(t)
	h.seed("ev-1", at(time.October, 19, 10, 0))

	found := h.turn("Reschedule my Monday appointment", nil)
	require.True(t, found.Success, found.Reply)
	assert.Contains(t, found.Reply, "I found your appointment on Mon, Oct 19, 2026, 10:00 AM")
	assert.Equal(t, FlowReschedule, found.NewState.CurrentIntent)
	require.NotNil(t, found.NewState.OriginalEvent)
	assert.Equal(t, "ev-1", found.NewState.OriginalEvent.ID)

	resp := h.turn("Tuesday at 3pm", &found.NewState)
	require.True(t, resp.Success, resp.Reply)
	require.Len(t, h.cal.updated, 1)
	assert.True(t, h.cal.updated[0].Start.Equal(at(time.October, 20, 15, 0)))
}

func TestRescheduleAsksWhichAppointment(t *testing.T) {
	h := newHarness(t)
	resp := h.turn("I need to reschedule", nil)
	assert.True(t, resp.Success)
	assert.Equal(t, replyAskWhichToMove, resp.Reply)
	assert.Equal(t, FlowReschedule, resp.NewState.CurrentIntent)
}

func TestRescheduleToBusyTimeOffersSlots(t *testing.T) {
	h := newHarness(t)
	h.seed("ev-1", at(time.October, 19, 10, 0))
	h.seed("ev-2", at(time.October, 20, 15, 0))

	offer := h.turn("Reschedule my appointment on Monday to Tuesday at 3pm", nil)
	require.True(t, offer.Success, offer.Reply)
	assert.Equal(t, replyAlternatives, offer.Reply)
	require.Len(t, offer.SuggestedSlots, 2)
	assert.Equal(t, FlowReschedule, offer.NewState.CurrentIntent)
	require.NotNil(t, offer.NewState.OriginalEvent)
	assert.Equal(t, "ev-1", offer.NewState.OriginalEvent.ID)

	resp := h.turn("first", &offer.NewState)
	require.True(t, resp.Success, resp.Reply)
	require.Len(t, h.cal.updated, 1)
	assert.Equal(t, "ev-1", h.cal.updated[0].ID)
	assert.True(t, h.cal.updated[0].Start.Equal(at(time.October, 20, 9, 0)))
	assert.Empty(t, h.cal.created)
}

func TestCancelNotFound(t *testing.T) {
	h := newHarness(t)
	resp := h.turn("Cancel my appointment on January 1st", nil)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Reply, "couldn't find an appointment on Friday, January 1")
	assert.Empty(t, h.cal.deleted)
	assert.Empty(t, h.audit.entries)
}

func TestCancelAcrossTurns(t *testing.T) {
	h := newHarness(t)
	h.seed("ev-1", at(time.October, 19, 11, 0))

	ask := h.turn("cancel my appointment", nil)
	assert.True(t, ask.Success)
	assert.Equal(t, replyAskCancelDate, ask.Reply)
	assert.Equal(t, FlowCancel, ask.NewState.CurrentIntent)

	resp := h.turn("monday", &ask.NewState)
	require.True(t, resp.Success, resp.Reply)
	assert.Contains(t, resp.Reply, "Mon, Oct 19, 2026, 11:00 AM")
	assert.Equal(t, []string{"ev-1"}, h.cal.deleted)
	assert.Empty(t, h.mem.Events())
	require.Len(t, h.audit.entries, 1)
	assert.Equal(t, audit.ActionCancelled, h.audit.entries[0].Action)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notify.KindCancellation, h.notifier.sent[0].Kind)
}

func TestConfirmationMode(t *testing.T) {
	h := newHarness(t, func(c *AgentConfig) { c.RequireConfirmation = true })

	staged := h.turn("Book Monday at 2pm", nil)
	require.True(t, staged.Success)
	assert.Contains(t, staged.Reply, "Mon, Oct 19, 2026, 2:00 PM is available")
	assert.True(t, staged.NewState.AwaitingConfirmation)
	assert.Equal(t, "14:00", staged.NewState.TargetTime)
	assert.Empty(t, staged.NewState.PendingSlots)
	assert.Empty(t, h.cal.created)

	resp := h.turn("yes", &staged.NewState)
	require.True(t, resp.Success, resp.Reply)
	require.Len(t, h.cal.created, 1)
	assert.True(t, h.cal.created[0].Start.Equal(at(time.October, 19, 14, 0)))
	assert.Equal(t, NewState(), resp.NewState)
}

func TestConfirmWithoutStagedBooking(t *testing.T) {
	h := newHarness(t)
	state := State{AwaitingConfirmation: true}
	resp := h.turn("yes", &state)
	assert.True(t, resp.Success)
	assert.Equal(t, replyNothingToConfirm, resp.Reply)
}

func TestCalendarErrorKeepsState(t *testing.T) {
	h := newHarness(t)
	h.cal.availableErr = errBackend
	state := NewState().Begin(FlowBook).WithTargetDate(at(time.October, 19, 0, 0))

	resp := h.turn("at 2pm", &state)
	assert.False(t, resp.Success)
	assert.Equal(t, replyAvailabilityError, resp.Reply)
	assert.Equal(t, state, resp.NewState)
	assert.Equal(t, []string{"unknown/failure"}, h.metrics.turns)
}

func TestWriteConflicts(t *testing.T) {
	for _, err := range []error{calendar.ErrSlotLocked, calendar.ErrSlotUnavailable} {
		t.Run(err.Error(), func(t *testing.T) {
			h := newHarness(t)
			h.cal.createErr = err
			resp := h.turn("Book Monday at 2pm", nil)
			assert.False(t, resp.Success)
			assert.Equal(t, replySlotTaken, resp.Reply)
			assert.Empty(t, h.audit.entries)
			assert.Empty(t, h.notifier.sent)
		})
	}
}

func TestSideEffectFailuresDoNotFailTurn(t *testing.T) {
	h := newHarness(t)
	h.audit.err = errBackend
	h.notifier.err = errBackend

	resp := h.turn("Book Monday at 2pm", nil)
	assert.True(t, resp.Success, resp.Reply)
	assert.Contains(t, resp.Reply, "Appointment Confirmed")
	assert.Len(t, h.cal.created, 1)
	assert.Equal(t, []string{"audit_log", "email"}, h.metrics.sideEffects)
	assert.Equal(t, []string{"book/success"}, h.metrics.turns)
}

func TestPanicResetsSession(t *testing.T) {
	h := newHarness(t)
	h.cal.panicOnCheck = true
	state := NewState().Begin(FlowBook).WithTargetDate(at(time.October, 19, 0, 0))

	resp := h.turn("Book Monday at 2pm", &state)
	assert.False(t, resp.Success)
	assert.Equal(t, replyUnexpectedError, resp.Reply)
	assert.Equal(t, NewState(), resp.NewState)
	assert.Equal(t, []string{"book/failure"}, h.metrics.turns)
}

func TestSlotsAndConfirmationNeverCoexist(t *testing.T) {
	h := newHarness(t, func(c *AgentConfig) { c.RequireConfirmation = true })
	h.seed("busy", at(time.October, 19, 14, 0))

	script := []string{
		"Book Monday at 2pm",
		"Book October 20",
		"book monday at 2pm",
		"actually make it Monday at 3pm",
		"book monday at 2pm",
		"book tuesday",
		"at 4pm",
		"reschedule my monday appointment",
		"yes",
	}
	var state *State
	for _, msg := range script {
		resp := h.turn(msg, state)
		assert.False(t, resp.NewState.HasPendingSlots() && resp.NewState.AwaitingConfirmation, msg)
		if isPrompt(resp.Reply) {
			assert.Empty(t, resp.NewState.PendingSlots, msg)
		}
		if resp.NewState.OriginalEvent != nil {
			assert.Equal(t, FlowReschedule, resp.NewState.CurrentIntent, msg)
		}
		next := resp.NewState
		state = &next
	}
}

func isPrompt(text string) bool {
	return strings.Contains(text, "What time") ||
		strings.Contains(text, "specify the date") ||
		strings.Contains(text, "When would you like")
}

func TestNewDateDropsOfferedSlots(t *testing.T) {
	h := newHarness(t)
	h.seed("busy", at(time.October, 19, 14, 0))

	offered := h.turn("Book October 19 at 2pm", nil)
	require.Len(t, offered.NewState.PendingSlots, 2)

	moved := h.turn("Book October 20", &offered.NewState)
	require.True(t, moved.Success)
	assert.Contains(t, moved.Reply, "Tuesday, October 20")
	assert.Empty(t, moved.NewState.PendingSlots)
	require.NotNil(t, moved.NewState.TargetDate)
	assert.True(t, moved.NewState.TargetDate.Equal(at(time.October, 20, 0, 0)))

	resp := h.turn("the first one", &moved.NewState)
	assert.Contains(t, resp.Reply, "What time")
	assert.Empty(t, h.cal.created)

	resp = h.turn("at 11am", &resp.NewState)
	require.True(t, resp.Success, resp.Reply)
	require.Len(t, h.cal.created, 1)
	assert.True(t, h.cal.created[0].Start.Equal(at(time.October, 20, 11, 0)))
}

func TestConfirmKeywordInsideWord(t *testing.T) {
	for _, msg := range []string{"confirmed", "alright"} {
		t.Run(msg, func(t *testing.T) {
			h := newHarness(t, func(c *AgentConfig) { c.RequireConfirmation = true })
			staged := h.turn("Book Monday at 2pm", nil)
			require.True(t, staged.NewState.AwaitingConfirmation)

			resp := h.turn(msg, &staged.NewState)
			require.True(t, resp.Success, resp.Reply)
			require.Len(t, h.cal.created, 1)
			assert.True(t, h.cal.created[0].Start.Equal(at(time.October, 19, 14, 0)))
			assert.Equal(t, []string{"book/success", "confirm/success"}, h.metrics.turns)
		})
	}
}

func TestStaleConfirmationKeepsState(t *testing.T) {
	h := newHarness(t)
	state := NewState().WithAwaitingConfirmation(at(time.October, 15, 0, 0), "09:00")

	resp := h.turn("yes", &state)
	assert.False(t, resp.Success)
	assert.Equal(t, replyPastBooking, resp.Reply)
	assert.Equal(t, state, resp.NewState)
	assert.Empty(t, h.cal.created)
}
