package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/appointment-agent/internal/calendar"
)

// Flow is the operation a session is working towards.
type Flow string

const (
	FlowNone       Flow = ""
	FlowBook       Flow = "BOOK"
	FlowReschedule Flow = "RESCHEDULE"
	FlowCancel     Flow = "CANCEL"
)

// MarshalJSON encodes FlowNone as null.
func (f Flow) MarshalJSON() ([]byte, error) {
	if f == FlowNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

func (f *Flow) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = FlowNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("conversation: currentIntent: %w", err)
	}
	switch Flow(s) {
	case FlowNone, FlowBook, FlowReschedule, FlowCancel:
		*f = Flow(s)
		return nil
	}
	return fmt.Errorf("conversation: unknown currentIntent %q", s)
}

// State is the session carried by the client between turns. Values are
// never mutated in place; every transition returns a new State.
//
// PendingSlots and AwaitingConfirmation are mutually exclusive, and
// OriginalEvent is only set while CurrentIntent is FlowReschedule.
type State struct {
	CurrentIntent        Flow            `json:"currentIntent"`
	PendingSlots         []calendar.Slot `json:"pendingSlots,omitempty"`
	OriginalEvent        *calendar.Event `json:"originalEvent,omitempty"`
	AwaitingConfirmation bool            `json:"awaitingConfirmation"`
	TargetDate           *time.Time      `json:"targetDate,omitempty"`
	TargetTime           string          `json:"targetTime,omitempty"`
}

// NewState is the idle state a session starts in and returns to.
func NewState() State {
	return State{}
}

// HasPendingSlots reports whether the user is choosing between offered slots.
func (s State) HasPendingSlots() bool {
	return len(s.PendingSlots) > 0
}

// Begin enters flow. Switching to a different flow drops everything staged
// for the previous one.
func (s State) Begin(flow Flow) State {
	if s.CurrentIntent == flow {
		return s
	}
	return State{CurrentIntent: flow}
}

// WithTargetDate stages a date that still needs a time. Slots offered for an
// earlier date are dropped and confirmation mode is left.
func (s State) WithTargetDate(date time.Time) State {
	d := date
	s.TargetDate = &d
	s.PendingSlots = nil
	s.AwaitingConfirmation = false
	s.TargetTime = ""
	return s
}

// WithPendingSlots offers slots for flow and leaves confirmation mode.
func (s State) WithPendingSlots(slots []calendar.Slot, flow Flow) State {
	s.CurrentIntent = flow
	s.PendingSlots = append([]calendar.Slot(nil), slots...)
	s.AwaitingConfirmation = false
	s.TargetTime = ""
	if flow != FlowReschedule {
		s.OriginalEvent = nil
	}
	return s
}

// WithAwaitingConfirmation stages a fully specified booking and leaves slot
// selection mode.
func (s State) WithAwaitingConfirmation(date time.Time, clock string) State {
	s.CurrentIntent = FlowBook
	s.PendingSlots = nil
	s.OriginalEvent = nil
	s.AwaitingConfirmation = true
	d := date
	s.TargetDate = &d
	s.TargetTime = clock
	return s
}

// WithOriginalEvent records the appointment being rescheduled.
func (s State) WithOriginalEvent(ev calendar.Event) State {
	s.CurrentIntent = FlowReschedule
	e := ev
	s.OriginalEvent = &e
	s.AwaitingConfirmation = false
	s.TargetTime = ""
	return s
}

// ClearPendingSlots drops offered slots and keeps everything else.
func (s State) ClearPendingSlots() State {
	s.PendingSlots = nil
	return s
}

// SelectedSlot returns the pending slot at index.
func (s State) SelectedSlot(index int) (calendar.Slot, bool) {
	if index < 0 || index >= len(s.PendingSlots) {
		return calendar.Slot{}, false
	}
	return s.PendingSlots[index], true
}
