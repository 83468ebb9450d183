package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestNotifier_SkipsWhenUnconfigured(t *testing.T) {
	sent, err := NewNotifier(nil, "advisor@example.com", nil).SendNotification(context.Background(), Notification{Kind: KindBooking})
	require.NoError(t, err)
	assert.False(t, sent)

	sender := &recordingSender{}
	sent, err = NewNotifier(sender, "", nil).SendNotification(context.Background(), Notification{Kind: KindBooking})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, sender.sent)
}

func TestNotifier_RendersTemplates(t *testing.T) {
	tests := []struct {
		name        string
		note        Notification
		subject     string
		htmlContain []string
	}{
		{
			name:        "booking",
			note:        Notification{Kind: KindBooking, AppointmentTime: "Mon, Oct 19, 2026, 2:00 PM", BookingCode: "AB-C123"},
			subject:     "Appointment Booked - Voice Scheduler",
			htmlContain: []string{"<h1>Appointment Confirmed</h1>", "<code>AB-C123</code>", "Mon, Oct 19, 2026, 2:00 PM"},
		},
		{
			name:        "reschedule",
			note:        Notification{Kind: KindReschedule, PreviousTime: "Mon, Oct 19, 2026, 2:00 PM", AppointmentTime: "Tue, Oct 20, 2026, 3:00 PM"},
			subject:     "Appointment Rescheduled - Voice Scheduler",
			htmlContain: []string{"<del>Previous: Mon, Oct 19, 2026, 2:00 PM</del>", "Tue, Oct 20, 2026, 3:00 PM"},
		},
		{
			name:        "cancellation",
			note:        Notification{Kind: KindCancellation, AppointmentTime: "Mon, Oct 19, 2026, 2:00 PM"},
			subject:     "Appointment Cancelled - Voice Scheduler",
			htmlContain: []string{"<h1>Appointment Cancelled</h1>", "Mon, Oct 19, 2026, 2:00 PM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			n := NewNotifier(sender, "advisor@example.com", nil)

			sent, err := n.SendNotification(context.Background(), tt.note)
			require.NoError(t, err)
			assert.True(t, sent)
			require.Len(t, sender.sent, 1)

			msg := sender.sent[0]
			assert.Equal(t, "advisor@example.com", msg.To)
			assert.Equal(t, tt.subject, msg.Subject)
			for _, want := range tt.htmlContain {
				assert.Contains(t, msg.HTML, want)
			}
			assert.Contains(t, msg.Body, "sent automatically")
		})
	}
}

func TestNotifier_UnknownKind(t *testing.T) {
	sent, err := NewNotifier(&recordingSender{}, "advisor@example.com", nil).SendNotification(context.Background(), Notification{Kind: "reminder"})
	assert.Error(t, err)
	assert.False(t, sent)
}

func TestNotifier_SenderError(t *testing.T) {
	n := NewNotifier(&recordingSender{err: errors.New("smtp down")}, "advisor@example.com", nil)
	sent, err := n.SendNotification(context.Background(), Notification{Kind: KindCancellation, AppointmentTime: "x"})
	assert.ErrorContains(t, err, "smtp down")
	assert.False(t, sent)
}
