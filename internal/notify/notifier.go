package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/appointment-agent/pkg/logging"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Kind selects the confirmation template.
type Kind string

const (
	KindBooking      Kind = "booking"
	KindReschedule   Kind = "reschedule"
	KindCancellation Kind = "cancellation"
)

// Notification is the payload of a confirmation email. PreviousTime is only
// used for reschedules.
type Notification struct {
	Kind            Kind
	AppointmentTime string
	PreviousTime    string
	BookingCode     string
}

// Notifier renders confirmations and mails them to the advisor.
type Notifier struct {
	sender    EmailSender
	recipient string
	markdown  goldmark.Markdown
	logger    *logging.Logger
}

// NewNotifier creates a notifier. A nil sender or empty recipient makes every
// send a logged no-op.
func NewNotifier(sender EmailSender, recipient string, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Notifier{
		sender:    sender,
		recipient: recipient,
		markdown:  md,
		logger:    logger,
	}
}

// SendNotification reports false without error when email is not configured.
func (n *Notifier) SendNotification(ctx context.Context, note Notification) (bool, error) {
	if n.sender == nil || n.recipient == "" {
		n.logger.Warn("notify: email not configured, skipping notification", "kind", note.Kind)
		return false, nil
	}

	subject, body, err := render(note)
	if err != nil {
		return false, err
	}
	var htmlBody bytes.Buffer
	if err := n.markdown.Convert([]byte(body), &htmlBody); err != nil {
		return false, fmt.Errorf("notify: render %s email: %w", note.Kind, err)
	}

	if err := n.sender.Send(ctx, EmailMessage{
		To:      n.recipient,
		Subject: subject,
		Body:    body,
		HTML:    htmlBody.String(),
	}); err != nil {
		return false, err
	}
	return true, nil
}

const footer = "\n\n_This email was sent automatically by the Appointment Scheduler._\n"

func render(note Notification) (string, string, error) {
	var b strings.Builder
	var subject string
	switch note.Kind {
	case KindBooking:
		subject = "Appointment Booked - Voice Scheduler"
		b.WriteString("# Appointment Confirmed\n\n")
		b.WriteString("A new appointment has been booked via the Voice Scheduler.\n\n")
		writeCode(&b, note.BookingCode)
		fmt.Fprintf(&b, "**Scheduled for:** %s", note.AppointmentTime)
	case KindReschedule:
		subject = "Appointment Rescheduled - Voice Scheduler"
		b.WriteString("# Appointment Rescheduled\n\n")
		b.WriteString("An appointment has been rescheduled via the Voice Scheduler.\n\n")
		writeCode(&b, note.BookingCode)
		fmt.Fprintf(&b, "~~Previous: %s~~\n\n**New:** %s", note.PreviousTime, note.AppointmentTime)
	case KindCancellation:
		subject = "Appointment Cancelled - Voice Scheduler"
		b.WriteString("# Appointment Cancelled\n\n")
		b.WriteString("An appointment has been cancelled via the Voice Scheduler.\n\n")
		writeCode(&b, note.BookingCode)
		fmt.Fprintf(&b, "**Cancelled appointment:** %s", note.AppointmentTime)
	default:
		return "", "", fmt.Errorf("notify: unknown notification kind %q", note.Kind)
	}
	b.WriteString(footer)
	return subject, b.String(), nil
}

func writeCode(b *strings.Builder, code string) {
	if code != "" {
		fmt.Fprintf(b, "**Booking code:** `%s`\n\n", code)
	}
}
